package forest

import (
	"fmt"

	"attrparse/internal/grammar"
	"attrparse/internal/term"
)

// NodeID indexes a node in a Store. Zero means "no node".
type NodeID uint32

// NoNodeID is the zero handle.
const NoNodeID NodeID = 0

// IsValid reports whether id refers to a node.
func (id NodeID) IsValid() bool { return id != NoNodeID }

// Kind distinguishes a single derivation from a set of alternatives.
type Kind uint8

const (
	// KindRule is one derivation: a rule id and its ordered children.
	KindRule Kind = iota + 1
	// KindForest is a set of alternative derivations for one key. A forest
	// without alternatives is a leaf.
	KindForest
)

func (k Kind) String() string {
	switch k {
	case KindRule:
		return "rule"
	case KindForest:
		return "forest"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Key identifies a recognized symbol: what was recognized, where, and
// with which attributes.
type Key struct {
	Symbol grammar.SymbolName
	Start  int
	End    int
	In     term.Value
	Out    term.Value
}

// Len is the number of input positions the key spans.
func (k Key) Len() int { return k.End - k.Start }

func (k Key) String() string {
	return fmt.Sprintf("%s[%d:%d](%s -> %s)", k.Symbol, k.Start, k.End, k.In, k.Out)
}

// Node is a stored forest node. Children holds rule children for KindRule
// and alternatives for KindForest.
type Node struct {
	Kind     Kind
	Key      Key
	Rule     grammar.RuleID
	Children []NodeID
	Digest   Digest
}

// IsLeaf reports whether n is a forest without alternatives.
func (n *Node) IsLeaf() bool { return n.Kind == KindForest && len(n.Children) == 0 }

func (n *Node) sameShape(o *Node) bool {
	if n.Kind != o.Kind || n.Key != o.Key || n.Rule != o.Rule || len(n.Children) != len(o.Children) {
		return false
	}
	for i := range n.Children {
		if n.Children[i] != o.Children[i] {
			return false
		}
	}
	return true
}
