package forest

import (
	"fmt"
	"strings"

	"attrparse/internal/grammar"
)

// Tree is a read-only handle on a stored node. The zero Tree is invalid.
type Tree struct {
	store *Store
	id    NodeID
}

// IsValid reports whether t refers to a node.
func (t Tree) IsValid() bool { return t.store != nil && t.id.IsValid() }

func (t Tree) ID() NodeID     { return t.id }
func (t Tree) Store() *Store  { return t.store }
func (t Tree) node() *Node    { return t.store.Node(t.id) }
func (t Tree) Kind() Kind     { return t.node().Kind }
func (t Tree) Key() Key       { return t.node().Key }
func (t Tree) Digest() Digest { return t.node().Digest }

// RuleID returns the deriving rule of a rule node, NoRuleID otherwise.
func (t Tree) RuleID() grammar.RuleID {
	n := t.node()
	if n.Kind != KindRule {
		return grammar.NoRuleID
	}
	return n.Rule
}

// IsLeaf reports whether t is a forest without alternatives.
func (t Tree) IsLeaf() bool { return t.node().IsLeaf() }

// Children returns the ordered children of a rule node.
func (t Tree) Children() []Tree {
	n := t.node()
	if n.Kind != KindRule {
		return nil
	}
	return t.wrap(n.Children)
}

// Alternatives returns the derivations of a forest node in canonical
// order. A rule node is its own single alternative.
func (t Tree) Alternatives() []Tree {
	n := t.node()
	if n.Kind == KindRule {
		return []Tree{t}
	}
	return t.wrap(n.Children)
}

func (t Tree) wrap(ids []NodeID) []Tree {
	out := make([]Tree, len(ids))
	for i, id := range ids {
		out[i] = Tree{store: t.store, id: id}
	}
	return out
}

// Equal reports structural equality, across stores as well.
func (t Tree) Equal(o Tree) bool {
	if !t.IsValid() || !o.IsValid() {
		return t.IsValid() == o.IsValid()
	}
	if t.store == o.store {
		return t.id == o.id
	}
	return t.Digest() == o.Digest()
}

// IsAmbiguous reports whether t or any node below it has more than one
// alternative.
func (t Tree) IsAmbiguous() bool {
	seen := make(map[NodeID]bool)
	var walk func(id NodeID) bool
	walk = func(id NodeID) bool {
		if v, ok := seen[id]; ok {
			return v
		}
		seen[id] = false
		n := t.store.Node(id)
		amb := n.Kind == KindForest && len(n.Children) > 1
		for _, c := range n.Children {
			if amb {
				break
			}
			amb = walk(c)
		}
		seen[id] = amb
		return amb
	}
	return walk(t.id)
}

// CountDerivations returns the number of distinct derivations t encodes,
// saturating at limit when limit > 0.
func (t Tree) CountDerivations(limit int) int {
	memo := make(map[NodeID]int)
	var count func(id NodeID) int
	count = func(id NodeID) int {
		if v, ok := memo[id]; ok {
			return v
		}
		n := t.store.Node(id)
		var total int
		switch {
		case n.IsLeaf():
			total = 1
		case n.Kind == KindForest:
			for _, c := range n.Children {
				total = saturate(total+count(c), limit)
			}
		default:
			total = 1
			for _, c := range n.Children {
				total = saturate(total*count(c), limit)
			}
		}
		memo[id] = total
		return total
	}
	return count(t.id)
}

func saturate(v, limit int) int {
	if limit > 0 && v > limit {
		return limit
	}
	return v
}

func (t Tree) String() string {
	if !t.IsValid() {
		return "<no tree>"
	}
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t Tree) write(sb *strings.Builder) {
	n := t.node()
	switch {
	case n.IsLeaf():
		fmt.Fprintf(sb, "%s=%s", n.Key.Symbol, n.Key.Out)
	case n.Kind == KindRule:
		fmt.Fprintf(sb, "%s#%d(", n.Key.Symbol, n.Rule)
		for i, c := range t.Children() {
			if i > 0 {
				sb.WriteByte(' ')
			}
			c.write(sb)
		}
		sb.WriteByte(')')
	default:
		sb.WriteString("{")
		for i, c := range t.Alternatives() {
			if i > 0 {
				sb.WriteString(" | ")
			}
			c.write(sb)
		}
		sb.WriteString("}")
	}
}
