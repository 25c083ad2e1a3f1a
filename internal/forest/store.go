package forest

import (
	"bytes"
	"fmt"
	"slices"

	"fortio.org/safecast"

	"attrparse/internal/grammar"
)

// Store is an arena of hash-consed forest nodes. Structurally equal nodes
// share one NodeID, so node identity is tree equality within a store.
// A Store is not safe for concurrent mutation.
type Store struct {
	nodes    []Node // 1-based
	byDigest map[Digest][]NodeID
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nodes:    make([]Node, 1, 64),
		byDigest: make(map[Digest][]NodeID),
	}
}

// Len returns the number of stored nodes.
func (s *Store) Len() int { return len(s.nodes) - 1 }

// Node returns the node for id or nil.
func (s *Store) Node(id NodeID) *Node {
	if !id.IsValid() || int(id) >= len(s.nodes) {
		return nil
	}
	return &s.nodes[id]
}

func (s *Store) digest(id NodeID) Digest { return s.nodes[id].Digest }

func (s *Store) intern(n Node) NodeID {
	n.Digest = digestOf(&n, s.digest)
	for _, id := range s.byDigest[n.Digest] {
		if s.nodes[id].sameShape(&n) {
			return id
		}
	}
	raw, err := safecast.Conv[uint32](len(s.nodes))
	if err != nil {
		panic(fmt.Errorf("forest: arena overflow: %w", err))
	}
	id := NodeID(raw)
	s.nodes = append(s.nodes, n)
	s.byDigest[n.Digest] = append(s.byDigest[n.Digest], id)
	return id
}

// Rule stores one derivation of key by rule with the given children.
func (s *Store) Rule(rule grammar.RuleID, key Key, children []NodeID) NodeID {
	for _, c := range children {
		if s.Node(c) == nil {
			panic(fmt.Sprintf("forest: rule %d for %s has a dangling child %d", rule, key, c))
		}
	}
	return s.intern(Node{Kind: KindRule, Key: key, Rule: rule, Children: slices.Clone(children)})
}

// Leaf stores a forest without alternatives. Flat symbols and terminals
// recognized without a derivation are represented this way.
func (s *Store) Leaf(key Key) NodeID {
	return s.intern(Node{Kind: KindForest, Key: key})
}

// Merge combines derivations of one key. Forest arguments are flattened,
// duplicates dropped and the alternatives put in digest order. A single
// surviving derivation is returned as-is; none yields a leaf. Every
// argument must carry key.
func (s *Store) Merge(key Key, trees ...NodeID) NodeID {
	var alts []NodeID
	seen := make(map[NodeID]struct{}, len(trees))
	add := func(id NodeID) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		alts = append(alts, id)
	}
	for _, id := range trees {
		n := s.Node(id)
		if n == nil {
			panic(fmt.Sprintf("forest: merge of unknown node %d", id))
		}
		if n.Key != key {
			panic(fmt.Sprintf("forest: merge key mismatch: %s vs %s", n.Key, key))
		}
		if n.Kind == KindRule {
			add(id)
			continue
		}
		for _, alt := range n.Children {
			add(alt)
		}
	}
	switch len(alts) {
	case 0:
		return s.Leaf(key)
	case 1:
		return alts[0]
	}
	slices.SortFunc(alts, func(a, b NodeID) int {
		da, db := s.digest(a), s.digest(b)
		return bytes.Compare(da[:], db[:])
	})
	return s.intern(Node{Kind: KindForest, Key: key, Children: alts})
}

// Tree returns a handle for id.
func (s *Store) Tree(id NodeID) Tree {
	if s.Node(id) == nil {
		return Tree{}
	}
	return Tree{store: s, id: id}
}
