package earley

import (
	"slices"

	"attrparse/internal/term"
)

type envID int

type envKey struct {
	parent envID
	root   bool
	in     term.Value
	out    term.Value
}

// envTable interns attribute environments. An environment at dot k is its
// parent at dot k-1 extended by the (in, out) pair of symbol k, so items
// sharing a prefix share storage for the key.
type envTable struct {
	index map[envKey]envID
	vals  [][]term.Value
}

func newEnvTable() *envTable {
	return &envTable{index: make(map[envKey]envID), vals: make([][]term.Value, 1)}
}

func (t *envTable) intern(k envKey, vals func() []term.Value) envID {
	if id, ok := t.index[k]; ok {
		return id
	}
	id := envID(len(t.vals))
	t.vals = append(t.vals, vals())
	t.index[k] = id
	return id
}

func (t *envTable) root(in term.Value) envID {
	return t.intern(envKey{root: true, in: in}, func() []term.Value { return []term.Value{in} })
}

func (t *envTable) extend(parent envID, in, out term.Value) envID {
	return t.intern(envKey{parent: parent, in: in, out: out}, func() []term.Value {
		prev := t.vals[parent]
		vals := make([]term.Value, len(prev), len(prev)+2)
		copy(vals, prev)
		return append(vals, in, out)
	})
}

func (t *envTable) values(id envID) []term.Value { return t.vals[id] }

// item is a dotted rule with its origin and bound attributes.
type item struct {
	rule   int
	dot    int
	origin int
	env    envID
}

type itemRef struct {
	pos int
	idx int
}

// child describes a recognized body symbol; its end is implied by where
// the advanced item lives.
type child struct {
	sym    Symbol
	start  int
	in     term.Value
	out    term.Value
	result forestRef
}

// link records how an item was reached: the item one dot earlier (in the
// set at child.start) and the symbol that was recognized.
type link struct {
	prev  int
	child child
}

type waitKey struct {
	sym Symbol
	in  term.Value
}

type complKey struct {
	sym    Symbol
	origin int
	in     term.Value
	out    term.Value
}

// set is the chart column of one input position.
type set struct {
	pos   int
	items []item
	index map[item]int
	links [][]link
	queue int

	waiters   map[waitKey][]int
	predicted map[waitKey]bool
	derivs    map[complKey][]int
	empties   map[waitKey][]term.Value

	lexed    map[TerminalKey]bool
	pending  []TerminalKey
	selected Tokens
}

func newSet(pos int) *set {
	return &set{
		pos:       pos,
		index:     make(map[item]int),
		waiters:   make(map[waitKey][]int),
		predicted: make(map[waitKey]bool),
		derivs:    make(map[complKey][]int),
		empties:   make(map[waitKey][]term.Value),
		lexed:     make(map[TerminalKey]bool),
		selected:  make(Tokens),
	}
}

// add inserts it, recording ln as one more way to reach it. It reports
// whether the item is new.
func (s *set) add(it item, ln *link) bool {
	idx, ok := s.index[it]
	if !ok {
		idx = len(s.items)
		s.items = append(s.items, it)
		s.links = append(s.links, nil)
		s.index[it] = idx
	}
	if ln != nil && !slices.Contains(s.links[idx], *ln) {
		s.links[idx] = append(s.links[idx], *ln)
	}
	return !ok
}
