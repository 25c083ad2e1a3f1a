package term

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"
)

// ID references a hash-consed term inside a Store.
type ID uint32

// NoID is the invalid term reference.
const NoID ID = 0

// IsValid reports whether id references a term.
func (id ID) IsValid() bool { return id != NoID }

// Kind discriminates stored nodes.
type Kind uint8

const (
	KindVar Kind = iota + 1
	KindConst
	KindApp
)

// Node is the stored form of a term. Args reference other nodes of the same
// store.
type Node struct {
	Kind  Kind
	Op    Op
	Var   VarName
	Value Value
	Args  []ID
}

type nodeKey struct {
	kind  Kind
	op    Op
	name  VarName
	value Value
	args  string
}

// Store interns terms so that structurally equal terms share one ID.
// A Store is not safe for concurrent mutation.
type Store struct {
	nodes []Node
	index map[nodeKey]ID
}

// NewStore creates an empty term store.
func NewStore() *Store {
	return &Store{
		nodes: make([]Node, 1, 64),
		index: make(map[nodeKey]ID, 64),
	}
}

// Len returns the number of interned nodes.
func (s *Store) Len() int { return len(s.nodes) - 1 }

// Node returns the node for id.
func (s *Store) Node(id ID) *Node {
	if !id.IsValid() || int(id) >= len(s.nodes) {
		return nil
	}
	return &s.nodes[id]
}

func (s *Store) intern(n Node) ID {
	key := nodeKey{kind: n.Kind, op: n.Op, name: n.Var, value: n.Value}
	if len(n.Args) > 0 {
		buf := make([]byte, 4*len(n.Args))
		for i, a := range n.Args {
			binary.LittleEndian.PutUint32(buf[4*i:], uint32(a))
		}
		key.args = string(buf)
	}
	if id, ok := s.index[key]; ok {
		return id
	}
	if len(n.Args) > 0 {
		n.Args = append([]ID(nil), n.Args...)
	}
	raw, err := safecast.Conv[uint32](len(s.nodes))
	if err != nil {
		panic(fmt.Errorf("term store overflow: %w", err))
	}
	id := ID(raw)
	s.nodes = append(s.nodes, n)
	s.index[key] = id
	return id
}

// MakeVar interns a variable reference.
func (s *Store) MakeVar(name VarName) ID { return s.intern(Node{Kind: KindVar, Var: name}) }

// MakeConst interns a literal.
func (s *Store) MakeConst(v Value) ID { return s.intern(Node{Kind: KindConst, Value: v}) }

// MakeApp interns an application over already interned arguments.
func (s *Store) MakeApp(op Op, args ...ID) ID {
	return s.intern(Node{Kind: KindApp, Op: op, Args: args})
}

// Intern stores t and returns its ID.
func (s *Store) Intern(t Term) ID {
	switch t := t.(type) {
	case Var:
		return s.MakeVar(t.Name)
	case Const:
		return s.MakeConst(t.Value)
	case App:
		args := make([]ID, len(t.Args))
		for i, a := range t.Args {
			args[i] = s.Intern(a)
		}
		return s.MakeApp(t.Op, args...)
	case nil:
		panic("term: Intern(nil)")
	default:
		panic(fmt.Sprintf("term: unknown term type %T", t))
	}
}

// Term rebuilds the tree form of id.
func (s *Store) Term(id ID) Term {
	n := s.Node(id)
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindVar:
		return Var{Name: n.Var}
	case KindConst:
		return Const{Value: n.Value}
	}
	args := make([]Term, len(n.Args))
	for i, a := range n.Args {
		args[i] = s.Term(a)
	}
	return App{Op: n.Op, Args: args}
}

// String renders id.
func (s *Store) String(id ID) string {
	t := s.Term(id)
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// Folder describes a bottom-up computation over terms.
type Folder[R any] struct {
	Var   func(name VarName) R
	Const func(v Value) R
	App   func(op Op, args []R) R
}

// Fold evaluates f bottom-up over id. Shared subterms are computed once;
// memo may be nil or carried across calls on the same store.
func Fold[R any](s *Store, id ID, f Folder[R], memo map[ID]R) R {
	if memo == nil {
		memo = make(map[ID]R)
	}
	return foldRec(s, id, &f, memo)
}

func foldRec[R any](s *Store, id ID, f *Folder[R], memo map[ID]R) R {
	if r, ok := memo[id]; ok {
		return r
	}
	n := s.Node(id)
	if n == nil {
		panic(fmt.Sprintf("term: fold over invalid id %d", id))
	}
	var r R
	switch n.Kind {
	case KindVar:
		r = f.Var(n.Var)
	case KindConst:
		r = f.Const(n.Value)
	default:
		args := make([]R, len(n.Args))
		for i, a := range n.Args {
			args[i] = foldRec(s, a, f, memo)
		}
		r = f.App(n.Op, args)
	}
	memo[id] = r
	return r
}

// Copy re-interns id from src into s, renaming variables through rename.
// A nil rename keeps variables unchanged.
func (s *Store) Copy(src *Store, id ID, rename func(VarName) ID) ID {
	return Fold(src, id, Folder[ID]{
		Var: func(name VarName) ID {
			if rename != nil {
				return rename(name)
			}
			return s.MakeVar(name)
		},
		Const: s.MakeConst,
		App:   func(op Op, args []ID) ID { return s.MakeApp(op, args...) },
	}, nil)
}
