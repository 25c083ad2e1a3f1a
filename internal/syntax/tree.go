// Package syntax turns parse forests into user-facing syntax trees:
// auxiliary symbols disappear, flat symbols become leaves, and ambiguity
// is exposed as alternative cases of a node.
package syntax

import (
	"fmt"
	"strings"

	"attrparse/internal/diag"
	"attrparse/internal/grammar"
	"attrparse/internal/term"
)

// Tree is a syntax tree node. A node with Alternatives is ambiguous: it
// stands for itself and each alternative, all sharing the same symbol,
// span and attributes.
type Tree struct {
	Symbol grammar.SymbolName
	Start  int
	End    int
	In     term.Value
	Out    term.Value
	// Rule is the deriving rule, NoRuleID for leaves.
	Rule         grammar.RuleID
	Children     []*Tree
	Alternatives []*Tree
}

// IsLeaf reports whether t has no derivation.
func (t *Tree) IsLeaf() bool { return t.Rule == grammar.NoRuleID }

// Len returns the length of the covered span.
func (t *Tree) Len() int { return t.End - t.Start }

// Cases returns t without its alternatives followed by each alternative.
func (t *Tree) Cases() []*Tree {
	first := *t
	first.Alternatives = nil
	cases := make([]*Tree, 0, 1+len(t.Alternatives))
	cases = append(cases, &first)
	return append(cases, t.Alternatives...)
}

// Case returns the i-th case, 0 being t itself.
func (t *Tree) Case(i int) *Tree {
	if i == 0 {
		first := *t
		first.Alternatives = nil
		return &first
	}
	return t.Alternatives[i-1]
}

// IsAmbiguous reports whether t or any descendant has alternatives.
func (t *Tree) IsAmbiguous() bool {
	if len(t.Alternatives) > 0 {
		return true
	}
	for _, ch := range t.Children {
		if ch.IsAmbiguous() {
			return true
		}
	}
	return false
}

// Equal reports structural equality including alternatives.
func (t *Tree) Equal(o *Tree) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Symbol != o.Symbol || t.Start != o.Start || t.End != o.End ||
		t.In != o.In || t.Out != o.Out || t.Rule != o.Rule ||
		len(t.Children) != len(o.Children) || len(t.Alternatives) != len(o.Alternatives) {
		return false
	}
	for i := range t.Children {
		if !t.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	for i := range t.Alternatives {
		if !t.Alternatives[i].Equal(o.Alternatives[i]) {
			return false
		}
	}
	return true
}

// String renders t on one line: Sym(child child), with ambiguous nodes as
// {case | case}.
func (t *Tree) String() string {
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t *Tree) write(sb *strings.Builder) {
	if len(t.Alternatives) > 0 {
		sb.WriteByte('{')
		for i, c := range t.Cases() {
			if i > 0 {
				sb.WriteString(" | ")
			}
			c.write(sb)
		}
		sb.WriteByte('}')
		return
	}
	sb.WriteString(string(t.Symbol))
	if t.IsLeaf() {
		if t.Out.Sort() != term.Unit {
			sb.WriteByte('=')
			sb.WriteString(t.Out.String())
		}
		return
	}
	sb.WriteByte('(')
	for i, ch := range t.Children {
		if i > 0 {
			sb.WriteByte(' ')
		}
		ch.write(sb)
	}
	sb.WriteByte(')')
}

// ConversionError reports a forest that cannot be represented as a syntax
// tree.
type ConversionError struct {
	Code   diag.Code
	Symbol grammar.SymbolName
	Start  int
	End    int
	Msg    string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s: %s[%d:%d]: %s", e.Code.ID(), e.Symbol, e.Start, e.End, e.Msg)
}
