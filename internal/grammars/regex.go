package grammars

import (
	"context"

	"attrparse/internal/grammar"
	"attrparse/internal/term"
)

// Regex builds three expressions over the letter terminals A, B and C:
//
//	X = A* B C?
//	Y = ((A|B) C)+
//	Z = B*
func Regex(ctx context.Context) (*grammar.Grammar, error) {
	b := grammar.NewBuilder()
	r := &rules{ctx: ctx, b: b}

	letter := func(name grammar.SymbolName, c rune) grammar.Symbol {
		t := b.Terminal(name, term.Unit, term.Unit)
		ch := b.Char()
		r.add(t, ch, grammar.Guard(term.Eq(ch.Out(), term.CharTerm(c))))
		return t
	}
	a, bb, c := letter("A", 'A'), letter("B", 'B'), letter("C", 'C')

	x := b.Nonterminal("X", term.Unit, term.Unit)
	y := b.Nonterminal("Y", term.Unit, term.Unit)
	z := b.Nonterminal("Z", term.Unit, term.Unit)
	r.add(x, b.Seq(b.Repeat(a), bb, b.Maybe(c)))
	r.add(y, b.Repeat1(b.Seq(b.Or(a, bb), c)))
	r.add(z, b.Repeat(bb))
	return r.seal()
}

// Simple is a single rule A -> Char accepting the letter A.
func Simple(ctx context.Context) (*grammar.Grammar, error) {
	b := grammar.NewBuilder()
	r := &rules{ctx: ctx, b: b}
	a := b.Nonterminal("A", term.Unit, term.Unit)
	ch := b.Char()
	r.add(a, ch, grammar.Guard(term.Eq(ch.Out(), term.CharTerm('A'))))
	return r.seal()
}
