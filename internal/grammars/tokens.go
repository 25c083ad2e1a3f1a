package grammars

import (
	"context"

	"attrparse/internal/grammar"
	"attrparse/internal/term"
)

// letters declares Letter (one of a-z) and Word (one or more letters).
func letters(b *grammar.Builder, r *rules) (letter, word grammar.Symbol) {
	letter = b.Terminal("Letter", term.Unit, term.Unit)
	r.add(letter, b.CharIn('a', 'z'))
	word = b.Nonterminal("Word", term.Unit, term.Unit)
	r.add(word, b.Repeat1(letter))
	return letter, word
}

// Lookahead builds
//
//	Keyword = "if" | "else"
//	Ident   = !Keyword Word
//	Peek    = &Keyword Word
//
// Ident rejects every word starting with a keyword; Peek accepts only
// those.
func Lookahead(ctx context.Context) (*grammar.Grammar, error) {
	b := grammar.NewBuilder()
	r := &rules{ctx: ctx, b: b}
	_, word := letters(b, r)

	keyword := b.Nonterminal("Keyword", term.Unit, term.Unit)
	r.add(keyword, b.Const("if"))
	r.add(keyword, b.Const("else"))

	ident := b.Nonterminal("Ident", term.Unit, term.Unit)
	r.add(ident, b.NotNext(keyword), word)
	peek := b.Nonterminal("Peek", term.Unit, term.Unit)
	r.add(peek, b.AndNext(keyword), word)
	return r.seal()
}

// Tokens builds Token as a choice between the keyword "if" and a Word.
// With longest set the longer alternative wins, otherwise the keyword
// wins whenever it matches.
func Tokens(ctx context.Context, longest bool) (*grammar.Grammar, error) {
	b := grammar.NewBuilder()
	r := &rules{ctx: ctx, b: b}
	_, word := letters(b, r)

	kw := b.Const("if")
	var choice grammar.Symbol
	if longest {
		choice = b.OrLongest(kw, word)
	} else {
		choice = b.OrGreedy(kw, word)
	}
	token := b.Nonterminal("Token", term.Unit, term.Unit)
	r.add(token, choice)
	return r.seal()
}
