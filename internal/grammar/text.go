package grammar

import (
	"attrparse/internal/term"
)

// CharName is the terminal text grammars lex one character at a time.
const CharName SymbolName = "Char"

// Char declares the UNIT -> CHAR terminal fed by a character lexer.
func (b *Builder) Char() Symbol {
	return b.Terminal(CharName, term.Unit, term.Char)
}

// Literal is a body matching the characters of s, one anonymous Char
// occurrence per character.
func (b *Builder) Literal(s string) Body {
	char := b.Char()
	body := make(Body, 0, 2*len(s))
	for _, r := range s {
		occ := char.At(b.anonIndex())
		body = append(body, occ, Guard(term.Eq(occ.Out(), term.CharTerm(r))))
	}
	return body
}

// Const declares a fresh UNIT -> UNIT terminal matching exactly s.
func (b *Builder) Const(s string) Symbol {
	c := b.FreshTerminal(SymbolName("__const_"+s), term.Unit, term.Unit)
	_, _ = b.AddRule(c, b.Literal(s))
	return c
}

// CharIn is a body matching one character in [lo, hi].
func (b *Builder) CharIn(lo, hi rune) Body {
	occ := b.Char().At(b.anonIndex())
	return Body{occ, Guard(term.InRange(occ.Out(), term.CharTerm(lo), term.CharTerm(hi)))}
}
