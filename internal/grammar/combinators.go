package grammar

import (
	"attrparse/internal/diag"
	"attrparse/internal/source"
	"attrparse/internal/term"
)

// The combinators below build fresh UNIT -> UNIT nonterminals over
// UNIT -> UNIT symbols, the way regular expressions compose.

func (b *Builder) requireUnit(op string, syms []Symbol) bool {
	ok := true
	for _, s := range syms {
		k := s.Kind()
		if s.IsZero() || k.In != term.Unit || k.Out != term.Unit {
			_ = b.fail(configErrorf(diag.GrmAssignSortMismatch, s.String(), source.Caller(0, pkgPath),
				"%s needs UNIT -> UNIT symbols, got %s", op, k))
			ok = false
		}
	}
	return ok
}

// Repeat matches zero or more sym.
func (b *Builder) Repeat(sym Symbol) Symbol {
	if !b.requireUnit("Repeat", []Symbol{sym}) {
		return Symbol{}
	}
	star := b.FreshNonterminal(sym.Name()+"*", term.Unit, term.Unit)
	_, _ = b.AddRule(star)
	_, _ = b.AddRule(star, star.At(1), sym)
	return star
}

// Repeat1 matches one or more sym.
func (b *Builder) Repeat1(sym Symbol) Symbol {
	if !b.requireUnit("Repeat1", []Symbol{sym}) {
		return Symbol{}
	}
	plus := b.FreshNonterminal(sym.Name()+"+", term.Unit, term.Unit)
	_, _ = b.AddRule(plus, sym)
	_, _ = b.AddRule(plus, plus.At(1), sym)
	return plus
}

// Maybe matches sym or nothing.
func (b *Builder) Maybe(sym Symbol) Symbol {
	if !b.requireUnit("Maybe", []Symbol{sym}) {
		return Symbol{}
	}
	maybe := b.FreshNonterminal(sym.Name()+"?", term.Unit, term.Unit)
	_, _ = b.AddRule(maybe)
	_, _ = b.AddRule(maybe, sym)
	return maybe
}

// Or matches any one of syms; overlapping alternatives stay ambiguous.
func (b *Builder) Or(syms ...Symbol) Symbol {
	if !b.requireUnit("Or", syms) {
		return Symbol{}
	}
	or := b.FreshNonterminal("OR", term.Unit, term.Unit)
	for _, s := range syms {
		_, _ = b.AddRule(or, s)
	}
	return or
}

// Seq matches syms one after another.
func (b *Builder) Seq(syms ...Symbol) Symbol {
	if !b.requireUnit("Seq", syms) {
		return Symbol{}
	}
	seq := b.FreshNonterminal("SEQ", term.Unit, term.Unit)
	body := make([]Element, 0, len(syms))
	for i, s := range syms {
		body = append(body, s.At(i+1))
	}
	_, _ = b.AddRule(seq, body...)
	return seq
}

// OrGreedy is Or where an earlier alternative beats every later one that
// matches at the same position. Each alternative is wrapped in a terminal so
// the priorities can act on it.
func (b *Builder) OrGreedy(syms ...Symbol) Symbol {
	or, wrapped := b.wrapAlternatives("GREEDY", syms)
	for i := range wrapped {
		for j := i + 1; j < len(wrapped); j++ {
			_, _ = b.AddPriority(wrapped[j], wrapped[i], nil)
		}
	}
	return or
}

// OrLongest is Or where the longest matching alternatives win.
func (b *Builder) OrLongest(syms ...Symbol) Symbol {
	or, wrapped := b.wrapAlternatives("LONGEST", syms)
	for i := range wrapped {
		for j := range wrapped {
			if i != j {
				_, _ = b.AddPriority(wrapped[i], wrapped[j], IfShorter())
			}
		}
	}
	return or
}

func (b *Builder) wrapAlternatives(base SymbolName, syms []Symbol) (Symbol, []Symbol) {
	if !b.requireUnit(string(base), syms) {
		return Symbol{}, nil
	}
	or := b.FreshNonterminal(base, term.Unit, term.Unit)
	wrapped := make([]Symbol, 0, len(syms))
	for _, s := range syms {
		t := b.FreshTerminal(base+"."+s.Name(), term.Unit, term.Unit)
		_, _ = b.AddRule(t, s)
		_, _ = b.AddRule(or, t)
		wrapped = append(wrapped, t)
	}
	return or, wrapped
}
