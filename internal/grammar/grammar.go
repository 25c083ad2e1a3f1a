package grammar

import (
	"attrparse/internal/term"
)

// Grammar is a sealed, immutable grammar. It is safe for concurrent use.
// Rules and priorities are shared with the builder and must not be modified.
type Grammar struct {
	lang       *term.Language
	symbols    map[SymbolName]SymbolInfo
	order      []SymbolName
	rules      []*Rule
	byHead     map[SymbolName][]RuleID
	priorities []*Priority
	lookaheads map[SymbolName]bool
}

func (g *Grammar) Language() *term.Language { return g.lang }

// Symbol returns the declaration of name.
func (g *Grammar) Symbol(name SymbolName) (SymbolInfo, bool) {
	info, ok := g.symbols[name]
	return info, ok
}

// Handle returns a body-element handle for name.
func (g *Grammar) Handle(name SymbolName) (Symbol, bool) {
	info, ok := g.symbols[name]
	if !ok {
		return Symbol{}, false
	}
	return Symbol{name: IndexedSymbolName{Name: name}, kind: info.Kind}, true
}

// Symbols lists declarations in declaration order.
func (g *Grammar) Symbols() []SymbolInfo {
	out := make([]SymbolInfo, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.symbols[name])
	}
	return out
}

// Properties returns the properties of name; ok is false for unknown symbols.
func (g *Grammar) Properties(name SymbolName) (Properties, bool) {
	info, ok := g.symbols[name]
	return info.Props, ok
}

func (g *Grammar) IsDeep(name SymbolName) bool {
	info, ok := g.symbols[name]
	return ok && info.Props.Structure == Deep
}

func (g *Grammar) IsFlat(name SymbolName) bool {
	info, ok := g.symbols[name]
	return ok && info.Props.Structure == Flat
}

// Rule returns the rule with the given id.
func (g *Grammar) Rule(id RuleID) (*Rule, bool) {
	if !id.IsValid() || int(id) > len(g.rules) {
		return nil, false
	}
	return g.rules[id-1], true
}

// Rules lists all rules ordered by id.
func (g *Grammar) Rules() []*Rule { return append([]*Rule(nil), g.rules...) }

// RulesOf lists the rules of head in the order they were added.
func (g *Grammar) RulesOf(head SymbolName) []*Rule {
	ids := g.byHead[head]
	out := make([]*Rule, len(ids))
	for i, id := range ids {
		out[i] = g.rules[id-1]
	}
	return out
}

func (g *Grammar) Priorities() []*Priority { return append([]*Priority(nil), g.priorities...) }

// Lookahead reports whether name is a lookahead terminal and its mode.
func (g *Grammar) Lookahead(name SymbolName) (positive, ok bool) {
	positive, ok = g.lookaheads[name]
	return positive, ok
}

// Lookaheads lists the lookahead terminals in lexical order.
func (g *Grammar) Lookaheads() []SymbolName { return sortedNames(g.lookaheads) }
