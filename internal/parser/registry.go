package parser

import (
	"errors"
	"fmt"

	"attrparse/internal/diag"
	"attrparse/internal/grammar"
	"attrparse/internal/source"
)

// Lexers maps terminals to the lexers that recognize them.
type Lexers[C any] struct {
	byName map[grammar.SymbolName]Lexer[C]
	order  []grammar.SymbolName
	pos    map[grammar.SymbolName]source.Pos
}

func NewLexers[C any]() *Lexers[C] {
	return &Lexers[C]{
		byName: make(map[grammar.SymbolName]Lexer[C]),
		pos:    make(map[grammar.SymbolName]source.Pos),
	}
}

// Add registers lx for the terminal name. A terminal has at most one lexer.
func (l *Lexers[C]) Add(name grammar.SymbolName, lx Lexer[C]) error {
	pos := source.Caller(0, pkgPath)
	if _, dup := l.byName[name]; dup {
		return &grammar.ConfigError{
			Code:    diag.LexDuplicate,
			Subject: string(name),
			Pos:     pos,
			Message: fmt.Sprintf("lexer for %s already registered at %s", name, l.pos[name]),
		}
	}
	l.byName[name] = lx
	l.order = append(l.order, name)
	l.pos[name] = pos
	return nil
}

// MustAdd is Add that panics on error.
func (l *Lexers[C]) MustAdd(name grammar.SymbolName, lx Lexer[C]) *Lexers[C] {
	if err := l.Add(name, lx); err != nil {
		panic(err)
	}
	return l
}

// Lookup returns the lexer for name.
func (l *Lexers[C]) Lookup(name grammar.SymbolName) (Lexer[C], bool) {
	lx, ok := l.byName[name]
	return lx, ok
}

// Names lists terminals with lexers in registration order.
func (l *Lexers[C]) Names() []grammar.SymbolName {
	return append([]grammar.SymbolName(nil), l.order...)
}

// validate checks every lexer against g and every terminal for a way to
// be recognized.
func (l *Lexers[C]) validate(g *grammar.Grammar) error {
	var errs []error
	fail := func(code diag.Code, name grammar.SymbolName, format string, args ...any) {
		errs = append(errs, &grammar.ConfigError{
			Code:    code,
			Subject: string(name),
			Pos:     l.pos[name],
			Message: fmt.Sprintf(format, args...),
		})
	}
	for _, name := range l.order {
		lx := l.byName[name]
		info, ok := g.Symbol(name)
		switch {
		case !ok:
			fail(diag.LexUnknownSymbol, name, "lexer for unknown symbol %s", name)
		case !info.Kind.Terminal:
			fail(diag.LexNotTerminal, name, "lexer for non-terminal %s", name)
		case isLookahead(g, name):
			fail(diag.LexLookahead, name, "lookahead terminal %s cannot have a lexer", name)
		case lx.InSort() != info.Kind.In || lx.OutSort() != info.Kind.Out:
			fail(diag.LexSortMismatch, name, "lexer sorts %s -> %s do not match terminal %s",
				lx.InSort(), lx.OutSort(), info.Kind)
		}
	}
	for _, info := range g.Symbols() {
		if !info.Kind.Terminal || isLookahead(g, info.Name) {
			continue
		}
		if _, ok := l.byName[info.Name]; ok || len(g.RulesOf(info.Name)) > 0 {
			continue
		}
		errs = append(errs, &grammar.ConfigError{
			Code:    diag.LexMissing,
			Subject: string(info.Name),
			Pos:     info.Pos,
			Message: fmt.Sprintf("terminal %s has neither a lexer nor rules", info.Name),
		})
	}
	return errors.Join(errs...)
}

func isLookahead(g *grammar.Grammar, name grammar.SymbolName) bool {
	_, ok := g.Lookahead(name)
	return ok
}
