// Package grammars holds the built-in grammars the CLI and the batch runner
// can parse with. Every grammar here reads runes and lexes its Char
// terminal with parser.CharLexer.
package grammars

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"attrparse/internal/diag"
	"attrparse/internal/grammar"
	"attrparse/internal/parser"
	"attrparse/internal/source"
)

// Entry describes a built-in grammar.
type Entry struct {
	Name    string
	Summary string
	// Start is the default start symbol; Starts lists every symbol that
	// makes sense as one.
	Start  grammar.SymbolName
	Starts []grammar.SymbolName
	Build  func(ctx context.Context) (*grammar.Grammar, error)
}

var registry = []Entry{
	{
		Name:    "calc",
		Summary: "integer arithmetic with + and *",
		Start:   "Expr",
		Starts:  []grammar.SymbolName{"Expr", "Sum", "Product", "Num"},
		Build:   func(ctx context.Context) (*grammar.Grammar, error) { return Calculator(ctx, false) },
	},
	{
		Name:    "calc-ambiguous",
		Summary: "arithmetic where a number may split into shorter numbers",
		Start:   "Expr",
		Starts:  []grammar.SymbolName{"Expr", "Sum", "Product", "Num"},
		Build:   func(ctx context.Context) (*grammar.Grammar, error) { return Calculator(ctx, true) },
	},
	{
		Name:    "regex",
		Summary: "X = A* B C?, Y = ((A|B) C)+, Z = B*",
		Start:   "X",
		Starts:  []grammar.SymbolName{"X", "Y", "Z"},
		Build:   Regex,
	},
	{
		Name:    "simple",
		Summary: "a single A",
		Start:   "A",
		Starts:  []grammar.SymbolName{"A"},
		Build:   Simple,
	},
	{
		Name:    "lookahead",
		Summary: "identifiers that are not keywords, keywords peeked ahead",
		Start:   "Ident",
		Starts:  []grammar.SymbolName{"Ident", "Keyword", "Peek"},
		Build:   Lookahead,
	},
	{
		Name:    "greedy",
		Summary: "keyword or identifier, the keyword wins",
		Start:   "Token",
		Starts:  []grammar.SymbolName{"Token"},
		Build:   func(ctx context.Context) (*grammar.Grammar, error) { return Tokens(ctx, false) },
	},
	{
		Name:    "longest",
		Summary: "keyword or identifier, the longest wins",
		Start:   "Token",
		Starts:  []grammar.SymbolName{"Token"},
		Build:   func(ctx context.Context) (*grammar.Grammar, error) { return Tokens(ctx, true) },
	},
}

// Names lists the built-in grammars in a stable order.
func Names() []string {
	names := make([]string, len(registry))
	for i, e := range registry {
		names[i] = e.Name
	}
	return names
}

// All returns every entry.
func All() []Entry { return slices.Clone(registry) }

// Lookup finds a built-in grammar by name.
func Lookup(name string) (Entry, error) {
	for _, e := range registry {
		if e.Name == name {
			return e, nil
		}
	}
	return Entry{}, &grammar.ConfigError{
		Code:    diag.LexUnknownGrammar,
		Subject: name,
		Pos:     source.Caller(0),
		Message: fmt.Sprintf("unknown grammar, expected one of %s", strings.Join(Names(), ", ")),
	}
}

// Lexers returns the lexer set shared by the built-in grammars.
func Lexers() *parser.Lexers[rune] {
	return parser.NewLexers[rune]().MustAdd(grammar.CharName, parser.CharLexer{})
}

// NewParser builds the named grammar and a rune parser for it.
func NewParser(ctx context.Context, name string, opts ...parser.Option) (*parser.Parser[rune], Entry, error) {
	e, err := Lookup(name)
	if err != nil {
		return nil, Entry{}, err
	}
	g, err := e.Build(ctx)
	if err != nil {
		return nil, e, fmt.Errorf("grammar %s: %w", name, err)
	}
	p, err := parser.New(ctx, g, Lexers(), opts...)
	if err != nil {
		return nil, e, fmt.Errorf("grammar %s: %w", name, err)
	}
	return p, e, nil
}

// rules collects AddRule errors so grammar definitions read as a list.
type rules struct {
	ctx  context.Context
	b    *grammar.Builder
	errs []error
}

func (r *rules) add(head grammar.Symbol, body ...grammar.Element) {
	if _, err := r.b.AddRule(head, body...); err != nil {
		r.errs = append(r.errs, err)
	}
}

func (r *rules) seal() (*grammar.Grammar, error) {
	if len(r.errs) > 0 {
		return nil, r.errs[0]
	}
	return r.b.SealContext(r.ctx)
}
