// Package parser connects a sealed grammar to the recognition kernel: it
// compiles the grammar, checks the registered lexers, and turns kernel
// outcomes into parse forests.
package parser

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"attrparse/internal/compile"
	"attrparse/internal/diag"
	"attrparse/internal/earley"
	"attrparse/internal/forest"
	"attrparse/internal/grammar"
	"attrparse/internal/observ"
	"attrparse/internal/priority"
	"attrparse/internal/source"
	"attrparse/internal/term"
	"attrparse/internal/trace"
)

const pkgPath = "attrparse/internal/parser"

type options struct {
	jobs  int
	timer *observ.Timer
}

// Option configures New.
type Option func(*options)

// WithJobs bounds the number of rules compiled concurrently. Zero means
// GOMAXPROCS.
func WithJobs(n int) Option { return func(o *options) { o.jobs = n } }

// WithTimer records compile and parse phases in t.
func WithTimer(t *observ.Timer) Option { return func(o *options) { o.timer = t } }

type lookMode int8

const (
	lookNone lookMode = iota
	lookPositive
	lookNegative
)

// Parser parses inputs of characters C with one grammar. A Parser is
// immutable after New and safe for concurrent use when its lexers are.
type Parser[C any] struct {
	grammar  *grammar.Grammar
	table    *compile.Table
	resolver *priority.Resolver
	kernel   *earley.Grammar[C]
	opts     options

	lexers []Lexer[C] // by terminal index
	look   []lookMode
}

// New compiles g and validates lexers against it. Tracing is taken from
// ctx. Configuration problems are reported as *grammar.ConfigError values
// joined with errors.Join.
func New[C any](ctx context.Context, g *grammar.Grammar, lexers *Lexers[C], opts ...Option) (*Parser[C], error) {
	p := &Parser[C]{grammar: g}
	for _, opt := range opts {
		opt(&p.opts)
	}
	if lexers == nil {
		lexers = NewLexers[C]()
	}
	if err := lexers.validate(g); err != nil {
		return nil, err
	}

	done := p.opts.timer.Track("compile")
	table, err := compile.CompileGrammar(ctx, g, p.opts.jobs)
	if err != nil {
		done("error")
		return nil, err
	}
	resolver, err := priority.New(table)
	if err != nil {
		done("error")
		return nil, err
	}
	done(fmt.Sprintf("%d rules", len(table.Rules)))

	p.table = table
	p.resolver = resolver
	p.lexers = make([]Lexer[C], len(table.Terminals))
	p.look = make([]lookMode, len(table.Terminals))
	for i, name := range table.Terminals {
		if lx, ok := lexers.Lookup(name); ok {
			p.lexers[i] = lx
		}
		if positive, ok := g.Lookahead(name); ok {
			p.look[i] = lookNegative
			if positive {
				p.look[i] = lookPositive
			}
		}
	}
	p.kernel = earley.New[C](table.Kernel(), dispatch[C]{p}, resolver)
	return p, nil
}

// Grammar returns the grammar the parser was built from.
func (p *Parser[C]) Grammar() *grammar.Grammar { return p.grammar }

// Table returns the compiled grammar.
func (p *Parser[C]) Table() *compile.Table { return p.table }

// Result is the outcome of Parse.
type Result struct {
	Matched bool
	// Position is the furthest position reached when the parse failed and
	// the end of the match when it succeeded.
	Position int
	Length   int
	Trees    map[term.Value]forest.Tree
	Store    *forest.Store
	Stats    earley.Stats
}

// Outs returns the output values of the match in a deterministic order.
func (r *Result) Outs() []term.Value {
	outs := make([]term.Value, 0, len(r.Trees))
	for v := range r.Trees {
		outs = append(outs, v)
	}
	slices.SortFunc(outs, func(a, b term.Value) int {
		switch {
		case term.Less(a, b):
			return -1
		case term.Less(b, a):
			return 1
		}
		return 0
	})
	return outs
}

// Roots returns the trees of Outs in the same order.
func (r *Result) Roots() []forest.Tree {
	outs := r.Outs()
	roots := make([]forest.Tree, len(outs))
	for i, v := range outs {
		roots[i] = r.Trees[v]
	}
	return roots
}

// Parse recognizes start, with input attribute param, in input beginning
// at pos and returns the longest match.
func (p *Parser[C]) Parse(ctx context.Context, input earley.Input[C], pos int, start grammar.SymbolName, param term.Value) (*Result, error) {
	sym, ok := p.table.Symbol(start)
	if !ok {
		return nil, &grammar.ConfigError{
			Code:    diag.GrmUnknownSymbol,
			Subject: string(start),
			Pos:     source.Caller(0, pkgPath),
			Message: fmt.Sprintf("unknown start symbol %s", start),
		}
	}
	info, _ := p.grammar.Symbol(start)
	if param.Sort() != info.Kind.In {
		return nil, &grammar.ConfigError{
			Code:    diag.GrmAssignSortMismatch,
			Subject: string(start),
			Pos:     source.Caller(0, pkgPath),
			Message: fmt.Sprintf("parameter has sort %s, %s expects %s", param.Sort(), start, info.Kind.In),
		}
	}
	if !validStart(input, pos) {
		return nil, &grammar.ConfigError{
			Code:    diag.LexBadPosition,
			Subject: string(start),
			Pos:     source.Caller(0, pkgPath),
			Message: fmt.Sprintf("start position %d is outside the input", pos),
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	span, _ := trace.Start(ctx, trace.ScopePhase, "parse:"+string(start))
	began := time.Now()
	store := forest.NewStore()
	run := p.kernel.NewRun(input, newConstructor(p.table, store)).Traced(trace.FromContext(ctx), span.ID())
	out := run.Parse(sym, pos, param)
	p.opts.timer.Add("parse", time.Since(began))

	res := &Result{
		Matched:  out.Matched,
		Position: out.Position,
		Length:   out.Length,
		Trees:    make(map[term.Value]forest.Tree, len(out.Results)),
		Store:    store,
		Stats:    run.Stats(),
	}
	for v, id := range out.Results {
		if id.IsValid() {
			res.Trees[v] = store.Tree(id)
		}
	}
	span.WithExtra("items", strconv.Itoa(res.Stats.Items)).
		WithExtra("tokens", strconv.Itoa(res.Stats.Tokens)).
		WithExtra("nodes", strconv.Itoa(store.Len()))
	if res.Matched {
		span.End(fmt.Sprintf("matched %d", res.Length))
	} else {
		span.End(fmt.Sprintf("failed at %d", res.Position))
	}
	return res, nil
}

// validStart reports whether pos lies within input or right after its end.
func validStart[C any](input earley.Input[C], pos int) bool {
	if pos < 0 {
		return false
	}
	if pos == 0 {
		return true
	}
	_, ok := input.At(pos - 1)
	return ok
}

// ParseString parses s from its start with a UNIT parameter.
func ParseString(ctx context.Context, p *Parser[rune], s string, start grammar.SymbolName) (*Result, error) {
	return p.Parse(ctx, earley.SliceInput[rune]([]rune(s)), 0, start, term.UnitValue())
}

// ParseBytes parses b from its start with a UNIT parameter.
func ParseBytes(ctx context.Context, p *Parser[byte], b []byte, start grammar.SymbolName) (*Result, error) {
	return p.Parse(ctx, earley.SliceInput[byte](b), 0, start, term.UnitValue())
}

// dispatch lexes kernel terminal keys: registered lexers first, then
// lookaheads, then rule-defined terminals through nested parses.
type dispatch[C any] struct {
	p *Parser[C]
}

func (d dispatch[C]) Lex(run *earley.Run[C], pos int, key earley.TerminalKey) []earley.Token {
	p := d.p
	if lx := p.lexers[key.Terminal]; lx != nil {
		matches := lx.Lex(run.Input(), pos, key.In)
		toks := make([]earley.Token, 0, len(matches))
		for _, m := range matches {
			toks = append(toks, earley.Token{Length: m.Length, Out: m.Out})
		}
		return toks
	}

	sym := earley.Symbol{Terminal: true, Index: key.Terminal}
	out := run.Parse(sym, pos, key.In)
	switch p.look[key.Terminal] {
	case lookPositive:
		if !out.Matched {
			return nil
		}
		toks := make([]earley.Token, 0, len(out.Results))
		for _, v := range out.Outs() {
			toks = append(toks, earley.Token{Out: v})
		}
		return toks
	case lookNegative:
		if out.Matched {
			return nil
		}
		return []earley.Token{{Out: term.UnitValue()}}
	}

	if !out.Matched {
		return nil
	}
	toks := make([]earley.Token, 0, len(out.Results))
	for _, v := range out.Outs() {
		toks = append(toks, earley.Token{Length: out.Length, Out: v, Result: out.Results[v]})
	}
	return toks
}
