package compile

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"attrparse/internal/earley"
	"attrparse/internal/grammar"
	"attrparse/internal/trace"
)

// Table is a sealed grammar lowered for the recognizer: dense symbol
// indices plus compiled rules in grammar order.
type Table struct {
	Grammar      *grammar.Grammar
	Terminals    []grammar.SymbolName
	Nonterminals []grammar.SymbolName
	Rules        []*Rule

	symbols map[grammar.SymbolName]earley.Symbol
	byID    map[grammar.RuleID]int
}

// Symbol returns the kernel symbol for name.
func (t *Table) Symbol(name grammar.SymbolName) (earley.Symbol, bool) {
	s, ok := t.symbols[name]
	return s, ok
}

// Name returns the grammar symbol behind a kernel symbol.
func (t *Table) Name(s earley.Symbol) grammar.SymbolName {
	if s.Terminal {
		return t.Terminals[s.Index]
	}
	return t.Nonterminals[s.Index]
}

// RuleIndex maps a grammar rule id to its kernel index.
func (t *Table) RuleIndex(id grammar.RuleID) (int, bool) {
	i, ok := t.byID[id]
	return i, ok
}

// Kernel returns the recognizer rules, indexed like Rules.
func (t *Table) Kernel() []earley.Rule {
	out := make([]earley.Rule, len(t.Rules))
	for i, r := range t.Rules {
		out[i] = r.Kernel()
	}
	return out
}

// CompileGrammar lowers every rule of g using up to jobs goroutines
// (GOMAXPROCS when jobs <= 0). The tracer in ctx receives one span per
// rule at detail level.
func CompileGrammar(ctx context.Context, g *grammar.Grammar, jobs int) (*Table, error) {
	t := &Table{
		Grammar: g,
		symbols: make(map[grammar.SymbolName]earley.Symbol),
		byID:    make(map[grammar.RuleID]int),
	}
	for _, info := range g.Symbols() {
		if info.Kind.Terminal {
			t.symbols[info.Name] = earley.Symbol{Terminal: true, Index: len(t.Terminals)}
			t.Terminals = append(t.Terminals, info.Name)
		} else {
			t.symbols[info.Name] = earley.Symbol{Index: len(t.Nonterminals)}
			t.Nonterminals = append(t.Nonterminals, info.Name)
		}
	}

	rules := g.Rules()
	t.Rules = make([]*Rule, len(rules))
	for i, r := range rules {
		t.byID[r.ID] = i
	}
	if len(rules) == 0 {
		return t, nil
	}

	span, ctx := trace.Start(ctx, trace.ScopePhase, "compile")
	defer span.End("")
	span.WithExtra("rules", strconv.Itoa(len(rules)))

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	tracer := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx)

	// each goroutine writes its own index
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(min(jobs, len(rules)))
	for i, rule := range rules {
		eg.Go(func() error {
			select {
			case <-egctx.Done():
				return egctx.Err()
			default:
			}
			rs := trace.Begin(tracer, trace.ScopeRule, fmt.Sprintf("rule:%s#%d", rule.Head, rule.ID), parent)
			compiled, err := CompileRule(rule, t.Symbol)
			if err != nil {
				rs.End("error")
				return err
			}
			rs.End(compiled.String())
			t.Rules[i] = compiled
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return t, nil
}
