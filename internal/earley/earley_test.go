package earley

import (
	"testing"

	"attrparse/internal/forest"
	"attrparse/internal/grammar"
	"attrparse/internal/term"
	"attrparse/internal/trace"
)

var (
	tA = Symbol{Terminal: true, Index: 0}
	tB = Symbol{Terminal: true, Index: 1}
	tE = Symbol{Terminal: true, Index: 2}
	nS = Symbol{Index: 0}
	nE = Symbol{Index: 1}
)

type runeLexer struct {
	chars map[int]rune
	zero  map[int]bool
}

func (l runeLexer) Lex(run *Run[rune], pos int, k TerminalKey) []Token {
	if l.zero[k.Terminal] {
		return []Token{{Out: term.UnitValue()}}
	}
	c, ok := run.Input().At(pos)
	if !ok || c != l.chars[k.Terminal] {
		return nil
	}
	return []Token{{Length: 1, Out: term.UnitValue()}}
}

var lexAB = runeLexer{chars: map[int]rune{0: 'a', 1: 'b'}, zero: map[int]bool{2: true}}

type testCons struct {
	store *forest.Store
	flat  map[Symbol]bool
}

func newCons() *testCons { return &testCons{store: forest.NewStore(), flat: map[Symbol]bool{}} }

func (c *testCons) key(k ItemKey) forest.Key {
	return forest.Key{Symbol: grammar.SymbolName(k.Symbol.String()), Start: k.Start, End: k.End, In: k.In, Out: k.Out}
}

func (c *testCons) Retains(sym Symbol) bool      { return !sym.Terminal && !c.flat[sym] }
func (c *testCons) Leaf(k ItemKey) forest.NodeID { return c.store.Leaf(c.key(k)) }
func (c *testCons) Rule(rule int, k ItemKey, children []forest.NodeID) forest.NodeID {
	return c.store.Rule(grammar.RuleID(rule+1), c.key(k), children)
}

func (c *testCons) Terminal(k ItemKey, result forest.NodeID) forest.NodeID {
	if result.IsValid() {
		return result
	}
	return c.store.Leaf(c.key(k))
}

func (c *testCons) Merge(k ItemKey, results []forest.NodeID) forest.NodeID {
	return c.store.Merge(c.key(k), results...)
}

func unitRule(lhs Symbol, rhs ...Symbol) Rule {
	return Rule{LHS: lhs, RHS: rhs, Eval: func(int, []term.Value) (term.Value, bool) {
		return term.UnitValue(), true
	}}
}

func parseString(g *Grammar[rune], cons Constructor, start Symbol, s string) Outcome {
	return g.NewRun(SliceInput[rune]([]rune(s)), cons).Parse(start, 0, term.UnitValue())
}

func TestCountingAttributes(t *testing.T) {
	// S -> a S  (out = S.out + 1) | a (out = 1)
	rules := []Rule{
		{LHS: nS, RHS: []Symbol{tA, nS}, Eval: func(k int, env []term.Value) (term.Value, bool) {
			if k < 2 {
				return term.UnitValue(), true
			}
			return term.IntValue(env[4].Int() + 1), true
		}},
		{LHS: nS, RHS: []Symbol{tA}, Eval: func(k int, env []term.Value) (term.Value, bool) {
			if k < 1 {
				return term.UnitValue(), true
			}
			return term.IntValue(1), true
		}},
	}
	g := New[rune](rules, lexAB, nil)
	out := parseString(g, newCons(), nS, "aaab")
	if !out.Matched || out.Length != 3 {
		t.Fatalf("expected a match of length 3, got %+v", out)
	}
	outs := out.Outs()
	if len(outs) != 1 || outs[0] != term.IntValue(3) {
		t.Fatalf("unexpected outputs %v", outs)
	}
}

func TestAmbiguousForest(t *testing.T) {
	rules := []Rule{unitRule(nE, nE, nE), unitRule(nE, tA)}
	g := New[rune](rules, lexAB, nil)
	cons := newCons()
	out := parseString(g, cons, nE, "aaa")
	if !out.Matched || out.Length != 3 {
		t.Fatalf("expected full match, got %+v", out)
	}
	tree := cons.store.Tree(out.Results[term.UnitValue()])
	if !tree.IsAmbiguous() {
		t.Fatal("E -> E E over aaa must be ambiguous")
	}
	if got := tree.CountDerivations(0); got != 2 {
		t.Fatalf("expected 2 derivations, got %d", got)
	}
}

func TestFlatSymbolsYieldLeaves(t *testing.T) {
	rules := []Rule{unitRule(nE, nE, nE), unitRule(nE, tA)}
	g := New[rune](rules, lexAB, nil)
	cons := newCons()
	cons.flat[nE] = true
	out := parseString(g, cons, nE, "aaa")
	if !cons.store.Tree(out.Results[term.UnitValue()]).IsLeaf() {
		t.Fatal("flat symbol must be represented by a leaf")
	}
}

func TestCyclicDerivationIsCut(t *testing.T) {
	rules := []Rule{unitRule(nS, nS), unitRule(nS, tA)}
	g := New[rune](rules, lexAB, nil)
	cons := newCons()
	out := parseString(g, cons, nS, "a")
	if !out.Matched {
		t.Fatalf("expected a match, got %+v", out)
	}
	tree := cons.store.Tree(out.Results[term.UnitValue()])
	if !tree.IsValid() || tree.Kind() != forest.KindRule {
		t.Fatalf("expected the acyclic derivation only, got %s", tree)
	}
}

func TestZeroLengthTokens(t *testing.T) {
	rules := []Rule{unitRule(nS, tE, tA, tE)}
	g := New[rune](rules, lexAB, nil)
	out := parseString(g, newCons(), nS, "a")
	if !out.Matched || out.Length != 1 {
		t.Fatalf("zero-length tokens must not consume input: %+v", out)
	}
}

func TestFailurePosition(t *testing.T) {
	rules := []Rule{unitRule(nS, tA, tA, tB)}
	g := New[rune](rules, lexAB, nil)
	out := parseString(g, newCons(), nS, "aaa")
	if out.Matched {
		t.Fatal("unexpected match")
	}
	if out.Position != 2 {
		t.Fatalf("failure position = %d, want 2", out.Position)
	}
}

func TestPositionSpans(t *testing.T) {
	rules := []Rule{unitRule(nS, tA, tA, tB)}
	g := New[rune](rules, lexAB, nil)
	for _, level := range []trace.Level{trace.LevelDetail, trace.LevelDebug} {
		ring := trace.NewRingTracer(64, level)
		run := g.NewRun(SliceInput[rune]([]rune("aab")), newCons()).Traced(ring, 7)
		if out := run.Parse(nS, 0, term.UnitValue()); !out.Matched {
			t.Fatalf("%s: expected a match", level)
		}
		var ends []trace.Event
		for _, ev := range ring.Snapshot() {
			if ev.Kind == trace.KindSpanEnd {
				ends = append(ends, ev)
			}
		}
		if level < trace.LevelDebug {
			if len(ends) != 0 {
				t.Errorf("%s: position spans leaked: %v", level, ends)
			}
			continue
		}
		if len(ends) != run.Stats().Positions || len(ends) != 4 {
			t.Fatalf("ожидали 4 позиции, получили %d (stats %d)", len(ends), run.Stats().Positions)
		}
		for i, ev := range ends {
			if ev.Scope != trace.ScopePosition || ev.Parent != 7 || ev.Extra["items"] == "" {
				t.Errorf("span %d: %+v", i, ev)
			}
		}
		if ends[3].Name != "pos:3" || ends[0].Extra["start"] != "n0" {
			t.Errorf("unexpected spans %+v", ends)
		}
	}
}

func TestGuardRejectsDerivation(t *testing.T) {
	rules := []Rule{{LHS: nS, RHS: []Symbol{tA}, Eval: func(k int, env []term.Value) (term.Value, bool) {
		return term.UnitValue(), k == 0
	}}}
	g := New[rune](rules, lexAB, nil)
	if out := parseString(g, newCons(), nS, "a"); out.Matched {
		t.Fatalf("failed output evaluation must reject the rule: %+v", out)
	}
}

type nestedLexer struct{ inner runeLexer }

// Terminal 1 is lexed by a nested parse of S.
func (l nestedLexer) Lex(run *Run[rune], pos int, k TerminalKey) []Token {
	if k.Terminal != 1 {
		return l.inner.Lex(run, pos, k)
	}
	out := run.Parse(nS, pos, k.In)
	if !out.Matched {
		return nil
	}
	var toks []Token
	for _, v := range out.Outs() {
		toks = append(toks, Token{Length: out.Length, Out: v, Result: out.Results[v]})
	}
	return toks
}

func TestNestedParsesShareRun(t *testing.T) {
	rules := []Rule{
		unitRule(nS, tA, tA),
		unitRule(nE, tB, tB),
	}
	g := New[rune](rules, nestedLexer{inner: lexAB}, nil)
	cons := newCons()
	run := g.NewRun(SliceInput[rune]([]rune("aaaa")), cons)
	out := run.Parse(nE, 0, term.UnitValue())
	if !out.Matched || out.Length != 4 {
		t.Fatalf("expected 4 characters through nested parses, got %+v", out)
	}
	if got := run.Stats().Parses; got != 3 {
		t.Fatalf("expected 3 parses (1 outer, 2 nested), got %d", got)
	}
	again := run.Parse(nS, 0, term.UnitValue())
	if run.Stats().Parses != 3 || again.Length != 2 {
		t.Fatal("nested outcome must be memoized")
	}
}

type countingSelector struct{ calls int }

func (c *countingSelector) Select(batch, selected Tokens) Tokens {
	c.calls++
	return SelectAll{}.Select(batch, selected)
}

func TestSelectorSeesEveryBatch(t *testing.T) {
	rules := []Rule{unitRule(nS, tA, tB)}
	sel := &countingSelector{}
	g := New[rune](rules, lexAB, sel)
	if out := parseString(g, newCons(), nS, "ab"); !out.Matched {
		t.Fatal("expected match")
	}
	if sel.calls != 2 {
		t.Fatalf("expected one selector call per position, got %d", sel.calls)
	}
}
