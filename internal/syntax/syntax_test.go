package syntax

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"attrparse/internal/diag"
	"attrparse/internal/forest"
	"attrparse/internal/grammar"
	"attrparse/internal/term"
	"attrparse/internal/trace"
)

// S -> P H X      rule s
// S -> X X X X    rule s2
// P -> X X        rule p   (P auxiliary, deep)
// P -> Y          rule py
// H -> X          rule h   (H auxiliary, flat)
type fixture struct {
	g               *grammar.Grammar
	s, s2, p, py, h grammar.RuleID
	store           *forest.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := grammar.NewBuilder()
	x := b.Terminal("X", term.Unit, term.Unit)
	y := b.Terminal("Y", term.Unit, term.Unit)
	s := b.Nonterminal("S", term.Unit, term.Unit)
	p := b.Nonterminal("P", term.Unit, term.Unit, grammar.WithAuxiliary())
	h := b.Nonterminal("H", term.Unit, term.Unit, grammar.WithAuxiliary(), grammar.WithFlat())
	f := &fixture{store: forest.NewStore()}
	var err error
	add := func(head grammar.Symbol, body ...grammar.Element) grammar.RuleID {
		if err != nil {
			return 0
		}
		var id grammar.RuleID
		id, err = b.AddRule(head, body...)
		return id
	}
	f.s = add(s, p, h, x)
	f.s2 = add(s, x.At(1), x.At(2), x.At(3), x.At(4))
	f.p = add(p, x.At(1), x.At(2))
	f.py = add(p, y)
	f.h = add(h, x)
	if err != nil {
		t.Fatal(err)
	}
	f.g = b.MustSeal()
	return f
}

func key(sym grammar.SymbolName, start, end int) forest.Key {
	return forest.Key{Symbol: sym, Start: start, End: end, In: term.UnitValue(), Out: term.UnitValue()}
}

func (f *fixture) x(start int) forest.NodeID { return f.store.Leaf(key("X", start, start+1)) }

// pPair is P[0:2] derived as X X.
func (f *fixture) pPair() forest.NodeID {
	return f.store.Rule(f.p, key("P", 0, 2), []forest.NodeID{f.x(0), f.x(1)})
}

// pAmbiguous is P[0:2] derived both as X X and as Y.
func (f *fixture) pAmbiguous() forest.NodeID {
	py := f.store.Rule(f.py, key("P", 0, 2), []forest.NodeID{f.store.Leaf(key("Y", 0, 2))})
	return f.store.Merge(key("P", 0, 2), f.pPair(), py)
}

func (f *fixture) sWith(p forest.NodeID) forest.NodeID {
	return f.store.Rule(f.s, key("S", 0, 4), []forest.NodeID{p, f.store.Leaf(key("H", 2, 3)), f.x(3)})
}

func (f *fixture) sFlat() forest.NodeID {
	return f.store.Rule(f.s2, key("S", 0, 4), []forest.NodeID{f.x(0), f.x(1), f.x(2), f.x(3)})
}

func build(t *testing.T, f *fixture, id forest.NodeID) *Tree {
	t.Helper()
	tree, err := Build(f.store.Tree(id), f.g)
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

func TestAuxiliaryElision(t *testing.T) {
	f := newFixture(t)
	tree := build(t, f, f.sWith(f.pPair()))
	if got := tree.String(); got != "S(X X X)" {
		t.Fatalf("auxiliary symbols must be spliced or dropped: %s", got)
	}
	if tree.Children[2].Start != 3 {
		t.Errorf("last child must be X[3:4], got start %d", tree.Children[2].Start)
	}
	if tree.IsAmbiguous() || tree.Count(0) != 1 {
		t.Error("tree is unambiguous")
	}
}

func TestForestCases(t *testing.T) {
	f := newFixture(t)
	root := f.store.Merge(key("S", 0, 4), f.sWith(f.pPair()), f.sFlat())
	tree := build(t, f, root)

	if !tree.IsAmbiguous() || len(tree.Cases()) != 2 {
		t.Fatalf("expected two cases, got %s", tree)
	}
	var rules []grammar.RuleID
	for _, c := range tree.Cases() {
		if len(c.Alternatives) != 0 {
			t.Fatal("a case carries no alternatives")
		}
		rules = append(rules, c.Rule)
	}
	if rules[0] == rules[1] {
		t.Errorf("cases must come from different rules: %v", rules)
	}
	if !tree.Case(1).Equal(tree.Alternatives[0]) {
		t.Error("Case(1) is the first alternative")
	}

	again := build(t, f, root)
	if !tree.Equal(again) {
		t.Error("Build must be deterministic")
	}

	exploded := tree.Explode()
	if len(exploded) != 2 || tree.Count(0) != 2 {
		t.Fatalf("explode: %d trees, count %d", len(exploded), tree.Count(0))
	}
	for _, e := range exploded {
		if e.IsAmbiguous() {
			t.Errorf("exploded tree is ambiguous: %s", e)
		}
	}
}

func TestAmbiguousAuxiliarySplice(t *testing.T) {
	f := newFixture(t)
	tree := build(t, f, f.sWith(f.pAmbiguous()))
	if len(tree.Cases()) != 2 {
		t.Fatalf("ambiguous auxiliary child must make S ambiguous: %s", tree)
	}
	shapes := map[string]bool{}
	for _, c := range tree.Cases() {
		shapes[c.String()] = true
	}
	if !shapes["S(X X X)"] || !shapes["S(Y X)"] {
		t.Fatalf("unexpected cases %v", shapes)
	}
}

func TestAmbiguousAuxiliaryUnderForest(t *testing.T) {
	f := newFixture(t)
	root := f.store.Merge(key("S", 0, 4), f.sWith(f.pAmbiguous()), f.sFlat())
	tree := build(t, f, root)

	// the two cases of S(P H X) join S(X X X X) in one flat list
	if len(tree.Cases()) != 3 {
		t.Fatalf("ожидали три случая, получили %s", tree)
	}
	shapes := map[string]bool{}
	for _, c := range tree.Cases() {
		if len(c.Alternatives) != 0 {
			t.Fatalf("case %s carries alternatives", c)
		}
		shapes[c.String()] = true
	}
	for _, want := range []string{"S(X X X)", "S(Y X)", "S(X X X X)"} {
		if !shapes[want] {
			t.Errorf("missing case %s in %v", want, shapes)
		}
	}
	if n := len(tree.Explode()); n != 3 || tree.Count(0) != 3 {
		t.Errorf("explode %d trees, count %d", n, tree.Count(0))
	}
}

func TestNestedCaseRejected(t *testing.T) {
	f := newFixture(t)
	b := &builder{g: f.g, memo: make(map[forest.NodeID]*Tree)}
	inner := &Tree{Symbol: "S", End: 4, Rule: f.s2, Alternatives: []*Tree{{Symbol: "S", End: 4, Rule: f.s2}}}
	flat := &Tree{Symbol: "S", End: 4, Rule: f.s}
	_, err := b.join(f.store.Tree(f.sFlat()), []*Tree{flat, inner})
	var ce *ConversionError
	if !errors.As(err, &ce) || ce.Code != diag.SynNestedAlternatives {
		t.Fatalf("ожидали ошибку вложенных альтернатив, получили %v", err)
	}
	if ce.Symbol != "S" || ce.End != 4 {
		t.Errorf("error must name S[0:4], got %s", ce)
	}
}

func TestBuildContextSpan(t *testing.T) {
	f := newFixture(t)
	ring := trace.NewRingTracer(16, trace.LevelPhase)
	ctx := trace.WithTracer(context.Background(), ring)
	root := f.store.Merge(key("S", 0, 4), f.sWith(f.pPair()), f.sFlat())
	if _, err := BuildContext(ctx, f.store.Tree(root), f.g); err != nil {
		t.Fatal(err)
	}
	if _, err := BuildContext(ctx, f.store.Tree(f.store.Leaf(key("Z", 0, 1))), f.g); err == nil {
		t.Fatal("unknown symbol must fail")
	}
	evs := ring.Snapshot()
	if len(evs) != 4 {
		t.Fatalf("expected two spans, got %+v", evs)
	}
	if evs[1].Name != "build:S" || evs[1].Extra["cases"] != "2" {
		t.Errorf("build span %+v", evs[1])
	}
	if evs[3].Name != "build:Z" || evs[3].Detail != "failed" {
		t.Errorf("failed build span %+v", evs[3])
	}
}

func TestUnknownSymbol(t *testing.T) {
	f := newFixture(t)
	stray := f.store.Leaf(key("Z", 0, 1))
	root := f.store.Rule(f.s2, key("S", 0, 1), []forest.NodeID{stray})
	for _, id := range []forest.NodeID{stray, root} {
		_, err := Build(f.store.Tree(id), f.g)
		var ce *ConversionError
		if !errors.As(err, &ce) || ce.Code != diag.SynUnknownSymbol || ce.Symbol != "Z" {
			t.Fatalf("expected unknown symbol error for Z, got %v", err)
		}
	}
}

func TestUnknownRule(t *testing.T) {
	f := newFixture(t)
	bad := f.store.Rule(grammar.RuleID(99), key("S", 0, 1), []forest.NodeID{f.x(0)})
	_, err := Build(f.store.Tree(bad), f.g)
	var ce *ConversionError
	if !errors.As(err, &ce) || ce.Code != diag.SynUnknownRule {
		t.Fatalf("expected unknown rule error, got %v", err)
	}
}

func TestExplodeDeduplicates(t *testing.T) {
	x := &Tree{Symbol: "X", End: 1, In: term.UnitValue(), Out: term.UnitValue()}
	twin := *x
	s := &Tree{Symbol: "S", End: 1, Rule: 1, In: term.UnitValue(), Out: term.UnitValue(), Children: []*Tree{x}}
	dup := *s
	dup.Children = []*Tree{&twin}
	s.Alternatives = []*Tree{&dup}

	if got := s.Explode(); len(got) != 1 {
		t.Fatalf("identical cases must collapse, got %d", len(got))
	}
	if s.Count(0) != 2 {
		t.Errorf("Count is taken before deduplication")
	}
	if s.Count(1) != 1 {
		t.Errorf("Count must saturate at the limit")
	}
}

func TestExplodeKeepsDistinctSpans(t *testing.T) {
	unit := term.UnitValue()
	a := func(start, end int) *Tree {
		return &Tree{Symbol: "A", Start: start, End: end, In: unit, Out: unit}
	}
	left := &Tree{Symbol: "S", End: 3, Rule: 1, In: unit, Out: unit, Children: []*Tree{a(0, 1), a(1, 3)}}
	right := &Tree{Symbol: "S", End: 3, Rule: 1, In: unit, Out: unit, Children: []*Tree{a(0, 2), a(2, 3)}}
	if left.String() != right.String() || left.Equal(right) {
		t.Fatal("cases must print alike but differ structurally")
	}
	s := *left
	s.Alternatives = []*Tree{right}

	exploded := s.Explode()
	if len(exploded) != s.Count(0) {
		t.Fatalf("explode %d trees, count %d", len(exploded), s.Count(0))
	}
	if !exploded[0].Equal(left) || !exploded[1].Equal(right) {
		t.Errorf("unexpected trees %v", exploded)
	}
}

func TestDump(t *testing.T) {
	f := newFixture(t)
	tree := build(t, f, f.sWith(f.pAmbiguous()))
	var buf bytes.Buffer
	if err := tree.Dump(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"S [0:4] ambiguous, 2 cases", "case 1", "S#1 [0:4]", "    X [3:4]"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump misses %q:\n%s", want, out)
		}
	}
}

func TestClip(t *testing.T) {
	long := strings.Repeat("界", 40)
	got := clip(long)
	if !strings.HasSuffix(got, "…") || len([]rune(got)) > valueWidth {
		t.Fatalf("clip(%d runes) = %q", len([]rune(long)), got)
	}
	if clip("short") != "short" {
		t.Error("short values stay intact")
	}
}
