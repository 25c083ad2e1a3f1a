package priority

import (
	"context"
	"errors"
	"strings"
	"testing"

	"attrparse/internal/compile"
	"attrparse/internal/diag"
	"attrparse/internal/earley"
	"attrparse/internal/grammar"
	"attrparse/internal/term"
)

type setup struct {
	b       *grammar.Builder
	a, c, d grammar.Symbol
}

func newSetup() *setup {
	b := grammar.NewBuilder()
	return &setup{
		b: b,
		a: b.Terminal("A", term.Unit, term.Int),
		c: b.Terminal("C", term.Unit, term.Int),
		d: b.Terminal("D", term.Unit, term.Int),
	}
}

func (s *setup) resolver(t *testing.T) (*Resolver, *compile.Table) {
	t.Helper()
	g, err := s.b.Seal()
	if err != nil {
		t.Fatal(err)
	}
	table, err := compile.CompileGrammar(context.Background(), g, 1)
	if err != nil {
		t.Fatal(err)
	}
	r, err := New(table)
	if err != nil {
		t.Fatal(err)
	}
	return r, table
}

func key(t *testing.T, table *compile.Table, name grammar.SymbolName) earley.TerminalKey {
	t.Helper()
	sym, ok := table.Symbol(name)
	if !ok {
		t.Fatalf("no symbol %s", name)
	}
	return earley.TerminalKey{Terminal: sym.Index, In: term.UnitValue()}
}

func tok(length int, out int64) earley.Token {
	return earley.Token{Length: length, Out: term.IntValue(out)}
}

func TestUnconditionalClosure(t *testing.T) {
	s := newSetup()
	mustPriority(t, s.b, s.a, s.c, nil)
	mustPriority(t, s.b, s.c, s.d, nil)
	r, table := s.resolver(t)

	var derived int
	for _, e := range r.Edges() {
		if e.Derived {
			derived++
		}
	}
	if derived != 1 {
		t.Fatalf("expected A < D to be derived, got %d derived edges", derived)
	}

	ka, kd := key(t, table, "A"), key(t, table, "D")
	batch := earley.Tokens{ka: {tok(1, 1)}, kd: {tok(1, 2)}}
	got := r.Select(batch, earley.Tokens{})
	if len(got[ka]) != 0 || len(got[kd]) != 1 {
		t.Fatalf("A must lose to D through C: %v", got)
	}
}

func TestConditionalPriority(t *testing.T) {
	s := newSetup()
	mustPriority(t, s.b, s.a, s.c, grammar.IfShorter())
	mustPriority(t, s.b, s.d, s.a, term.Gt(grammar.Higher.Out(), term.IntTerm(3)))
	r, table := s.resolver(t)
	ka, kc, kd := key(t, table, "A"), key(t, table, "C"), key(t, table, "D")

	tests := []struct {
		name  string
		batch earley.Tokens
		sel   earley.Tokens
		keepA int
		keepD int
	}{
		{"shorter loses", earley.Tokens{ka: {tok(1, 0)}, kc: {tok(2, 0)}}, earley.Tokens{}, 0, 0},
		{"longer survives", earley.Tokens{ka: {tok(2, 0)}, kc: {tok(1, 0)}}, earley.Tokens{}, 1, 0},
		{"already selected competitor", earley.Tokens{ka: {tok(1, 0)}}, earley.Tokens{kc: {tok(3, 0)}}, 0, 0},
		{"condition on higher output", earley.Tokens{ka: {tok(1, 5)}, kd: {tok(1, 0)}}, earley.Tokens{}, 1, 0},
		{"condition not met", earley.Tokens{ka: {tok(1, 2)}, kd: {tok(1, 0)}}, earley.Tokens{}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Select(tt.batch, tt.sel)
			if len(got[ka]) != tt.keepA || len(got[kd]) != tt.keepD {
				t.Fatalf("kept A=%d D=%d, want A=%d D=%d", len(got[ka]), len(got[kd]), tt.keepA, tt.keepD)
			}
			for k, toks := range tt.sel {
				for _, tk := range toks {
					if !got.Contains(k, tk) {
						t.Fatal("selection must keep already selected tokens")
					}
				}
			}
		})
	}
}

func TestSelectIdempotent(t *testing.T) {
	s := newSetup()
	mustPriority(t, s.b, s.a, s.c, grammar.IfShorter())
	r, table := s.resolver(t)
	ka, kc := key(t, table, "A"), key(t, table, "C")
	batch := earley.Tokens{ka: {tok(1, 0), tok(3, 0)}, kc: {tok(2, 0)}}

	once := r.Select(batch, earley.Tokens{})
	twice := r.Select(batch, once)
	if once.Count() != 2 || twice.Count() != once.Count() {
		t.Fatalf("once=%v twice=%v", once, twice)
	}

	reversed := earley.Tokens{kc: {tok(2, 0)}, ka: {tok(3, 0), tok(1, 0)}}
	if got := r.Select(reversed, earley.Tokens{}); got.Count() != once.Count() || !got.Contains(ka, tok(3, 0)) {
		t.Fatalf("selection depends on order: %v", got)
	}
}

func TestSelectMonotone(t *testing.T) {
	s := newSetup()
	mustPriority(t, s.b, s.a, s.c, grammar.IfShorter())
	r, table := s.resolver(t)
	ka, kc, kd := key(t, table, "A"), key(t, table, "C"), key(t, table, "D")
	loser := tok(1, 0)

	// extras unrelated to the A < C edge, or with A longer than C
	extras := []struct {
		k   earley.TerminalKey
		tok earley.Token
	}{
		{kd, tok(1, 0)},
		{kd, tok(5, 7)},
		{ka, tok(4, 0)},
		{kc, tok(3, 1)},
		{ka, tok(9, 2)},
	}
	tests := []struct {
		name  string
		batch earley.Tokens
		sel   earley.Tokens
	}{
		{"discarder in batch", earley.Tokens{ka: {loser}, kc: {tok(2, 0)}}, earley.Tokens{}},
		{"discarder already selected", earley.Tokens{ka: {loser}}, earley.Tokens{kc: {tok(2, 0)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := tt.batch.Clone()
			for i := 0; ; i++ {
				if got := r.Select(batch, tt.sel); got.Contains(ka, loser) {
					t.Fatalf("после %d лишних токенов A[1] снова выбран: %v", i, got)
				}
				if i == len(extras) {
					break
				}
				batch.Add(extras[i].k, extras[i].tok)
			}
		})
	}
}

func TestUnconditionalCycle(t *testing.T) {
	s := newSetup()
	mustPriority(t, s.b, s.a, s.c, nil)
	mustPriority(t, s.b, s.c, s.d, grammar.Always())
	mustPriority(t, s.b, s.d, s.a, nil)
	g := s.b.MustSeal()
	table, err := compile.CompileGrammar(context.Background(), g, 1)
	if err != nil {
		t.Fatal(err)
	}
	_, err = New(table)
	var ce *grammar.ConfigError
	if !errors.As(err, &ce) || ce.Code != diag.PriCycle {
		t.Fatalf("expected PRI cycle error, got %v", err)
	}
	if !strings.Contains(ce.Message, "A < C < D < A") {
		t.Errorf("cycle path missing: %s", ce.Message)
	}
}

func TestConditionalCycleAllowed(t *testing.T) {
	s := newSetup()
	mustPriority(t, s.b, s.a, s.c, grammar.IfShorter())
	mustPriority(t, s.b, s.c, s.a, grammar.IfShorter())
	r, table := s.resolver(t)
	ka, kc := key(t, table, "A"), key(t, table, "C")
	got := r.Select(earley.Tokens{ka: {tok(2, 0)}, kc: {tok(2, 0)}}, earley.Tokens{})
	if got.Count() != 2 {
		t.Fatalf("equal lengths keep both: %v", got)
	}
}

func mustPriority(t *testing.T, b *grammar.Builder, lower, higher grammar.Symbol, cond term.Term) {
	t.Helper()
	if _, err := b.AddPriority(lower, higher, cond); err != nil {
		t.Fatal(err)
	}
}
