package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"attrparse/internal/diag"
	"attrparse/internal/earley"
	"attrparse/internal/grammar"
	"attrparse/internal/observ"
	"attrparse/internal/term"
	"attrparse/internal/trace"
)

func runeLexers() *Lexers[rune] {
	return NewLexers[rune]().MustAdd(grammar.CharName, CharLexer{})
}

func build(t *testing.T, b *grammar.Builder, lexers *Lexers[rune]) *Parser[rune] {
	t.Helper()
	g, err := b.Seal()
	if err != nil {
		t.Fatal(err)
	}
	p, err := New(context.Background(), g, lexers)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func parse(t *testing.T, p *Parser[rune], s string, start grammar.SymbolName) *Result {
	t.Helper()
	res, err := ParseString(context.Background(), p, s, start)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func configCode(err error) diag.Code {
	var ce *grammar.ConfigError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return diag.UnknownCode
}

func TestLexerValidation(t *testing.T) {
	tests := []struct {
		name string
		add  func(b *grammar.Builder, l *Lexers[rune])
		want diag.Code
	}{
		{
			name: "unknown symbol",
			add:  func(_ *grammar.Builder, l *Lexers[rune]) { l.MustAdd("Nope", CharLexer{}) },
			want: diag.LexUnknownSymbol,
		},
		{
			name: "non-terminal",
			add: func(b *grammar.Builder, l *Lexers[rune]) {
				b.Nonterminal("N", term.Unit, term.Char)
				l.MustAdd("N", CharLexer{})
			},
			want: diag.LexNotTerminal,
		},
		{
			name: "sort mismatch",
			add: func(b *grammar.Builder, l *Lexers[rune]) {
				b.Terminal("Digit", term.Unit, term.Int)
				l.MustAdd("Digit", CharLexer{})
			},
			want: diag.LexSortMismatch,
		},
		{
			name: "lookahead",
			add: func(b *grammar.Builder, l *Lexers[rune]) {
				la := b.AndNext(b.Const("x"))
				l.MustAdd(la.Name(), LexerFunc[rune](term.Unit, term.Unit, nil))
			},
			want: diag.LexLookahead,
		},
		{
			name: "missing",
			add: func(b *grammar.Builder, _ *Lexers[rune]) {
				b.Terminal("Orphan", term.Unit, term.Unit)
			},
			want: diag.LexMissing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := grammar.NewBuilder()
			b.Char()
			l := runeLexers()
			tt.add(b, l)
			g, err := b.Seal()
			if err != nil {
				t.Fatal(err)
			}
			_, err = New(context.Background(), g, l)
			if got := configCode(err); got != tt.want {
				t.Fatalf("ожидали %s, получили %v", tt.want.ID(), err)
			}
		})
	}
}

func TestDuplicateLexer(t *testing.T) {
	l := runeLexers()
	err := l.Add(grammar.CharName, CharLexer{})
	if configCode(err) != diag.LexDuplicate {
		t.Fatalf("expected duplicate lexer error, got %v", err)
	}
	if len(l.Names()) != 1 {
		t.Fatalf("duplicate must not be registered: %v", l.Names())
	}
}

func TestConstSequence(t *testing.T) {
	b := grammar.NewBuilder()
	s := b.Nonterminal("S", term.Unit, term.Unit)
	if _, err := b.AddRule(s, b.Const("ab"), b.Const("c")); err != nil {
		t.Fatal(err)
	}
	p := build(t, b, runeLexers())

	tests := []struct {
		input   string
		matched bool
		length  int
		pos     int
	}{
		{"abc", true, 3, 3},
		{"abcd", true, 3, 3},
		{"abd", false, 0, 2},
		{"", false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := parse(t, p, tt.input, "S")
			if res.Matched != tt.matched || res.Length != tt.length || res.Position != tt.pos {
				t.Fatalf("got matched=%v len=%d pos=%d", res.Matched, res.Length, res.Position)
			}
			if tt.matched && len(res.Roots()) != 1 {
				t.Fatalf("expected one root, got %d", len(res.Roots()))
			}
		})
	}
}

func TestPositiveLookahead(t *testing.T) {
	b := grammar.NewBuilder()
	s := b.Nonterminal("S", term.Unit, term.Unit)
	la := b.AndNext(b.Const("ab"))
	if _, err := b.AddRule(s, la, b.Literal("a")); err != nil {
		t.Fatal(err)
	}
	p := build(t, b, runeLexers())

	res := parse(t, p, "ab", "S")
	if !res.Matched || res.Length != 1 {
		t.Fatalf("lookahead must consume nothing: %+v", res)
	}
	root := res.Roots()[0]
	first := root.Children()[0]
	if first.Key().Symbol != la.Name() || first.Key().Len() != 0 {
		t.Fatalf("first child must be the zero-length lookahead, got %s", first)
	}
	if parse(t, p, "ac", "S").Matched {
		t.Fatal("lookahead for ab must reject ac")
	}
}

func TestNegativeLookahead(t *testing.T) {
	b := grammar.NewBuilder()
	s := b.Nonterminal("S", term.Unit, term.Char)
	ch := b.Char()
	if _, err := b.AddRule(s, b.NotNext(b.Const("x")), ch, s.SetOut(ch.Out())); err != nil {
		t.Fatal(err)
	}
	p := build(t, b, runeLexers())

	res := parse(t, p, "a", "S")
	if !res.Matched || res.Outs()[0] != term.CharValue('a') {
		t.Fatalf("a must pass: %+v", res)
	}
	if parse(t, p, "x", "S").Matched {
		t.Fatal("x must be rejected")
	}
}

func TestGreedyAlternative(t *testing.T) {
	tests := []struct {
		name   string
		greedy bool
		length int
	}{
		{"plain or takes the longest", false, 2},
		{"greedy prefers the first", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := grammar.NewBuilder()
			a, ab := b.Const("a"), b.Const("ab")
			var or grammar.Symbol
			if tt.greedy {
				or = b.OrGreedy(a, ab)
			} else {
				or = b.Or(a, ab)
			}
			p := build(t, b, runeLexers())
			res := parse(t, p, "ab", or.Name())
			if !res.Matched || res.Length != tt.length {
				t.Fatalf("matched=%v length=%d, want %d", res.Matched, res.Length, tt.length)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	b := grammar.NewBuilder()
	n := b.Nonterminal("N", term.Int, term.Int)
	ch := b.Char()
	if _, err := b.AddRule(n, ch, n.SetOut(n.In())); err != nil {
		t.Fatal(err)
	}
	p := build(t, b, runeLexers())

	if _, err := ParseString(context.Background(), p, "a", "Missing"); configCode(err) != diag.GrmUnknownSymbol {
		t.Errorf("unknown start: %v", err)
	}
	if _, err := ParseString(context.Background(), p, "a", "N"); configCode(err) != diag.GrmAssignSortMismatch {
		t.Errorf("UNIT parameter for INT input: %v", err)
	}
	for _, pos := range []int{-1, 2} {
		_, err := p.Parse(context.Background(), earley.SliceInput[rune]("a"), pos, "N", term.IntValue(7))
		if configCode(err) != diag.LexBadPosition {
			t.Errorf("позиция %d вне ввода: %v", pos, err)
		}
	}
	res, err := p.Parse(context.Background(), earley.SliceInput[rune]("a"), 0, "N", term.IntValue(7))
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Outs(); len(got) != 1 || got[0] != term.IntValue(7) {
		t.Fatalf("parameter must flow to the output: %v", got)
	}
}

func TestParseTracesAndTimes(t *testing.T) {
	b := grammar.NewBuilder()
	s := b.Nonterminal("S", term.Unit, term.Unit)
	if _, err := b.AddRule(s, b.Literal("hi")); err != nil {
		t.Fatal(err)
	}
	g := b.MustSeal()
	ring := trace.NewRingTracer(128, trace.LevelPhase)
	ctx := trace.WithTracer(context.Background(), ring)
	timer := observ.NewTimer()
	p, err := New(ctx, g, runeLexers(), WithTimer(timer), WithJobs(1))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseString(ctx, p, "hi", "S"); err != nil {
		t.Fatal(err)
	}

	var parseSpan bool
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindSpanEnd && ev.Name == "parse:S" {
			parseSpan = ev.Detail == "matched 2" && ev.Extra["items"] != ""
		}
	}
	if !parseSpan {
		t.Error("parse span missing")
	}
	var phases []string
	for _, ph := range timer.Report().Phases {
		phases = append(phases, ph.Name)
	}
	if len(phases) != 2 || phases[0] != "compile" || phases[1] != "parse" {
		t.Errorf("unexpected phases %v", phases)
	}
}

func TestParsePositionSpans(t *testing.T) {
	b := grammar.NewBuilder()
	s := b.Nonterminal("S", term.Unit, term.Unit)
	if _, err := b.AddRule(s, b.Literal("hi")); err != nil {
		t.Fatal(err)
	}
	p := build(t, b, runeLexers())
	ring := trace.NewRingTracer(256, trace.LevelDebug)
	ctx := trace.WithTracer(context.Background(), ring)
	res, err := ParseString(ctx, p, "hi", "S")
	if err != nil || !res.Matched {
		t.Fatalf("parse: %v %v", res, err)
	}

	var parseID uint64
	positions := 0
	for _, ev := range ring.Snapshot() {
		switch {
		case ev.Kind == trace.KindSpanBegin && ev.Name == "parse:S":
			parseID = ev.Span
		case ev.Kind == trace.KindSpanEnd && ev.Scope == trace.ScopePosition:
			positions++
			if ev.Parent != parseID {
				t.Errorf("position span %s is not under the parse span", ev.Name)
			}
		}
	}
	if positions == 0 || positions != res.Stats.Positions {
		t.Errorf("position spans %d, chart positions %d", positions, res.Stats.Positions)
	}
}

func TestByteLexers(t *testing.T) {
	input := earley.SliceInput[byte]("e\u0301x\xff")
	tests := []struct {
		name  string
		lex   Lexer[byte]
		pos   int
		want  term.Value
		width int
	}{
		{"byte", ByteLexer{}, 0, term.IntValue('e'), 1},
		{"utf8 two bytes", UTF8Lexer{}, 1, term.CharValue('\u0301'), 2},
		{"grapheme joins the accent", GraphemeLexer{}, 0, term.StringValue("e\u0301"), 3},
		{"invalid utf8", UTF8Lexer{}, 4, term.Value{}, 0},
		{"grapheme before the input", GraphemeLexer{}, -1, term.Value{}, 0},
		{"grapheme past the input", GraphemeLexer{}, 5, term.Value{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.lex.Lex(input, tt.pos, term.UnitValue())
			if tt.width == 0 {
				if len(got) != 0 {
					t.Fatalf("expected no match, got %v", got)
				}
				return
			}
			if len(got) != 1 || got[0].Out != tt.want || got[0].Length != tt.width {
				t.Fatalf("got %v", got)
			}
		})
	}
}

// streamInput hides the slice so lexers take their generic path.
type streamInput struct {
	data  []byte
	reads int
}

func (s *streamInput) At(pos int) (byte, bool) {
	s.reads++
	if pos < 0 || pos >= len(s.data) {
		return 0, false
	}
	return s.data[pos], true
}

func TestGraphemeLexerStream(t *testing.T) {
	long := strings.Repeat("a", 4096)
	tests := []struct {
		name string
		data string
		pos  int
		want string
	}{
		{"accent", "e\u0301x", 0, "e\u0301"},
		{"flag pair", "x\U0001F1FA\U0001F1E6", 1, "\U0001F1FA\U0001F1E6"},
		{"family emoji", "\U0001F468\u200D\U0001F469\u200D\U0001F467!", 0, "\U0001F468\u200D\U0001F469\u200D\U0001F467"},
		{"long input", long, 100, "a"},
		{"negative", "abc", -1, ""},
		{"end", "abc", 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &streamInput{data: []byte(tt.data)}
			got := GraphemeLexer{}.Lex(in, tt.pos, term.UnitValue())
			if tt.want == "" {
				if len(got) != 0 {
					t.Fatalf("expected no match, got %v", got)
				}
				return
			}
			if len(got) != 1 || got[0].Out != term.StringValue(tt.want) || got[0].Length != len(tt.want) {
				t.Fatalf("got %v", got)
			}
			// the window stops shortly after the cluster, not at the end of input
			if in.reads > 64 {
				t.Errorf("прочитано %d байт для одного кластера", in.reads)
			}
		})
	}
}
