package grammars

import (
	"context"
	"errors"
	"slices"
	"testing"

	"attrparse/internal/diag"
	"attrparse/internal/grammar"
	"attrparse/internal/parser"
	"attrparse/internal/syntax"
	"attrparse/internal/term"
)

func newParser(t *testing.T, name string) *parser.Parser[rune] {
	t.Helper()
	p, _, err := NewParser(context.Background(), name)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// accepts reports whether start matches the whole input.
func accepts(t *testing.T, p *parser.Parser[rune], input string, start grammar.SymbolName) bool {
	t.Helper()
	res, err := parser.ParseString(context.Background(), p, input, start)
	if err != nil {
		t.Fatal(err)
	}
	return res.Matched && res.Length == len([]rune(input))
}

func ints(vals []term.Value) []int64 {
	out := make([]int64, len(vals))
	for i, v := range vals {
		out[i] = v.Int()
	}
	slices.Sort(out)
	return out
}

func TestCalculator(t *testing.T) {
	tests := []struct {
		grammar string
		input   string
		want    []int64
	}{
		{"calc", "512+6*3", []int64{530}},
		{"calc", "6*3+512", []int64{530}},
		{"calc", "10", []int64{10}},
		{"calc", "12345", []int64{12345}},
		{"calc-ambiguous", "512+6*3", []int64{80, 530}},
		{"calc-ambiguous", "100", []int64{10, 100}},
		{"calc-ambiguous", "123", []int64{33, 123}},
		{"calc-ambiguous", "1234", []int64{64, 154, 244, 334, 1234}},
	}
	parsers := map[string]*parser.Parser[rune]{}
	for _, tt := range tests {
		t.Run(tt.grammar+"/"+tt.input, func(t *testing.T) {
			p, ok := parsers[tt.grammar]
			if !ok {
				p = newParser(t, tt.grammar)
				parsers[tt.grammar] = p
			}
			res, err := parser.ParseString(context.Background(), p, tt.input, "Expr")
			if err != nil {
				t.Fatal(err)
			}
			if !res.Matched || res.Length != len(tt.input) {
				t.Fatalf("не распознано целиком: matched=%v length=%d", res.Matched, res.Length)
			}
			if got := ints(res.Outs()); !slices.Equal(got, tt.want) {
				t.Fatalf("results %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculatorRejects(t *testing.T) {
	p := newParser(t, "calc")
	for _, input := range []string{"", "+", "1+", "1**2", "a"} {
		if accepts(t, p, input, "Expr") {
			t.Errorf("%q must be rejected", input)
		}
	}
	res, err := parser.ParseString(context.Background(), p, "12+x", "Expr")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Matched || res.Length != 2 {
		t.Fatalf("longest prefix of 12+x is 12, got matched=%v length=%d", res.Matched, res.Length)
	}
}

func TestCalculatorTrees(t *testing.T) {
	p := newParser(t, "calc-ambiguous")
	res, err := parser.ParseString(context.Background(), p, "123", "Expr")
	if err != nil {
		t.Fatal(err)
	}
	for _, out := range res.Outs() {
		tree, err := syntax.Build(res.Trees[out], p.Grammar())
		if err != nil {
			t.Fatal(err)
		}
		if tree.Out != out {
			t.Errorf("root out %v, want %v", tree.Out, out)
		}
		for _, e := range tree.Explode() {
			if e.Out != out || e.IsAmbiguous() {
				t.Errorf("exploded tree %s", e)
			}
		}
	}
	// 123 = (12)3 = 1(23) only differ in values, each value has one tree
	if n := res.Trees[term.IntValue(123)].CountDerivations(0); n != 1 {
		t.Errorf("123 has %d derivations", n)
	}
}

func TestRegex(t *testing.T) {
	p := newParser(t, "regex")
	tests := []struct {
		start grammar.SymbolName
		input string
		want  bool
	}{
		{"X", "BC", true},
		{"X", "AAABC", true},
		{"X", "AAAB", true},
		{"X", "B", true},
		{"X", "C", false},
		{"X", "AAAC", false},
		{"X", "", false},
		{"Y", "AC", true},
		{"Y", "ACBCAC", true},
		{"Y", "AB", false},
		{"Y", "", false},
		{"Z", "", true},
		{"Z", "BBB", true},
		{"Z", "BAB", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.start)+"/"+tt.input, func(t *testing.T) {
			if got := accepts(t, p, tt.input, tt.start); got != tt.want {
				t.Fatalf("accepts(%q) = %v", tt.input, got)
			}
		})
	}
}

func TestSimple(t *testing.T) {
	p := newParser(t, "simple")
	if !accepts(t, p, "A", "A") || accepts(t, p, "B", "A") {
		t.Fatal("simple accepts exactly A")
	}
}

func TestLookahead(t *testing.T) {
	p := newParser(t, "lookahead")
	tests := []struct {
		start grammar.SymbolName
		input string
		want  bool
	}{
		{"Ident", "abc", true},
		{"Ident", "els", true},
		{"Ident", "iffy", false},
		{"Ident", "elsewhere", false},
		{"Peek", "iffy", true},
		{"Peek", "abc", false},
		{"Keyword", "else", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.start)+"/"+tt.input, func(t *testing.T) {
			if got := accepts(t, p, tt.input, tt.start); got != tt.want {
				t.Fatalf("accepts(%q) = %v", tt.input, got)
			}
		})
	}

	res, err := parser.ParseString(context.Background(), p, "iffy", "Peek")
	if err != nil {
		t.Fatal(err)
	}
	peek := res.Roots()[0].Children()[0]
	if peek.Key().Len() != 0 {
		t.Errorf("positive lookahead consumed %d characters", peek.Key().Len())
	}
}

func TestLookaheadLexerRejected(t *testing.T) {
	g, err := Lookahead(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var name grammar.SymbolName
	for _, la := range g.Lookaheads() {
		if positive, _ := g.Lookahead(la); positive {
			name = la
		}
	}
	if name == "" {
		t.Fatal("grammar declares no positive lookahead")
	}
	lexers := Lexers().MustAdd(name, parser.LexerFunc[rune](term.Unit, term.Unit, nil))
	_, err = parser.New(context.Background(), g, lexers)
	var ce *grammar.ConfigError
	if !errors.As(err, &ce) || ce.Code != diag.LexLookahead {
		t.Fatalf("expected lookahead lexer error, got %v", err)
	}
}

func TestGreedyAndLongest(t *testing.T) {
	tests := []struct {
		grammar string
		input   string
		length  int
		derivs  int
	}{
		{"greedy", "iffy", 2, 1},
		{"greedy", "abc", 3, 1},
		{"greedy", "if", 2, 1},
		{"longest", "iffy", 4, 1},
		{"longest", "abc", 3, 1},
		{"longest", "if", 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.grammar+"/"+tt.input, func(t *testing.T) {
			p := newParser(t, tt.grammar)
			res, err := parser.ParseString(context.Background(), p, tt.input, "Token")
			if err != nil {
				t.Fatal(err)
			}
			if !res.Matched || res.Length != tt.length {
				t.Fatalf("matched=%v length=%d, want %d", res.Matched, res.Length, tt.length)
			}
			if n := res.Roots()[0].CountDerivations(0); n != tt.derivs {
				t.Errorf("%d derivations, want %d", n, tt.derivs)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	for _, e := range All() {
		g, err := e.Build(context.Background())
		if err != nil {
			t.Fatalf("%s: %v", e.Name, err)
		}
		for _, s := range e.Starts {
			if _, ok := g.Symbol(s); !ok {
				t.Errorf("%s: start %s is not declared", e.Name, s)
			}
		}
		if !slices.Contains(e.Starts, e.Start) {
			t.Errorf("%s: default start %s not listed", e.Name, e.Start)
		}
	}
	_, err := Lookup("pascal")
	var ce *grammar.ConfigError
	if !errors.As(err, &ce) || ce.Code != diag.LexUnknownGrammar {
		t.Fatalf("unknown grammar: %v", err)
	}
}
