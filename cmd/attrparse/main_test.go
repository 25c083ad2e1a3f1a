package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"attrparse/internal/batch"
	"attrparse/internal/forest"
	"attrparse/internal/grammars"
	"attrparse/internal/parser"
	"attrparse/internal/term"
)

func init() {
	color.NoColor = true
}

func TestProgressMode(t *testing.T) {
	tests := []struct {
		in   string
		want progressMode
		err  bool
	}{
		{"", progressAuto, false},
		{" AUTO ", progressAuto, false},
		{"on", progressOn, false},
		{"off", progressOff, false},
		{"sometimes", progressAuto, true},
	}
	for _, tt := range tests {
		got, err := parseProgressMode(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("parseProgressMode(%q) = %v, %v", tt.in, got, err)
		}
	}

	decisions := []struct {
		mode  progressMode
		items int
		tty   bool
		want  bool
	}{
		{progressOn, 1, false, true},
		{progressOff, 10, true, false},
		{progressAuto, 10, true, true},
		{progressAuto, 1, true, false},
		{progressAuto, 10, false, false},
	}
	for _, d := range decisions {
		if got := showProgress(d.mode, d.items, d.tty); got != d.want {
			t.Errorf("showProgress(%v, %d, %v) = %v", d.mode, d.items, d.tty, got)
		}
	}
}

func TestProgressTitle(t *testing.T) {
	tests := []struct {
		opts batch.Options
		want string
	}{
		{batch.Options{}, "calc: parse"},
		{batch.Options{Trees: true}, "calc: parse → tree"},
		{batch.Options{Trees: true, Encode: true}, "calc: parse → tree → encode"},
		{batch.Options{Encode: true}, "calc: parse → encode"},
	}
	for _, tt := range tests {
		if got := progressTitle("calc", tt.opts); got != tt.want {
			t.Errorf("заголовок %q, ожидали %q", got, tt.want)
		}
	}
}

func TestReadInput(t *testing.T) {
	got, err := readInput(nil, "1+2", false)
	if err != nil || got != "1+2" {
		t.Fatalf("literal input: %q, %v", got, err)
	}
	got, err = readInput(strings.NewReader("3*4\r\n"), "-", false)
	if err != nil || got != "3*4" {
		t.Fatalf("stdin input: %q, %v", got, err)
	}
	path := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(path, []byte("12\n\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// only one trailing newline is dropped
	got, err = readInput(nil, path, true)
	if err != nil || got != "12\n" {
		t.Fatalf("file input: %q, %v", got, err)
	}
	if _, err := readInput(nil, filepath.Join(t.TempDir(), "missing"), true); err == nil {
		t.Fatal("missing file must fail")
	}
}

func parse(t *testing.T, name, input string) (*parser.Parser[rune], *parser.Result) {
	t.Helper()
	p, entry, err := grammars.NewParser(context.Background(), name)
	if err != nil {
		t.Fatal(err)
	}
	res, err := parser.ParseString(context.Background(), p, input, entry.Start)
	if err != nil {
		t.Fatal(err)
	}
	return p, res
}

func TestRenderResult(t *testing.T) {
	tests := []struct {
		name    string
		grammar string
		input   string
		opts    parseOptions
		want    []string
	}{
		{
			name:    "single value",
			grammar: "calc",
			input:   "512+6*3",
			opts:    parseOptions{limit: 10},
			want:    []string{"match: Expr [0:7] of 7, 1 result(s)", "-> 530"},
		},
		{
			name:    "ambiguous values",
			grammar: "calc-ambiguous",
			input:   "123",
			opts:    parseOptions{limit: 10, ambiguous: true},
			want:    []string{"2 result(s)", "-> 33  (1 derivation)", "-> 123  (1 derivation)"},
		},
		{
			name:    "partial",
			grammar: "calc",
			input:   "12+x",
			opts:    parseOptions{limit: 10},
			want:    []string{"partial match: Expr [0:2] of 4", "-> 12"},
		},
		{
			name:    "no match",
			grammar: "calc",
			input:   "+",
			opts:    parseOptions{limit: 10},
			want:    []string{"no match: Expr does not match"},
		},
		{
			name:    "tree",
			grammar: "calc",
			input:   "7",
			opts:    parseOptions{limit: 10, tree: true, explode: true},
			want:    []string{"-> 7", "     Expr#", "     1: "},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, res := parse(t, tt.grammar, tt.input)
			var buf bytes.Buffer
			if err := renderResult(context.Background(), &buf, p.Grammar(), len([]rune(tt.input)), "Expr", res, tt.opts); err != nil {
				t.Fatal(err)
			}
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("вывод не содержит %q:\n%s", w, buf.String())
				}
			}
		})
	}
}

func TestEmitAndDecode(t *testing.T) {
	p, res := parse(t, "calc-ambiguous", "1234")
	path := filepath.Join(t.TempDir(), "out.forest")
	if err := emitForest(path, p.Grammar(), res); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	store, roots, err := forest.Decode(f, p.Grammar().Language())
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 5 {
		t.Fatalf("decoded %d roots, want 5", len(roots))
	}
	var buf bytes.Buffer
	if err := renderDecoded(context.Background(), &buf, p.Grammar(), store, roots, true, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "5 roots") || !strings.Contains(buf.String(), "Expr[0:4]") {
		t.Errorf("unexpected decode output:\n%s", buf.String())
	}
}

func TestRenderReports(t *testing.T) {
	reports := []batch.Report{
		{Name: "in:1", Matched: true, Complete: true, Outs: []term.Value{term.IntValue(2)}, Trees: 1},
		{Name: "in:2", Matched: true, Length: 1, Outs: []term.Value{term.IntValue(1)}},
		{Name: "in:10", Position: 0},
	}
	var buf bytes.Buffer
	if failed := renderReports(&buf, reports, true); failed != 2 {
		t.Fatalf("%d failures, want 2", failed)
	}
	out := buf.String()
	for _, w := range []string{"in:1   ok {2}  (1 trees)", "in:2   partial [0:1] {1}", "in:10  no match at 0", "1 of 3 inputs"} {
		if !strings.Contains(out, w) {
			t.Errorf("output lacks %q:\n%s", w, out)
		}
	}
}

func TestListGrammars(t *testing.T) {
	var buf bytes.Buffer
	if err := listGrammars(context.Background(), &buf, grammars.All(), true); err != nil {
		t.Fatal(err)
	}
	for _, name := range grammars.Names() {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("%s missing from listing", name)
		}
	}
	if !strings.Contains(buf.String(), "rules") {
		t.Error("verbose listing must count rules")
	}
}

func TestIndentWriter(t *testing.T) {
	var buf bytes.Buffer
	w := indent(&buf, "> ")
	_, _ = w.Write([]byte("a\nb"))
	_, _ = w.Write([]byte("c\n"))
	if got := buf.String(); got != "> a\n> bc\n" {
		t.Fatalf("got %q", got)
	}
}

func TestPlural(t *testing.T) {
	if got := plural(1, 10, "tree"); got != "1 tree" {
		t.Error(got)
	}
	if got := plural(10, 10, "tree"); got != "at least 10 trees" {
		t.Error(got)
	}
	if got := plural(3, 0, "tree"); got != "3 trees" {
		t.Error(got)
	}
}
