package earley

import (
	"cmp"
	"fmt"
	"slices"

	"attrparse/internal/forest"
	"attrparse/internal/term"
)

// Symbol is a kernel symbol: a dense index into the terminal or the
// nonterminal table of the compiled grammar.
type Symbol struct {
	Terminal bool
	Index    int
}

func (s Symbol) String() string {
	if s.Terminal {
		return fmt.Sprintf("t%d", s.Index)
	}
	return fmt.Sprintf("n%d", s.Index)
}

// Rule is a compiled production. Eval(k, env) is called once the first k
// body symbols are recognized; env holds the head input followed by the
// (in, out) pairs of those symbols. For k < len(RHS) it returns the input
// of symbol k+1, for k == len(RHS) the head output. A false result rejects
// the partial derivation.
type Rule struct {
	LHS  Symbol
	RHS  []Symbol
	Eval func(k int, env []term.Value) (term.Value, bool)
}

// TerminalKey is what a lexer is asked to recognize at a position.
type TerminalKey struct {
	Terminal int
	In       term.Value
}

// Token is one lexer match. Result optionally carries a forest node
// already built for the token (nested parses).
type Token struct {
	Length int
	Out    term.Value
	Result forest.NodeID
}

// Tokens groups lexer matches by the key they answer.
type Tokens map[TerminalKey][]Token

// Add records tok under k unless it is already present. It reports
// whether the set changed.
func (ts Tokens) Add(k TerminalKey, tok Token) bool {
	if slices.Contains(ts[k], tok) {
		return false
	}
	ts[k] = append(ts[k], tok)
	return true
}

// Contains reports whether tok is recorded under k.
func (ts Tokens) Contains(k TerminalKey, tok Token) bool {
	return slices.Contains(ts[k], tok)
}

// Count returns the number of tokens over all keys.
func (ts Tokens) Count() int {
	n := 0
	for _, toks := range ts {
		n += len(toks)
	}
	return n
}

// Clone returns an independent copy.
func (ts Tokens) Clone() Tokens {
	out := make(Tokens, len(ts))
	for k, toks := range ts {
		out[k] = slices.Clone(toks)
	}
	return out
}

// Keys returns the keys in a deterministic order.
func (ts Tokens) Keys() []TerminalKey {
	keys := make([]TerminalKey, 0, len(ts))
	for k := range ts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

func compareKeys(a, b TerminalKey) int {
	if c := cmp.Compare(a.Terminal, b.Terminal); c != 0 {
		return c
	}
	return compareValues(a.In, b.In)
}

func compareValues(a, b term.Value) int {
	switch {
	case term.Less(a, b):
		return -1
	case term.Less(b, a):
		return 1
	}
	return 0
}

// ItemKey identifies a recognized symbol occurrence.
type ItemKey struct {
	Symbol Symbol
	Start  int
	End    int
	In     term.Value
	Out    term.Value
}

// Input is random access to the characters being parsed.
type Input[C any] interface {
	At(pos int) (C, bool)
}

// SliceInput adapts a slice.
type SliceInput[C any] []C

func (s SliceInput[C]) At(pos int) (C, bool) {
	if pos < 0 || pos >= len(s) {
		var zero C
		return zero, false
	}
	return s[pos], true
}

// Lexer recognizes terminals. It may start nested parses through run.
type Lexer[C any] interface {
	Lex(run *Run[C], pos int, key TerminalKey) []Token
}

// Selector filters a batch of freshly lexed tokens at one position against
// the tokens already selected there and returns the new selected set.
type Selector interface {
	Select(batch, selected Tokens) Tokens
}

// SelectAll keeps every token.
type SelectAll struct{}

func (SelectAll) Select(batch, selected Tokens) Tokens {
	out := selected.Clone()
	for k, toks := range batch {
		for _, tok := range toks {
			out.Add(k, tok)
		}
	}
	return out
}

// Constructor builds results for recognized keys.
type Constructor interface {
	// Retains reports whether derivations of sym are kept. When false the
	// kernel asks for a Leaf instead of enumerating derivations.
	Retains(sym Symbol) bool
	Leaf(key ItemKey) forest.NodeID
	Rule(rule int, key ItemKey, children []forest.NodeID) forest.NodeID
	Terminal(key ItemKey, result forest.NodeID) forest.NodeID
	Merge(key ItemKey, results []forest.NodeID) forest.NodeID
}

// Outcome is the result of one parse call.
type Outcome struct {
	Matched bool
	// Position is the furthest position the chart reached when the parse
	// failed.
	Position int
	Length   int
	Results  map[term.Value]forest.NodeID
}

// Outs returns the output values of a matched outcome in a deterministic
// order.
func (o Outcome) Outs() []term.Value {
	outs := make([]term.Value, 0, len(o.Results))
	for v := range o.Results {
		outs = append(outs, v)
	}
	slices.SortFunc(outs, compareValues)
	return outs
}

// Stats counts kernel work for one run.
type Stats struct {
	Parses    int
	Items     int
	Positions int
	Tokens    int
}
