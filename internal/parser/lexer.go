package parser

import (
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"attrparse/internal/earley"
	"attrparse/internal/term"
)

// Match is one way a lexer recognizes its terminal at a position.
type Match struct {
	Length int
	Out    term.Value
}

// Lexer recognizes one terminal. InSort and OutSort must equal the
// terminal's declared sorts.
type Lexer[C any] interface {
	InSort() term.Sort
	OutSort() term.Sort
	Lex(input earley.Input[C], pos int, in term.Value) []Match
}

type funcLexer[C any] struct {
	in, out term.Sort
	fn      func(input earley.Input[C], pos int, in term.Value) []Match
}

func (l funcLexer[C]) InSort() term.Sort  { return l.in }
func (l funcLexer[C]) OutSort() term.Sort { return l.out }
func (l funcLexer[C]) Lex(input earley.Input[C], pos int, in term.Value) []Match {
	return l.fn(input, pos, in)
}

// LexerFunc builds a Lexer from a function.
func LexerFunc[C any](in, out term.Sort, fn func(input earley.Input[C], pos int, in term.Value) []Match) Lexer[C] {
	return funcLexer[C]{in: in, out: out, fn: fn}
}

// CharLexer reads one rune as CHAR.
type CharLexer struct{}

func (CharLexer) InSort() term.Sort  { return term.Unit }
func (CharLexer) OutSort() term.Sort { return term.Char }
func (CharLexer) Lex(input earley.Input[rune], pos int, _ term.Value) []Match {
	r, ok := input.At(pos)
	if !ok {
		return nil
	}
	return []Match{{Length: 1, Out: term.CharValue(r)}}
}

// ByteLexer reads one byte as INT.
type ByteLexer struct{}

func (ByteLexer) InSort() term.Sort  { return term.Unit }
func (ByteLexer) OutSort() term.Sort { return term.Int }
func (ByteLexer) Lex(input earley.Input[byte], pos int, _ term.Value) []Match {
	b, ok := input.At(pos)
	if !ok {
		return nil
	}
	return []Match{{Length: 1, Out: term.IntValue(int64(b))}}
}

// UTF8Lexer decodes one UTF-8 encoded rune from a byte input as CHAR.
// Invalid sequences do not match.
type UTF8Lexer struct{}

func (UTF8Lexer) InSort() term.Sort  { return term.Unit }
func (UTF8Lexer) OutSort() term.Sort { return term.Char }
func (UTF8Lexer) Lex(input earley.Input[byte], pos int, _ term.Value) []Match {
	var buf [utf8.UTFMax]byte
	n := 0
	for ; n < utf8.UTFMax; n++ {
		b, ok := input.At(pos + n)
		if !ok {
			break
		}
		buf[n] = b
		if utf8.FullRune(buf[:n+1]) {
			n++
			break
		}
	}
	r, size := utf8.DecodeRune(buf[:n])
	if r == utf8.RuneError && size <= 1 {
		return nil
	}
	return []Match{{Length: size, Out: term.CharValue(r)}}
}

// GraphemeLexer reads one extended grapheme cluster from a byte input as
// STRING.
type GraphemeLexer struct{}

func (GraphemeLexer) InSort() term.Sort  { return term.Unit }
func (GraphemeLexer) OutSort() term.Sort { return term.String }
func (GraphemeLexer) Lex(input earley.Input[byte], pos int, _ term.Value) []Match {
	if pos < 0 {
		return nil
	}
	var cluster []byte
	if bi, ok := input.(earley.SliceInput[byte]); ok {
		if pos >= len(bi) {
			return nil
		}
		cluster, _, _, _ = uniseg.FirstGraphemeCluster(bi[pos:], -1)
	} else {
		cluster = readCluster(input, pos)
	}
	if len(cluster) == 0 {
		return nil
	}
	return []Match{{Length: len(cluster), Out: term.StringValue(string(cluster))}}
}

// readCluster reads a growing window from pos until the first cluster ends
// at least one full rune before the window does, or the input is exhausted.
func readCluster(input earley.Input[byte], pos int) []byte {
	var buf []byte
	for window := 16; ; window *= 2 {
		eof := false
		for len(buf) < window {
			b, ok := input.At(pos + len(buf))
			if !ok {
				eof = true
				break
			}
			buf = append(buf, b)
		}
		if len(buf) == 0 {
			return nil
		}
		cluster, _, _, _ := uniseg.FirstGraphemeCluster(buf, -1)
		if eof || len(cluster)+utf8.UTFMax <= len(buf) {
			return cluster
		}
	}
}
