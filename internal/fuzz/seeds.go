package fuzztests

import (
	"bytes"
	"context"
	"testing"

	"attrparse/internal/forest"
	"attrparse/internal/grammars"
	"attrparse/internal/parser"
)

const (
	maxFuzzInput = 64
	// the number of values of an ambiguous number grows exponentially
	maxAmbiguousInput = 12
)

var seedInputs = []string{
	"",
	"1",
	"512+6*3",
	"1234",
	"1+2*3+4*5",
	"12+x",
	"**",
	"AAABC",
	"ACBCAC",
	"iffy",
	"else",
	"elsewhere",
	"é",
}

func addInputSeeds(f *testing.F) {
	for _, s := range seedInputs {
		f.Add(s)
	}
}

// addForestSeeds adds encodings of real parse results.
func addForestSeeds(f *testing.F) {
	p, e, err := grammars.NewParser(context.Background(), "calc-ambiguous")
	if err != nil {
		f.Fatal(err)
	}
	for _, s := range []string{"1", "123", "1+2*3"} {
		res, err := parser.ParseString(context.Background(), p, s, e.Start)
		if err != nil {
			f.Fatal(err)
		}
		var buf bytes.Buffer
		if err := forest.Encode(&buf, p.Grammar().Language(), res.Roots()...); err != nil {
			f.Fatal(err)
		}
		f.Add(buf.Bytes())
	}
	f.Add([]byte{})
	f.Add([]byte{0x92, 0x01, 0x90})
}

func clampInput(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// truncateForLog shortens input for failure messages.
func truncateForLog(input string, maxLen int) string {
	if len(input) <= maxLen {
		return input
	}
	return input[:maxLen] + "..."
}
