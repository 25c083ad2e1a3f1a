package syntax

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"attrparse/internal/term"
)

// attribute values wider than this are cut in dumps
const valueWidth = 32

// Dump writes t as an indented outline, one node per line:
//
//	Sum#2 [0:7] -> 530
//	  Num#5 [0:3] -> 512
//	  ...
//
// Each alternative of an ambiguous node is listed under a "case i" line.
func (t *Tree) Dump(w io.Writer) error {
	d := &dumper{w: w}
	d.tree(t, 0)
	return d.err
}

type dumper struct {
	w   io.Writer
	err error
}

func (d *dumper) line(depth int, format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}

func (d *dumper) tree(t *Tree, depth int) {
	if len(t.Alternatives) > 0 {
		d.line(depth, "%s [%d:%d] ambiguous, %d cases", t.Symbol, t.Start, t.End, len(t.Alternatives)+1)
		for i, c := range t.Cases() {
			d.line(depth+1, "case %d", i)
			d.tree(c, depth+2)
		}
		return
	}
	head := string(t.Symbol)
	if !t.IsLeaf() {
		head = fmt.Sprintf("%s#%d", t.Symbol, t.Rule)
	}
	d.line(depth, "%s [%d:%d]%s", head, t.Start, t.End, attrs(t.In, t.Out))
	for _, ch := range t.Children {
		d.tree(ch, depth+1)
	}
}

func attrs(in, out term.Value) string {
	var sb strings.Builder
	if in.Sort() != term.Unit {
		sb.WriteString(" ")
		sb.WriteString(clip(in.String()))
	}
	if out.Sort() != term.Unit {
		sb.WriteString(" -> ")
		sb.WriteString(clip(out.String()))
	}
	return sb.String()
}

func clip(s string) string {
	if runewidth.StringWidth(s) <= valueWidth {
		return s
	}
	return runewidth.Truncate(s, valueWidth, "…")
}
