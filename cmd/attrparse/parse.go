package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"attrparse/internal/forest"
	"attrparse/internal/grammar"
	"attrparse/internal/grammars"
	"attrparse/internal/parser"
	"attrparse/internal/syntax"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] INPUT",
	Short: "Parse INPUT with a built-in grammar",
	Long: `Parse INPUT with a built-in grammar and print every output attribute of
the longest match. INPUT "-" reads standard input, --file treats INPUT as a path.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringP("grammar", "g", "calc", "built-in grammar (see `attrparse grammars`)")
	parseCmd.Flags().StringP("start", "s", "", "start symbol (default: the grammar's)")
	parseCmd.Flags().Bool("file", false, "read the input from the file INPUT")
	parseCmd.Flags().Bool("nfc", false, "normalize the input to Unicode NFC before parsing")
	parseCmd.Flags().Bool("ambiguous", false, "report derivation counts for every result")
	parseCmd.Flags().Bool("tree", false, "dump the syntax tree of every result")
	parseCmd.Flags().Bool("explode", false, "list every disambiguated tree")
	parseCmd.Flags().Int("limit", 100, "maximum number of trees listed or counted per result")
	parseCmd.Flags().String("emit", "", "write the result forest to file (msgpack)")
}

type parseOptions struct {
	grammar   string
	start     string
	fromFile  bool
	nfc       bool
	ambiguous bool
	tree      bool
	explode   bool
	limit     int
	emit      string
}

func readParseOptions(cmd *cobra.Command) (parseOptions, error) {
	cfg := session.cfg.Parse
	var opts parseOptions
	var err error
	if opts.grammar, err = stringSetting(cmd, "grammar", cfg.Grammar); err != nil {
		return opts, err
	}
	if opts.start, err = stringSetting(cmd, "start", cfg.Start); err != nil {
		return opts, err
	}
	if opts.nfc, err = boolSetting(cmd, "nfc", cfg.NFC); err != nil {
		return opts, err
	}
	if opts.limit, err = intSetting(cmd, "limit", cfg.AmbiguityLimit); err != nil {
		return opts, err
	}
	flags := cmd.Flags()
	if opts.fromFile, err = flags.GetBool("file"); err != nil {
		return opts, err
	}
	if opts.ambiguous, err = flags.GetBool("ambiguous"); err != nil {
		return opts, err
	}
	if opts.tree, err = flags.GetBool("tree"); err != nil {
		return opts, err
	}
	if opts.explode, err = flags.GetBool("explode"); err != nil {
		return opts, err
	}
	if opts.emit, err = flags.GetString("emit"); err != nil {
		return opts, err
	}
	if opts.limit <= 0 {
		return opts, fmt.Errorf("--limit must be positive, got %d", opts.limit)
	}
	return opts, nil
}

func runParse(cmd *cobra.Command, args []string) error {
	opts, err := readParseOptions(cmd)
	if err != nil {
		return err
	}
	text, err := readInput(cmd.InOrStdin(), args[0], opts.fromFile)
	if err != nil {
		return err
	}
	if opts.nfc {
		text = norm.NFC.String(text)
	}

	p, entry, err := grammars.NewParser(cmd.Context(), opts.grammar, parser.WithTimer(session.timer))
	if err != nil {
		return err
	}
	start := grammar.SymbolName(opts.start)
	if start == "" {
		start = entry.Start
	}
	res, err := parser.ParseString(cmd.Context(), p, text, start)
	if err != nil {
		return err
	}

	if err := renderResult(cmd.Context(), cmd.OutOrStdout(), p.Grammar(), len([]rune(text)), start, res, opts); err != nil {
		return err
	}
	if opts.emit != "" && res.Matched {
		if err := emitForest(opts.emit, p.Grammar(), res); err != nil {
			return err
		}
	}
	if !res.Matched {
		return errReported
	}
	return nil
}

// readInput returns arg itself, standard input for "-", or the contents
// of the file arg. A single trailing newline is dropped from read input.
func readInput(stdin io.Reader, arg string, fromFile bool) (string, error) {
	var data []byte
	var err error
	switch {
	case fromFile:
		data, err = os.ReadFile(arg)
	case arg == "-":
		data, err = io.ReadAll(stdin)
	default:
		return arg, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(text, "\r"), nil
}

func renderResult(ctx context.Context, w io.Writer, g *grammar.Grammar, inputLen int, start grammar.SymbolName, res *parser.Result, opts parseOptions) error {
	if !res.Matched {
		_, err := fmt.Fprintf(w, "%s %s does not match, failed at position %d\n", color.RedString("no match:"), start, res.Position)
		return err
	}
	status := color.GreenString("match:")
	if res.Length < inputLen {
		status = color.YellowString("partial match:")
	}
	outs := res.Outs()
	fmt.Fprintf(w, "%s %s [0:%d] of %d, %d result(s)\n", status, start, res.Length, inputLen, len(outs))

	for _, out := range outs {
		root := res.Trees[out]
		line := "  -> " + color.CyanString("%s", out)
		if opts.ambiguous {
			n := root.CountDerivations(opts.limit)
			line += fmt.Sprintf("  (%s)", plural(n, opts.limit, "derivation"))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		if !opts.tree && !opts.explode {
			continue
		}
		done := session.timer.Track("tree")
		tree, err := syntax.BuildContext(ctx, root, g)
		done("")
		if err != nil {
			return err
		}
		if opts.tree {
			if err := tree.Dump(indent(w, "     ")); err != nil {
				return err
			}
		}
		if opts.explode {
			if err := writeExploded(w, tree, opts.limit); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeExploded(w io.Writer, tree *syntax.Tree, limit int) error {
	if n := tree.Count(limit + 1); n > limit {
		_, err := fmt.Fprintf(w, "     more than %d trees, raise --limit to list them\n", limit)
		return err
	}
	for i, t := range tree.Explode() {
		if _, err := fmt.Fprintf(w, "     %d: %s\n", i+1, t); err != nil {
			return err
		}
	}
	return nil
}

func emitForest(path string, g *grammar.Grammar, res *parser.Result) (err error) {
	done := session.timer.Track("encode")
	defer done(path)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return forest.Encode(f, g.Language(), res.Roots()...)
}

func plural(n, limit int, noun string) string {
	prefix := ""
	if limit > 0 && n >= limit {
		prefix = "at least "
	}
	if n == 1 {
		return fmt.Sprintf("%s1 %s", prefix, noun)
	}
	return fmt.Sprintf("%s%d %ss", prefix, n, noun)
}

// indent prefixes every line written through it.
func indent(w io.Writer, prefix string) io.Writer {
	return &indentWriter{w: w, prefix: prefix, bol: true}
}

type indentWriter struct {
	w      io.Writer
	prefix string
	bol    bool
}

func (iw *indentWriter) Write(p []byte) (int, error) {
	var sb strings.Builder
	for _, b := range p {
		if iw.bol {
			sb.WriteString(iw.prefix)
		}
		sb.WriteByte(b)
		iw.bol = b == '\n'
	}
	if _, err := io.WriteString(iw.w, sb.String()); err != nil {
		return 0, err
	}
	return len(p), nil
}
