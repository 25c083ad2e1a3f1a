package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"attrparse/internal/batch"
	"attrparse/internal/grammar"
	"attrparse/internal/grammars"
	"attrparse/internal/parser"
	"attrparse/internal/ui"
)

var batchCmd = &cobra.Command{
	Use:   "batch [flags] FILE",
	Short: "Parse every line of FILE concurrently",
	Long: `Parse every non-blank line of FILE with one grammar and print a report per
line. FILE "-" reads standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringP("grammar", "g", "calc", "built-in grammar (see `attrparse grammars`)")
	batchCmd.Flags().StringP("start", "s", "", "start symbol (default: the grammar's)")
	batchCmd.Flags().IntP("jobs", "j", 0, "max parallel parses (0=auto)")
	batchCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	batchCmd.Flags().Bool("trees", false, "unpack syntax trees and count them")
	batchCmd.Flags().Int("limit", 100, "saturation limit for tree counts")
	batchCmd.Flags().String("emit-dir", "", "write each result forest to DIR/<line>.forest (msgpack)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := session.cfg
	grammarName, err := stringSetting(cmd, "grammar", cfg.Parse.Grammar)
	if err != nil {
		return err
	}
	startName, err := stringSetting(cmd, "start", cfg.Parse.Start)
	if err != nil {
		return err
	}
	jobs, err := intSetting(cmd, "jobs", cfg.Batch.Jobs)
	if err != nil {
		return err
	}
	uiValue, err := stringSetting(cmd, "ui", cfg.Batch.UI)
	if err != nil {
		return err
	}
	mode, err := parseProgressMode(uiValue)
	if err != nil {
		return err
	}
	limit, err := intSetting(cmd, "limit", cfg.Parse.AmbiguityLimit)
	if err != nil {
		return err
	}
	trees, err := cmd.Flags().GetBool("trees")
	if err != nil {
		return err
	}
	emitDir, err := cmd.Flags().GetString("emit-dir")
	if err != nil {
		return err
	}

	items, err := readBatchItems(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("%s: no input lines", args[0])
	}

	p, entry, err := grammars.NewParser(cmd.Context(), grammarName, parser.WithTimer(session.timer), parser.WithJobs(jobs))
	if err != nil {
		return err
	}
	start := grammar.SymbolName(startName)
	if start == "" {
		start = entry.Start
	}
	opts := batch.Options{
		Start:     start,
		Jobs:      jobs,
		Timer:     session.timer,
		Trees:     trees,
		TreeLimit: limit,
		Encode:    emitDir != "",
	}

	var reports []batch.Report
	if showProgress(mode, len(items), isTerminal(os.Stdout)) {
		names := make([]string, len(items))
		for i, it := range items {
			names[i] = it.Name
		}
		err = ui.RunWithProgress(cmd.OutOrStdout(), progressTitle(grammarName, opts), names, func(sink batch.ProgressSink) error {
			o := opts
			o.Sink = sink
			var runErr error
			reports, runErr = batch.Run(cmd.Context(), p, items, o)
			return runErr
		})
	} else {
		reports, err = batch.Run(cmd.Context(), p, items, opts)
	}
	if err != nil {
		return err
	}

	if emitDir != "" {
		if err := writeForests(emitDir, reports); err != nil {
			return err
		}
	}
	failed := renderReports(cmd.OutOrStdout(), reports, trees)
	if failed > 0 {
		return errReported
	}
	return nil
}

func readBatchItems(stdin io.Reader, path string) ([]batch.Item, error) {
	if path == "-" {
		return batch.ReadItems(stdin, "stdin")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return batch.ReadItems(f, filepath.Base(path))
}

// renderReports prints one aligned line per report and a summary. It
// returns how many items did not match completely or failed.
func renderReports(w io.Writer, reports []batch.Report, trees bool) int {
	width := 0
	for _, r := range reports {
		width = max(width, runewidth.StringWidth(r.Name))
	}
	failed := 0
	for _, r := range reports {
		name := runewidth.FillRight(r.Name, width)
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(w, "%s  %s %v\n", name, color.RedString("error"), r.Err)
		case !r.Matched:
			failed++
			fmt.Fprintf(w, "%s  %s at %d\n", name, color.RedString("no match"), r.Position)
		case !r.Complete:
			failed++
			fmt.Fprintf(w, "%s  %s [0:%d] %s\n", name, color.YellowString("partial"), r.Length, joinValues(r))
		default:
			line := fmt.Sprintf("%s  %s %s", name, color.GreenString("ok"), joinValues(r))
			if trees {
				line += fmt.Sprintf("  (%d trees", r.Trees)
				if r.Ambiguous {
					line += ", ambiguous"
				}
				line += ")"
			}
			fmt.Fprintln(w, line)
		}
	}
	fmt.Fprintf(w, "%d of %d inputs parsed completely\n", len(reports)-failed, len(reports))
	return failed
}

func joinValues(r batch.Report) string {
	parts := make([]string, len(r.Outs))
	for i, v := range r.Outs {
		parts[i] = v.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func writeForests(dir string, reports []batch.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	for _, r := range reports {
		if len(r.Encoded) == 0 {
			continue
		}
		name := strings.NewReplacer(":", "_", string(filepath.Separator), "_").Replace(r.Name) + ".forest"
		if err := os.WriteFile(filepath.Join(dir, name), r.Encoded, 0o644); err != nil {
			return fmt.Errorf("failed to write forest for %s: %w", r.Name, err)
		}
	}
	return nil
}
