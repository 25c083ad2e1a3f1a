package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"attrparse/internal/grammars"
)

var grammarsCmd = &cobra.Command{
	Use:   "grammars",
	Short: "List the built-in grammars",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return err
		}
		return listGrammars(cmd.Context(), cmd.OutOrStdout(), grammars.All(), verbose)
	},
}

func init() {
	grammarsCmd.Flags().BoolP("verbose", "v", false, "also show symbol and rule counts")
}

func listGrammars(ctx context.Context, w io.Writer, entries []grammars.Entry, verbose bool) error {
	width := 0
	for _, e := range entries {
		width = max(width, runewidth.StringWidth(e.Name))
	}
	for _, e := range entries {
		starts := make([]string, len(e.Starts))
		for i, s := range e.Starts {
			starts[i] = string(s)
		}
		fmt.Fprintf(w, "%s  %s\n", color.New(color.Bold).Sprint(runewidth.FillRight(e.Name, width)), e.Summary)
		fmt.Fprintf(w, "%s  starts: %s (default %s)\n", strings.Repeat(" ", width), strings.Join(starts, ", "), e.Start)
		if !verbose {
			continue
		}
		g, err := e.Build(ctx)
		if err != nil {
			return fmt.Errorf("grammar %s: %w", e.Name, err)
		}
		fmt.Fprintf(w, "%s  %d symbols, %d rules, %d priorities\n", strings.Repeat(" ", width),
			len(g.Symbols()), len(g.Rules()), len(g.Priorities()))
	}
	return nil
}
