package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"attrparse/internal/forest"
	"attrparse/internal/grammar"
	"attrparse/internal/grammars"
	"attrparse/internal/syntax"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [flags] FILE",
	Short: "Print a parse forest written by --emit",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

func init() {
	decodeCmd.Flags().StringP("grammar", "g", "calc", "grammar the forest was parsed with")
	decodeCmd.Flags().Bool("tree", false, "dump the syntax tree of every root")
	decodeCmd.Flags().Bool("forest", false, "print the raw forest of every root")
}

func runDecode(cmd *cobra.Command, args []string) error {
	grammarName, err := stringSetting(cmd, "grammar", session.cfg.Parse.Grammar)
	if err != nil {
		return err
	}
	showTree, err := cmd.Flags().GetBool("tree")
	if err != nil {
		return err
	}
	showForest, err := cmd.Flags().GetBool("forest")
	if err != nil {
		return err
	}

	entry, err := grammars.Lookup(grammarName)
	if err != nil {
		return err
	}
	g, err := entry.Build(cmd.Context())
	if err != nil {
		return fmt.Errorf("grammar %s: %w", grammarName, err)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	done := session.timer.Track("decode")
	store, roots, err := forest.Decode(f, g.Language())
	done(args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return renderDecoded(cmd.Context(), cmd.OutOrStdout(), g, store, roots, showTree, showForest)
}

func renderDecoded(ctx context.Context, w io.Writer, g *grammar.Grammar, store *forest.Store, roots []forest.Tree, showTree, showForest bool) error {
	fmt.Fprintf(w, "%d nodes, %d roots\n", store.Len(), len(roots))
	for _, root := range roots {
		fmt.Fprintf(w, "  %s  (%s)\n", root.Key(), plural(root.CountDerivations(0), 0, "derivation"))
		if showForest {
			fmt.Fprintf(w, "     %s\n", root)
		}
		if showTree {
			tree, err := syntax.BuildContext(ctx, root, g)
			if err != nil {
				return err
			}
			if err := tree.Dump(indent(w, "     ")); err != nil {
				return err
			}
		}
	}
	return nil
}
