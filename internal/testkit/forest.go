// Package testkit holds invariant checks shared by tests and fuzz
// harnesses.
package testkit

import (
	"fmt"

	"attrparse/internal/forest"
	"attrparse/internal/grammar"
)

// CheckForest walks every node reachable from root and verifies:
//  1. spans are well formed and children lie inside their parent, in
//     order and without overlap
//  2. a forest node is a leaf or holds at least two rule alternatives,
//     all carrying its key
//  3. a rule node names a rule of g whose head is the node's symbol and
//     that head is not flat
func CheckForest(root forest.Tree, g *grammar.Grammar) error {
	if !root.IsValid() {
		return fmt.Errorf("invalid root")
	}
	seen := make(map[forest.NodeID]bool)
	var walk func(t forest.Tree) error
	walk = func(t forest.Tree) error {
		if seen[t.ID()] {
			return nil
		}
		seen[t.ID()] = true
		key := t.Key()
		if key.Start < 0 || key.End < key.Start {
			return fmt.Errorf("%s: malformed span", key)
		}

		if t.Kind() == forest.KindForest {
			alts := t.Alternatives()
			if len(alts) == 1 {
				return fmt.Errorf("%s: forest with a single alternative", key)
			}
			for _, alt := range alts {
				if alt.Kind() != forest.KindRule {
					return fmt.Errorf("%s: nested forest alternative %s", key, alt.Key())
				}
				if alt.Key() != key {
					return fmt.Errorf("%s: alternative carries key %s", key, alt.Key())
				}
				if err := walk(alt); err != nil {
					return err
				}
			}
			return nil
		}

		rule, ok := g.Rule(t.RuleID())
		if !ok {
			return fmt.Errorf("%s: unknown rule %d", key, t.RuleID())
		}
		if rule.Head != key.Symbol {
			return fmt.Errorf("%s: rule %d derives %s", key, rule.ID, rule.Head)
		}
		if g.IsFlat(key.Symbol) {
			return fmt.Errorf("%s: flat symbol stored with a derivation", key)
		}
		prev := key.Start
		for _, ch := range t.Children() {
			ck := ch.Key()
			if ck.Start < prev || ck.End > key.End {
				return fmt.Errorf("%s: child %s out of place", key, ck)
			}
			prev = ck.End
			if err := walk(ch); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}
