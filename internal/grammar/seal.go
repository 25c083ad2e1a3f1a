package grammar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"attrparse/internal/diag"
	"attrparse/internal/source"
	"attrparse/internal/trace"
)

// Seal freezes the builder, runs the whole-grammar checks and returns the
// immutable Grammar together with every error recorded so far. Sealing
// twice returns the same result.
func (b *Builder) Seal() (*Grammar, error) {
	if b.sealed {
		return b.grammar, b.sealErr
	}
	b.sealed = true
	b.checkRuleNames()
	b.checkTerminalCycles()
	b.sealErr = errors.Join(b.errs...)
	if b.sealErr != nil {
		return nil, b.sealErr
	}
	b.grammar = b.freeze()
	return b.grammar, nil
}

// SealContext is Seal recorded as a seal phase of the tracer in ctx.
func (b *Builder) SealContext(ctx context.Context) (*Grammar, error) {
	span, _ := trace.Start(ctx, trace.ScopePhase, "seal")
	g, err := b.Seal()
	if err != nil {
		span.End("failed")
		return nil, err
	}
	span.WithExtra("symbols", strconv.Itoa(len(g.symbols))).
		WithExtra("rules", strconv.Itoa(len(g.rules))).
		End("")
	return g, nil
}

// MustSeal is Seal that panics on configuration errors.
func (b *Builder) MustSeal() *Grammar {
	g, err := b.Seal()
	if err != nil {
		panic(fmt.Errorf("grammar configuration error:\n%w", err))
	}
	return g
}

// IsSealed reports whether Seal has been called.
func (b *Builder) IsSealed() bool { return b.sealed }

func (b *Builder) checkRuleNames() {
	for _, head := range b.order {
		seen := make(map[string]*Rule)
		for _, id := range b.byHead[head] {
			r := b.rules[id-1]
			if r.Name == "" {
				continue
			}
			if prev, ok := seen[r.Name]; ok {
				err := configErrorf(diag.GrmDuplicateRuleName, string(head), r.Pos,
					"rule name %q already used for %s", r.Name, head)
				b.errs = append(b.errs, err)
				b.bag.Add(err.Diagnostic().WithNote(prev.Pos, "first used here"))
				continue
			}
			seen[r.Name] = r
		}
	}
}

// checkTerminalCycles rejects terminals that reach themselves through rule
// bodies. Symbols are interned to dense ids and the dependency graph is an
// adjacency list over those ids.
func (b *Builder) checkTerminalCycles() {
	names := source.NewInterner()
	for _, name := range b.order {
		names.Intern(string(name))
	}
	edges := make([][]source.NameID, names.Len())
	for _, r := range b.rules {
		from, _ := names.Lookup(string(r.Head))
		for _, occ := range r.Occurrences() {
			to, ok := names.Lookup(string(occ.Name))
			if ok {
				edges[from] = append(edges[from], to)
			}
		}
	}
	for _, name := range b.order {
		info := b.symbols[name]
		if !info.Kind.Terminal {
			continue
		}
		start, _ := names.Lookup(string(name))
		if path := findCycle(edges, start); path != nil {
			chain := ""
			for i, id := range path {
				if i > 0 {
					chain += " -> "
				}
				chain += names.Name(id)
			}
			_ = b.fail(configErrorf(diag.GrmTerminalCycle, string(name), info.Pos,
				"terminal %s depends on itself: %s", name, chain))
		}
	}
}

// findCycle returns a path start -> ... -> start, or nil.
func findCycle(edges [][]source.NameID, start source.NameID) []source.NameID {
	parent := make(map[source.NameID]source.NameID)
	visited := make([]bool, len(edges))
	queue := []source.NameID{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, m := range edges[n] {
			if m == start {
				path := []source.NameID{start}
				for cur := n; cur != start; cur = parent[cur] {
					path = append(path, cur)
				}
				path = append(path, start)
				// path is start, n, ..., start reversed in the middle
				mid := path[1 : len(path)-1]
				for i, j := 0, len(mid)-1; i < j; i, j = i+1, j-1 {
					mid[i], mid[j] = mid[j], mid[i]
				}
				return path
			}
			if visited[m] {
				continue
			}
			visited[m] = true
			parent[m] = n
			queue = append(queue, m)
		}
	}
	return nil
}

func (b *Builder) freeze() *Grammar {
	g := &Grammar{
		lang:       b.lang,
		symbols:    make(map[SymbolName]SymbolInfo, len(b.symbols)),
		order:      append([]SymbolName(nil), b.order...),
		rules:      append([]*Rule(nil), b.rules...),
		byHead:     make(map[SymbolName][]RuleID, len(b.byHead)),
		priorities: append([]*Priority(nil), b.priorities...),
		lookaheads: make(map[SymbolName]bool, len(b.lookaheads)),
	}
	for name, info := range b.symbols {
		g.symbols[name] = *info
	}
	for head, ids := range b.byHead {
		g.byHead[head] = append([]RuleID(nil), ids...)
	}
	for name, positive := range b.lookaheads {
		g.lookaheads[name] = positive
	}
	return g
}

// sortedNames returns map keys in lexical order.
func sortedNames[V any](m map[SymbolName]V) []SymbolName {
	out := make([]SymbolName, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
