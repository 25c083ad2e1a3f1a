package priority

import (
	"fmt"
	"slices"
	"strings"

	"attrparse/internal/compile"
	"attrparse/internal/diag"
	"attrparse/internal/earley"
	"attrparse/internal/grammar"
	"attrparse/internal/term"
)

// Token is the part of a lexed token a priority condition can see.
type Token struct {
	Len int
	In  term.Value
	Out term.Value
}

// Edge is a compiled priority: tokens of Lower are discarded when Holds
// against a token of Higher. Derived edges come from the transitive
// closure of unconditional priorities.
type Edge struct {
	Lower   int
	Higher  int
	Source  *grammar.Priority
	Derived bool
	cond    term.Func
}

// Holds evaluates the edge condition. Evaluation failure counts as false.
func (e *Edge) Holds(lower, higher Token) bool {
	if e.cond == nil {
		return true
	}
	v, ok := e.cond([]term.Value{
		term.IntValue(int64(lower.Len)), lower.In, lower.Out,
		term.IntValue(int64(higher.Len)), higher.In, higher.Out,
	})
	return ok && v.Bool()
}

// Unconditional reports whether the edge ignores the tokens.
func (e *Edge) Unconditional() bool { return e.cond == nil }

// env layout of compiled conditions
func slotOf(name term.VarName) (int, bool) {
	v, ok := name.(grammar.TokenVar)
	if !ok {
		return 0, false
	}
	base := 0
	if v.Side == grammar.Higher {
		base = 3
	}
	switch v.Attr {
	case grammar.AttrLen:
		return base, true
	case grammar.AttrIn:
		return base + 1, true
	case grammar.AttrOut:
		return base + 2, true
	}
	return 0, false
}

// Resolver selects tokens according to the priorities of a grammar. It is
// immutable and safe for concurrent use.
type Resolver struct {
	table   *compile.Table
	byLower map[int][]*Edge
	edges   []*Edge
}

// New compiles the priorities of table's grammar. Declared priorities are
// applied pairwise with their conditions; unconditional ones are also
// closed transitively. A cycle among unconditional priorities is a
// *grammar.ConfigError.
func New(table *compile.Table) (*Resolver, error) {
	r := &Resolver{table: table, byLower: make(map[int][]*Edge)}
	store := term.NewStore()
	uncond := make(map[int][]int)
	for _, p := range table.Grammar.Priorities() {
		lower, okL := table.Symbol(p.Lower)
		higher, okH := table.Symbol(p.Higher)
		if !okL || !okH || !lower.Terminal || !higher.Terminal {
			return nil, &grammar.ConfigError{
				Code:    diag.PriNotTerminal,
				Subject: fmt.Sprintf("%s < %s", p.Lower, p.Higher),
				Pos:     p.Pos,
				Message: "priority must relate two terminals",
			}
		}
		e := &Edge{Lower: lower.Index, Higher: higher.Index, Source: p}
		if !p.Unconditional() {
			f, err := term.Compile(store, store.Intern(p.Condition), slotOf)
			if err != nil {
				return nil, &grammar.ConfigError{
					Code:    diag.PriConditionSort,
					Subject: fmt.Sprintf("%s < %s", p.Lower, p.Higher),
					Pos:     p.Pos,
					Message: "cannot compile priority condition",
					Err:     err,
				}
			}
			e.cond = f
		} else if !slices.Contains(uncond[e.Lower], e.Higher) {
			uncond[e.Lower] = append(uncond[e.Lower], e.Higher)
		}
		r.add(e)
	}
	if err := r.close(uncond); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Resolver) add(e *Edge) {
	r.edges = append(r.edges, e)
	r.byLower[e.Lower] = append(r.byLower[e.Lower], e)
}

// close adds derived unconditional edges for every terminal reachable over
// unconditional edges and rejects cycles.
func (r *Resolver) close(uncond map[int][]int) error {
	lowers := make([]int, 0, len(uncond))
	for l := range uncond {
		lowers = append(lowers, l)
	}
	slices.Sort(lowers)
	for _, start := range lowers {
		parent := map[int]int{}
		queue := slices.Clone(uncond[start])
		for _, h := range queue {
			parent[h] = start
		}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if cur == start {
				return r.cycleError(start, parent)
			}
			if !r.hasUnconditional(start, cur) {
				r.add(&Edge{Lower: start, Higher: cur, Derived: true})
			}
			for _, next := range uncond[cur] {
				if _, seen := parent[next]; seen {
					continue
				}
				parent[next] = cur
				queue = append(queue, next)
			}
		}
	}
	return nil
}

func (r *Resolver) hasUnconditional(lower, higher int) bool {
	for _, e := range r.byLower[lower] {
		if e.Higher == higher && e.Unconditional() {
			return true
		}
	}
	return false
}

func (r *Resolver) cycleError(start int, parent map[int]int) error {
	path := []string{string(r.table.Terminals[start])}
	for cur := parent[start]; cur != start; cur = parent[cur] {
		path = append(path, string(r.table.Terminals[cur]))
	}
	path = append(path, string(r.table.Terminals[start]))
	slices.Reverse(path)
	return &grammar.ConfigError{
		Code:    diag.PriCycle,
		Subject: string(r.table.Terminals[start]),
		Pos:     r.byLower[start][0].Source.Pos,
		Message: "unconditional priorities form a cycle: " + strings.Join(path, " < "),
	}
}

// Edges returns all compiled edges, declared ones first.
func (r *Resolver) Edges() []*Edge { return slices.Clone(r.edges) }

// Select keeps the tokens of batch that no token of batch or selected
// overrides and returns them together with selected. The result does not
// depend on the order of tokens within batch, and selecting the same batch
// twice changes nothing.
func (r *Resolver) Select(batch, selected earley.Tokens) earley.Tokens {
	out := selected.Clone()
	pool := make(map[int][]Token)
	for _, src := range []earley.Tokens{batch, selected} {
		for k, toks := range src {
			for _, tok := range toks {
				pool[k.Terminal] = append(pool[k.Terminal], Token{Len: tok.Length, In: k.In, Out: tok.Out})
			}
		}
	}
	for _, k := range batch.Keys() {
		for _, tok := range batch[k] {
			lower := Token{Len: tok.Length, In: k.In, Out: tok.Out}
			if !r.overridden(k.Terminal, lower, pool) {
				out.Add(k, tok)
			}
		}
	}
	return out
}

func (r *Resolver) overridden(terminal int, lower Token, pool map[int][]Token) bool {
	for _, e := range r.byLower[terminal] {
		for _, h := range pool[e.Higher] {
			if e.Holds(lower, h) {
				return true
			}
		}
	}
	return false
}

var _ earley.Selector = (*Resolver)(nil)
