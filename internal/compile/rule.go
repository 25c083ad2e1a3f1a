package compile

import (
	"fmt"
	"strings"

	"attrparse/internal/earley"
	"attrparse/internal/grammar"
	"attrparse/internal/term"
)

// Rule is a grammar rule lowered to slot-addressed closures.
//
// Slots: 0 is the head input, 2i-1 and 2i are the input and output of the
// i-th body symbol. The head output never gets a slot; references to it
// are replaced by the output term itself.
type Rule struct {
	ID   grammar.RuleID
	Head grammar.SymbolName
	LHS  earley.Symbol
	RHS  []earley.Symbol

	// conds[k] are the conditions whose free slots are all bound after k
	// body symbols.
	conds [][]term.Func
	// values[k] is the input of body symbol k+1, values[len(RHS)] the head
	// output.
	values []term.Func
	source *grammar.Rule
}

// Len is the number of body symbols.
func (r *Rule) Len() int { return len(r.RHS) }

// Source returns the grammar rule r was compiled from.
func (r *Rule) Source() *grammar.Rule { return r.source }

// Conditions returns how many conditions are checked at step k.
func (r *Rule) Conditions(k int) int { return len(r.conds[k]) }

// Eval checks the conditions scheduled at step k and returns the input of
// body symbol k+1, or the head output when k == Len(). env must hold at
// least 2k+1 values.
func (r *Rule) Eval(k int, env []term.Value) (term.Value, bool) {
	for _, cond := range r.conds[k] {
		v, ok := cond(env)
		if !ok || !v.Bool() {
			return term.Value{}, false
		}
	}
	return r.values[k](env)
}

// Kernel returns the rule in the form the recognizer consumes.
func (r *Rule) Kernel() earley.Rule {
	return earley.Rule{LHS: r.LHS, RHS: r.RHS, Eval: r.Eval}
}

func (r *Rule) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d %s/%d", r.ID, r.Head, len(r.RHS))
	for k, cs := range r.conds {
		if len(cs) > 0 {
			fmt.Fprintf(&sb, " c%d=%d", k, len(cs))
		}
	}
	return sb.String()
}

type allocated struct {
	id   term.ID
	step int
}

// ruleCompiler lowers one rule. Each rule gets a private term store so
// rules can be compiled concurrently.
type ruleCompiler struct {
	rule  *grammar.Rule
	n     int
	store *term.Store
	memo  map[term.ID]allocated
	out   allocated
	err   error
}

// CompileRule lowers rule. symbol maps grammar symbols to kernel symbols.
// It panics if an input assignment reads a slot that is not bound before
// the symbol it feeds, which a checked grammar never contains.
func CompileRule(rule *grammar.Rule, symbol func(grammar.SymbolName) (earley.Symbol, bool)) (*Rule, error) {
	c := &ruleCompiler{
		rule:  rule,
		n:     rule.Len(),
		store: term.NewStore(),
		memo:  make(map[term.ID]allocated),
	}
	lhs, ok := symbol(rule.Head)
	if !ok {
		return nil, fmt.Errorf("rule %d: unknown head %s", rule.ID, rule.Head)
	}
	r := &Rule{
		ID:     rule.ID,
		Head:   rule.Head,
		LHS:    lhs,
		conds:  make([][]term.Func, c.n+1),
		values: make([]term.Func, c.n+1),
		source: rule,
	}
	for _, occ := range rule.Occurrences() {
		sym, ok := symbol(occ.Name)
		if !ok {
			return nil, fmt.Errorf("rule %d: unknown symbol %s", rule.ID, occ.Name)
		}
		r.RHS = append(r.RHS, sym)
	}

	unit := c.store.MakeConst(term.UnitValue())
	output := unit
	inputs := make([]term.ID, c.n+1)
	for i := range inputs {
		inputs[i] = unit
	}
	var conds []term.ID
	for _, e := range rule.Body {
		switch e := e.(type) {
		case grammar.Assignment:
			target, ok := e.Target.(term.Var)
			if !ok {
				return nil, fmt.Errorf("rule %d: assignment target %s is not a variable", rule.ID, e.Target)
			}
			sv, ok := target.Name.(grammar.SymbolVar)
			if !ok {
				return nil, fmt.Errorf("rule %d: assignment target %s is not an attribute", rule.ID, e.Target)
			}
			k, ok := rule.Find(sv.Symbol)
			if !ok {
				return nil, fmt.Errorf("rule %d: assignment to unknown symbol %s", rule.ID, sv.Symbol)
			}
			if k == 0 {
				output = c.store.Intern(e.Value)
			} else {
				inputs[k] = c.store.Intern(e.Value)
			}
		case grammar.Condition:
			conds = append(conds, c.store.Intern(e.Guard))
		}
	}

	c.out = c.allocate(output)
	c.out.step = c.n
	if err := c.compileInto(&r.values[c.n], c.out); err != nil {
		return nil, err
	}
	for i := 1; i <= c.n; i++ {
		a := c.allocate(inputs[i])
		if a.step > i-1 {
			panic(fmt.Sprintf("compile: rule %d: input of symbol %d depends on step %d", rule.ID, i, a.step))
		}
		if err := c.compileInto(&r.values[i-1], a); err != nil {
			return nil, err
		}
	}
	for _, id := range conds {
		a := c.allocate(id)
		var f term.Func
		if err := c.compileInto(&f, a); err != nil {
			return nil, err
		}
		r.conds[a.step] = append(r.conds[a.step], f)
	}
	return r, nil
}

func (c *ruleCompiler) compileInto(dst *term.Func, a allocated) error {
	if c.err != nil {
		return c.err
	}
	f, err := term.Compile(c.store, a.id, nil)
	if err != nil {
		return fmt.Errorf("rule %d: %w", c.rule.ID, err)
	}
	*dst = f
	return nil
}

// allocate rewrites attribute variables to slots and computes the earliest
// step at which the term can be evaluated.
func (c *ruleCompiler) allocate(id term.ID) allocated {
	return term.Fold(c.store, id, term.Folder[allocated]{
		Var: func(name term.VarName) allocated {
			sv, ok := name.(grammar.SymbolVar)
			if !ok {
				c.fail(fmt.Errorf("rule %d: variable %s is not an attribute", c.rule.ID, name))
				return allocated{id: c.store.MakeVar(name)}
			}
			k, ok := c.rule.Find(sv.Symbol)
			if !ok {
				c.fail(fmt.Errorf("rule %d: unknown symbol %s", c.rule.ID, sv.Symbol))
				return allocated{id: c.store.MakeVar(name)}
			}
			switch {
			case sv.Attr == grammar.AttrIn && k == 0:
				return allocated{id: c.store.MakeVar(term.Slot(0)), step: 0}
			case sv.Attr == grammar.AttrIn:
				return allocated{id: c.store.MakeVar(term.Slot(2*k - 1)), step: k}
			case k == 0:
				return c.out
			default:
				return allocated{id: c.store.MakeVar(term.Slot(2 * k)), step: k}
			}
		},
		Const: func(v term.Value) allocated {
			return allocated{id: c.store.MakeConst(v)}
		},
		App: func(op term.Op, args []allocated) allocated {
			ids := make([]term.ID, len(args))
			step := 0
			for i, a := range args {
				ids[i] = a.id
				step = max(step, a.step)
			}
			return allocated{id: c.store.MakeApp(op, ids...), step: step}
		},
	}, c.memo)
}

func (c *ruleCompiler) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}
