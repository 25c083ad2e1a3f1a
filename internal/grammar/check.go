package grammar

import (
	"attrparse/internal/diag"
	"attrparse/internal/source"
	"attrparse/internal/term"
)

// ruleStack tracks what a rule body has introduced and assigned so far.
type ruleStack struct {
	b           *Builder
	rule        *Rule
	head        IndexedSymbolName
	all         map[IndexedSymbolName]bool
	rhs         []IndexedSymbolName
	introduced  map[IndexedSymbolName]bool
	assignedIns map[IndexedSymbolName]bool
	assignedOut bool
	store       *term.Store
}

func (b *Builder) checkRule(rule *Rule, head IndexedSymbolName) *ConfigError {
	subject := head.String()
	if head.HasIndex() {
		return configErrorf(diag.GrmIndexedHead, subject, rule.Pos, "symbol %s on left hand side of rule has index", head)
	}
	if _, ok := b.symbols[head.Name]; !ok {
		return configErrorf(diag.GrmUnknownSymbol, subject, rule.Pos, "no symbol %s declared in grammar", head)
	}
	st := &ruleStack{
		b:           b,
		rule:        rule,
		head:        head,
		all:         make(map[IndexedSymbolName]bool),
		introduced:  map[IndexedSymbolName]bool{head: true},
		assignedIns: make(map[IndexedSymbolName]bool),
		store:       term.NewStore(),
	}
	for _, e := range rule.Body {
		if s, ok := e.(Symbol); ok {
			st.all[s.name] = true
		}
	}
	for _, e := range rule.Body {
		if err := st.check(e); err != nil {
			return err
		}
	}
	return st.checkCompleteness()
}

func (st *ruleStack) errorf(code diag.Code, pos source.Pos, format string, args ...any) *ConfigError {
	if !pos.IsValid() {
		pos = st.rule.Pos
	}
	return configErrorf(code, st.head.String(), pos, format, args...)
}

func (st *ruleStack) kindOf(s IndexedSymbolName) (Kind, bool) {
	info, ok := st.b.symbols[s.Name]
	if !ok {
		return Kind{}, false
	}
	return info.Kind, true
}

// env types variables of the given occurrences.
func (st *ruleStack) env(visible func(IndexedSymbolName) bool) func(term.VarName) (term.Sort, bool) {
	return func(v term.VarName) (term.Sort, bool) {
		sv, ok := v.(SymbolVar)
		if !ok || !visible(sv.Symbol) {
			return "", false
		}
		kind, ok := st.kindOf(sv.Symbol)
		if !ok {
			return "", false
		}
		switch sv.Attr {
		case AttrIn:
			return kind.In, true
		case AttrOut:
			return kind.Out, true
		}
		return "", false
	}
}

func (st *ruleStack) sortOf(t term.Term, pos source.Pos, visible func(IndexedSymbolName) bool) (term.Sort, term.ID, *ConfigError) {
	if t == nil {
		return "", term.NoID, st.errorf(diag.GrmBadTerm, pos, "missing term")
	}
	id := st.store.Intern(t)
	s, err := term.SortOf(st.store, id, st.env(visible))
	if err != nil {
		return "", id, st.errorf(diag.GrmBadTerm, pos, "cannot typecheck %s: %v", t, err)
	}
	return s, id, nil
}

func (st *ruleStack) isIntroduced(s IndexedSymbolName) bool { return st.introduced[s] }

func (st *ruleStack) check(e Element) *ConfigError {
	switch e := e.(type) {
	case Symbol:
		if _, ok := st.kindOf(e.name); !ok {
			return st.errorf(diag.GrmUnknownSymbol, source.NoPos, "no symbol %s declared in grammar", e.name)
		}
		if st.introduced[e.name] {
			return st.errorf(diag.GrmDuplicateOccurrence, source.NoPos, "symbol %s has already been introduced", e.name)
		}
		st.introduced[e.name] = true
		st.rhs = append(st.rhs, e.name)
	case Condition:
		s, _, err := st.sortOf(e.Guard, e.Pos, st.isIntroduced)
		if err != nil {
			return err
		}
		if s != term.Bool {
			return st.errorf(diag.GrmConditionNotBool, e.Pos, "condition must have sort BOOL but has sort %s: %s", s, e.Guard)
		}
	case Assignment:
		return st.checkAssignment(e)
	}
	return nil
}

func (st *ruleStack) checkAssignment(a Assignment) *ConfigError {
	v, ok := a.Target.(term.Var)
	if !ok {
		return st.errorf(diag.GrmBadAssignTarget, a.Pos, "expected in/out variable on left hand side, found %s", a.Target)
	}
	target, ok := v.Name.(SymbolVar)
	if !ok || target.Attr == AttrLen {
		return st.errorf(diag.GrmBadAssignTarget, a.Pos, "cannot assign to %s", v.Name)
	}
	toHead := target.Symbol == st.head
	switch {
	case target.Attr == AttrOut && toHead:
		if st.assignedOut {
			return st.errorf(diag.GrmDoubleAssignment, a.Pos, "output of %s assigned twice", st.head)
		}
	case target.Attr == AttrIn && !toHead && st.introduced[target.Symbol]:
		if st.assignedIns[target.Symbol] {
			return st.errorf(diag.GrmDoubleAssignment, a.Pos, "input of %s assigned twice", target.Symbol)
		}
	default:
		return st.errorf(diag.GrmBadAssignTarget, a.Pos, "cannot assign to variable %s here", target)
	}
	targetSort, _, err := st.sortOf(a.Target, a.Pos, func(s IndexedSymbolName) bool { return s == target.Symbol })
	if err != nil {
		return err
	}
	allowed := st.allowedIn(target)
	valueSort, id, err := st.sortOf(a.Value, a.Pos, func(s IndexedSymbolName) bool { return s == st.head || st.all[s] })
	if err != nil {
		return err
	}
	for _, fv := range term.FreeVars(st.store, id) {
		sv, ok := fv.(SymbolVar)
		if !ok || !allowed[sv] {
			return st.errorf(diag.GrmForwardReference, a.Pos, "cannot use %s in assignment to %s", fv, target)
		}
	}
	if targetSort != valueSort {
		return st.errorf(diag.GrmAssignSortMismatch, a.Pos,
			"left and right hand side of assignment have different sorts %s and %s", targetSort, valueSort)
	}
	if toHead {
		st.assignedOut = true
	} else {
		st.assignedIns[target.Symbol] = true
	}
	return nil
}

// allowedIn lists the variables an assignment to target may read: the head
// input, plus in/out of body symbols before target (all of them for the
// head output).
func (st *ruleStack) allowedIn(target SymbolVar) map[SymbolVar]bool {
	allowed := map[SymbolVar]bool{{Symbol: st.head, Attr: AttrIn}: true}
	for _, e := range st.rule.Body {
		s, ok := e.(Symbol)
		if !ok {
			continue
		}
		if s.name == target.Symbol {
			break
		}
		allowed[SymbolVar{Symbol: s.name, Attr: AttrIn}] = true
		allowed[SymbolVar{Symbol: s.name, Attr: AttrOut}] = true
	}
	return allowed
}

func (st *ruleStack) checkCompleteness() *ConfigError {
	for _, s := range st.rhs {
		kind, _ := st.kindOf(s)
		if kind.In != term.Unit && !st.assignedIns[s] {
			return st.errorf(diag.GrmMissingAssignment, source.NoPos, "missing input assignment for symbol %s", s)
		}
	}
	kind, _ := st.kindOf(st.head)
	if kind.Out != term.Unit && !st.assignedOut {
		return st.errorf(diag.GrmMissingAssignment, source.NoPos, "missing output assignment for symbol %s", st.head)
	}
	return nil
}
