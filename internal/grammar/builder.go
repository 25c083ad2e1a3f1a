package grammar

import (
	"errors"
	"fmt"

	"attrparse/internal/diag"
	"attrparse/internal/source"
	"attrparse/internal/term"
)

// Builder collects declarations, rules and priorities. It is single-threaded.
// Errors are recorded as they happen and returned together by Seal; after
// Seal every mutator fails with ErrSealed.
type Builder struct {
	lang       *term.Language
	symbols    map[SymbolName]*SymbolInfo
	order      []SymbolName
	rules      []*Rule
	byHead     map[SymbolName][]RuleID
	priorities []*Priority
	pairs      map[[2]SymbolName]PriorityID
	lookaheads map[SymbolName]bool
	imported   map[*Rule]bool
	anon       int

	bag  *diag.Bag
	errs []error

	sealed  bool
	grammar *Grammar
	sealErr error
}

// NewBuilder returns an empty builder over the builtin sorts.
func NewBuilder() *Builder {
	return &Builder{
		lang:       term.NewLanguage(),
		symbols:    make(map[SymbolName]*SymbolInfo),
		byHead:     make(map[SymbolName][]RuleID),
		pairs:      make(map[[2]SymbolName]PriorityID),
		lookaheads: make(map[SymbolName]bool),
		imported:   make(map[*Rule]bool),
		bag:        diag.NewBag(0),
	}
}

// Language exposes the sort registry.
func (b *Builder) Language() *term.Language { return b.lang }

// Diagnostics returns everything recorded so far.
func (b *Builder) Diagnostics() *diag.Bag { return b.bag }

// Err joins all recorded errors, including those raised after sealing.
func (b *Builder) Err() error { return errors.Join(b.errs...) }

func (b *Builder) fail(err *ConfigError) error {
	b.bag.Add(err.Diagnostic())
	b.errs = append(b.errs, err)
	return err
}

func (b *Builder) checkSealed(what string, pos source.Pos) error {
	if !b.sealed {
		return nil
	}
	err := configErrorf(diag.GrmSealed, what, pos, "cannot modify a sealed grammar")
	err.Err = ErrSealed
	return b.fail(err)
}

// AddSort registers a user sort.
func (b *Builder) AddSort(s term.Sort, codec term.Codec) error {
	pos := source.Caller(0, pkgPath)
	if err := b.checkSealed(string(s), pos); err != nil {
		return err
	}
	if err := b.lang.AddSort(s, codec); err != nil {
		return b.fail(configErrorf(diag.GrmUnknownSort, string(s), pos, "%v", err))
	}
	return nil
}

// Terminal declares (or re-fetches) a terminal. Terminals default to Flat.
func (b *Builder) Terminal(name SymbolName, in, out term.Sort, opts ...SymbolOption) Symbol {
	return b.declare(name, Kind{Terminal: true, In: in, Out: out}, opts)
}

// Nonterminal declares (or re-fetches) a nonterminal. Nonterminals default to Deep.
func (b *Builder) Nonterminal(name SymbolName, in, out term.Sort, opts ...SymbolOption) Symbol {
	return b.declare(name, Kind{In: in, Out: out}, opts)
}

// FreshTerminal declares a terminal named base-i for the first unused i.
func (b *Builder) FreshTerminal(base SymbolName, in, out term.Sort, opts ...SymbolOption) Symbol {
	return b.Terminal(b.Fresh(base), in, out, opts...)
}

// FreshNonterminal declares a nonterminal named base-i for the first unused i.
func (b *Builder) FreshNonterminal(base SymbolName, in, out term.Sort, opts ...SymbolOption) Symbol {
	return b.Nonterminal(b.Fresh(base), in, out, opts...)
}

// Fresh returns base-0, base-1, ... whichever is not declared yet.
func (b *Builder) Fresh(base SymbolName) SymbolName {
	for i := 0; ; i++ {
		name := SymbolName(fmt.Sprintf("%s-%d", base, i))
		if _, ok := b.symbols[name]; !ok {
			return name
		}
	}
}

func defaultProps(k Kind) Properties {
	if k.Terminal {
		return Properties{Visibility: Visible, Structure: Flat}
	}
	return Properties{Visibility: Visible, Structure: Deep}
}

func (b *Builder) declare(name SymbolName, kind Kind, opts []SymbolOption) Symbol {
	pos := source.Caller(0, pkgPath)
	sym := Symbol{name: IndexedSymbolName{Name: name}, kind: kind}
	if existing, ok := b.symbols[name]; ok {
		if existing.Kind != kind {
			_ = b.fail(configErrorf(diag.GrmSymbolRedeclared, string(name), pos,
				"declared as %s, previously %s at %s", kind, existing.Kind, existing.Pos))
			return Symbol{name: sym.name, kind: existing.Kind}
		}
		if len(opts) > 0 {
			props := existing.Props
			for _, opt := range opts {
				opt(&props)
			}
			if props != existing.Props {
				_ = b.fail(configErrorf(diag.GrmSymbolRedeclared, string(name), pos,
					"redeclared with different properties (%s/%s)", props.Visibility, props.Structure))
			}
		}
		return sym
	}
	if err := b.checkSealed(string(name), pos); err != nil {
		return sym
	}
	if name == "" {
		_ = b.fail(configErrorf(diag.GrmUnknownSymbol, "", pos, "empty symbol name"))
		return sym
	}
	for _, s := range []term.Sort{kind.In, kind.Out} {
		if !b.lang.Has(s) {
			_ = b.fail(configErrorf(diag.GrmUnknownSort, string(name), pos, "unknown sort %q", s))
			return sym
		}
	}
	props := defaultProps(kind)
	for _, opt := range opts {
		opt(&props)
	}
	b.symbols[name] = &SymbolInfo{Name: name, Kind: kind, Props: props, Pos: pos}
	b.order = append(b.order, name)
	return sym
}

// Lookup returns the handle of a declared symbol.
func (b *Builder) Lookup(name SymbolName) (Symbol, bool) {
	info, ok := b.symbols[name]
	if !ok {
		return Symbol{}, false
	}
	return Symbol{name: IndexedSymbolName{Name: name}, kind: info.Kind}, true
}

func (b *Builder) setProps(sym Symbol, what string, update func(*Properties)) error {
	pos := source.Caller(0, pkgPath)
	if err := b.checkSealed(sym.String(), pos); err != nil {
		return err
	}
	info, ok := b.symbols[sym.Name()]
	if !ok {
		return b.fail(configErrorf(diag.GrmUnknownSymbol, sym.String(), pos, "cannot make %s: not declared", what))
	}
	update(&info.Props)
	return nil
}

func (b *Builder) MakeFlat(sym Symbol) error {
	return b.setProps(sym, "flat", func(p *Properties) { p.Structure = Flat })
}

func (b *Builder) MakeDeep(sym Symbol) error {
	return b.setProps(sym, "deep", func(p *Properties) { p.Structure = Deep })
}

func (b *Builder) MakeAuxiliary(sym Symbol) error {
	return b.setProps(sym, "auxiliary", func(p *Properties) { p.Visibility = Auxiliary })
}

func (b *Builder) MakeVisible(sym Symbol) error {
	return b.setProps(sym, "visible", func(p *Properties) { p.Visibility = Visible })
}

// AddRule checks and adds an unnamed rule for head.
func (b *Builder) AddRule(head Symbol, body ...Element) (RuleID, error) {
	return b.addRule("", head, body, source.Caller(0, pkgPath))
}

// AddNamedRule is AddRule with a name unique among the rules of head.
func (b *Builder) AddNamedRule(name string, head Symbol, body ...Element) (RuleID, error) {
	return b.addRule(name, head, body, source.Caller(0, pkgPath))
}

func (b *Builder) addRule(name string, head Symbol, body []Element, pos source.Pos) (RuleID, error) {
	if err := b.checkSealed(head.String(), pos); err != nil {
		return NoRuleID, err
	}
	rule := &Rule{Name: name, Pos: pos, Head: head.Name(), Body: flatten(body)}
	if err := b.checkRule(rule, head.Indexed()); err != nil {
		return NoRuleID, b.fail(err)
	}
	return b.appendRule(rule), nil
}

func (b *Builder) appendRule(rule *Rule) RuleID {
	rule.ID = RuleID(len(b.rules) + 1) // #nosec G115 -- bounded by rule count
	b.rules = append(b.rules, rule)
	b.byHead[rule.Head] = append(b.byHead[rule.Head], rule.ID)
	return rule.ID
}

// AddPriority declares that lower tokens are discarded when cond holds
// against a competing higher token. A nil cond always holds.
func (b *Builder) AddPriority(lower, higher Symbol, cond term.Term) (PriorityID, error) {
	pos := source.Caller(0, pkgPath)
	subject := fmt.Sprintf("%s < %s", lower.Name(), higher.Name())
	if err := b.checkSealed(subject, pos); err != nil {
		return 0, err
	}
	p := &Priority{Lower: lower.Name(), Higher: higher.Name(), Condition: cond, Pos: pos}
	if err := b.checkPriority(p, subject); err != nil {
		return 0, b.fail(err)
	}
	return b.appendPriority(p), nil
}

func (b *Builder) appendPriority(p *Priority) PriorityID {
	p.ID = PriorityID(len(b.priorities) + 1) // #nosec G115 -- bounded by priority count
	b.priorities = append(b.priorities, p)
	b.pairs[[2]SymbolName{p.Lower, p.Higher}] = p.ID
	return p.ID
}

func (b *Builder) checkPriority(p *Priority, subject string) *ConfigError {
	sides := map[Side]*SymbolInfo{}
	for side, name := range map[Side]SymbolName{Lower: p.Lower, Higher: p.Higher} {
		info, ok := b.symbols[name]
		if !ok || !info.Kind.Terminal {
			return configErrorf(diag.PriNotTerminal, subject, p.Pos, "terminal %q does not exist in grammar", name)
		}
		sides[side] = info
	}
	if p.Lower == p.Higher {
		return configErrorf(diag.PriSelf, subject, p.Pos, "terminal %s prioritized against itself", p.Lower)
	}
	if _, dup := b.pairs[[2]SymbolName{p.Lower, p.Higher}]; dup {
		return configErrorf(diag.PriDuplicate, subject, p.Pos, "priority between %s and %s already declared", p.Lower, p.Higher)
	}
	if p.Condition == nil {
		return nil
	}
	store := term.NewStore()
	s, err := term.SortOf(store, store.Intern(p.Condition), func(v term.VarName) (term.Sort, bool) {
		tv, ok := v.(TokenVar)
		if !ok {
			return "", false
		}
		info := sides[tv.Side]
		switch tv.Attr {
		case AttrIn:
			return info.Kind.In, true
		case AttrOut:
			return info.Kind.Out, true
		}
		return term.Int, true
	})
	if err != nil {
		return configErrorf(diag.PriConditionSort, subject, p.Pos, "condition %s: %v", p.Condition, err)
	}
	if s != term.Bool {
		return configErrorf(diag.PriConditionSort, subject, p.Pos, "condition %s has sort %s, want BOOL", p.Condition, s)
	}
	return nil
}

// AndNext declares a positive lookahead terminal for sym: it consumes
// nothing and succeeds iff sym matches at the current position. Its output
// is sym's output. No lexer may be registered for it.
func (b *Builder) AndNext(sym Symbol) Symbol {
	return b.lookahead(sym, true)
}

// NotNext declares a negative lookahead terminal for sym: it consumes
// nothing and succeeds iff sym does not match. Its output is UNIT.
func (b *Builder) NotNext(sym Symbol) Symbol {
	return b.lookahead(sym, false)
}

func (b *Builder) lookahead(sym Symbol, positive bool) Symbol {
	base := "_notNext-"
	out := term.Unit
	if positive {
		base = "_andNext-"
		out = sym.Kind().Out
	}
	t := b.FreshTerminal(SymbolName(base)+sym.Name(), sym.Kind().In, out)
	if b.sealed {
		return t
	}
	body := Body{sym, sym.SetIn(t.In())}
	if positive {
		body = append(body, t.SetOut(sym.Out()))
	}
	if _, err := b.AddRule(t, body...); err == nil {
		b.lookaheads[t.Name()] = positive
	}
	return t
}

// Extend imports every symbol, rule, priority and lookahead of a sealed
// parent grammar. Imported rules and priorities are renumbered.
func (b *Builder) Extend(parent *Grammar) error {
	pos := source.Caller(0, pkgPath)
	if err := b.checkSealed("extend", pos); err != nil {
		return err
	}
	if parent == nil {
		return b.fail(configErrorf(diag.GrmUnknownSymbol, "extend", pos, "parent grammar is nil"))
	}
	if err := b.lang.Join(parent.lang); err != nil {
		return b.fail(configErrorf(diag.GrmUnknownSort, "extend", pos, "%v", err))
	}
	var errs []error
	for name, positive := range parent.lookaheads {
		_, declared := b.symbols[name]
		if mode, ok := b.lookaheads[name]; (ok && mode != positive) || (declared && !ok) {
			errs = append(errs, b.fail(configErrorf(diag.GrmLookaheadConflict, string(name), pos,
				"lookahead mode conflicts with an existing declaration")))
		}
	}
	for _, name := range parent.order {
		info := parent.symbols[name]
		if existing, ok := b.symbols[name]; ok {
			if existing.Kind != info.Kind {
				errs = append(errs, b.fail(configErrorf(diag.GrmSymbolRedeclared, string(name), pos,
					"parent declares %s, here %s", info.Kind, existing.Kind)))
			}
			continue
		}
		cp := info
		b.symbols[name] = &cp
		b.order = append(b.order, name)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	for name, positive := range parent.lookaheads {
		b.lookaheads[name] = positive
	}
	for _, r := range parent.rules {
		origin := r.origin
		if origin == nil {
			origin = r
		}
		if b.imported[origin] {
			continue
		}
		b.imported[origin] = true
		cp := *r
		cp.origin = origin
		b.appendRule(&cp)
	}
	for _, p := range parent.priorities {
		if _, dup := b.pairs[[2]SymbolName{p.Lower, p.Higher}]; dup {
			continue
		}
		cp := *p
		b.appendPriority(&cp)
	}
	return nil
}

// anonIndex allocates a negative occurrence index that never collides with
// user indexes.
func (b *Builder) anonIndex() int {
	b.anon--
	return b.anon
}
