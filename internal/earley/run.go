package earley

import (
	"fmt"
	"slices"
	"strconv"

	"attrparse/internal/forest"
	"attrparse/internal/term"
	"attrparse/internal/trace"
)

type forestRef = forest.NodeID

// Grammar is an immutable kernel grammar. It is safe to share between
// concurrent runs as long as its lexer and selector are.
type Grammar[C any] struct {
	rules    []Rule
	byLHS    map[Symbol][]int
	lexer    Lexer[C]
	selector Selector
}

// New prepares rules for recognition. A nil selector keeps every token.
func New[C any](rules []Rule, lexer Lexer[C], selector Selector) *Grammar[C] {
	if selector == nil {
		selector = SelectAll{}
	}
	g := &Grammar[C]{
		rules:    rules,
		byLHS:    make(map[Symbol][]int),
		lexer:    lexer,
		selector: selector,
	}
	for i, r := range rules {
		g.byLHS[r.LHS] = append(g.byLHS[r.LHS], i)
	}
	return g
}

// Rules returns the kernel rules.
func (g *Grammar[C]) Rules() []Rule { return g.rules }

type parseKey struct {
	start Symbol
	pos   int
	param term.Value
}

// Run is one parse over one input. Nested parses started by lexers share
// the run: its constructor and a memo of outcomes per start symbol,
// position and parameter. A Run is not safe for concurrent use.
type Run[C any] struct {
	g      *Grammar[C]
	input  Input[C]
	cons   Constructor
	memo   map[parseKey]Outcome
	active map[parseKey]bool
	stats  Stats

	tracer trace.Tracer
	span   uint64
}

// NewRun starts a run over input.
func (g *Grammar[C]) NewRun(input Input[C], cons Constructor) *Run[C] {
	return &Run[C]{
		g:      g,
		input:  input,
		cons:   cons,
		memo:   make(map[parseKey]Outcome),
		active: make(map[parseKey]bool),
	}
}

// Traced records a position span under parent for every chart position
// the run processes, when tracer emits ScopePosition.
func (r *Run[C]) Traced(tracer trace.Tracer, parent uint64) *Run[C] {
	if tracer != nil && tracer.Level().Allows(trace.ScopePosition) {
		r.tracer, r.span = tracer, parent
	}
	return r
}

func (r *Run[C]) Input() Input[C]          { return r.input }
func (r *Run[C]) Constructor() Constructor { return r.cons }
func (r *Run[C]) Stats() Stats             { return r.stats }

// Parse recognizes start with input param beginning at pos and returns the
// longest match. A parse that re-enters itself through a lexer fails.
func (r *Run[C]) Parse(start Symbol, pos int, param term.Value) Outcome {
	key := parseKey{start: start, pos: pos, param: param}
	if out, ok := r.memo[key]; ok {
		return out
	}
	if r.active[key] {
		return Outcome{Position: pos}
	}
	r.active[key] = true
	p := &parse[C]{
		run:      r,
		start:    start,
		origin:   pos,
		param:    param,
		sets:     make(map[int]*set),
		maxPos:   pos,
		envs:     newEnvTable(),
		paths:    make(map[itemRef][][]child),
		built:    make(map[ItemKey]forest.NodeID),
		building: make(map[ItemKey]bool),
	}
	p.recognize()
	out := p.outcome()
	delete(r.active, key)
	r.memo[key] = out
	return out
}

type parse[C any] struct {
	run    *Run[C]
	start  Symbol
	origin int
	param  term.Value
	sets   map[int]*set
	maxPos int
	envs   *envTable

	paths    map[itemRef][][]child
	built    map[ItemKey]forest.NodeID
	building map[ItemKey]bool
}

func (p *parse[C]) set(pos int) *set {
	s, ok := p.sets[pos]
	if !ok {
		s = newSet(pos)
		p.sets[pos] = s
		p.maxPos = max(p.maxPos, pos)
	}
	return s
}

func (p *parse[C]) add(pos int, it item, ln *link) {
	if p.set(pos).add(it, ln) {
		p.run.stats.Items++
	}
}

func (p *parse[C]) recognize() {
	p.run.stats.Parses++
	root := p.envs.root(p.param)
	for _, ri := range p.run.g.byLHS[p.start] {
		p.add(p.origin, item{rule: ri, origin: p.origin, env: root}, nil)
	}
	for pos := p.origin; pos <= p.maxPos; pos++ {
		s := p.sets[pos]
		if s == nil {
			continue
		}
		p.run.stats.Positions++
		span := p.positionSpan(pos)
		p.close(s)
		span.WithExtra("items", strconv.Itoa(len(s.items))).End("")
	}
}

func (p *parse[C]) positionSpan(pos int) *trace.Span {
	if p.run.tracer == nil {
		return nil
	}
	span := trace.Begin(p.run.tracer, trace.ScopePosition, "pos:"+strconv.Itoa(pos), p.run.span)
	return span.WithExtra("start", p.start.String()).
		WithExtra("origin", strconv.Itoa(p.origin))
}

// close runs prediction and completion to a fixpoint, then lexes the
// terminal keys expected at this position. Zero-length tokens add items to
// the same set, so the loop repeats until no new keys appear.
func (p *parse[C]) close(s *set) {
	for {
		for s.queue < len(s.items) {
			idx := s.queue
			s.queue++
			p.process(s, idx)
		}
		if len(s.pending) == 0 {
			return
		}
		pending := s.pending
		s.pending = nil
		batch := make(Tokens)
		for _, tk := range pending {
			for _, tok := range p.run.g.lexer.Lex(p.run, s.pos, tk) {
				if tok.Length < 0 {
					panic(fmt.Sprintf("earley: lexer returned negative length %d for %v", tok.Length, tk))
				}
				batch.Add(tk, tok)
			}
		}
		p.run.stats.Tokens += batch.Count()
		prev := s.selected
		s.selected = p.run.g.selector.Select(batch, prev)
		for _, tk := range s.selected.Keys() {
			wk := waitKey{sym: Symbol{Terminal: true, Index: tk.Terminal}, in: tk.In}
			for _, tok := range s.selected[tk] {
				if prev.Contains(tk, tok) {
					continue
				}
				for _, w := range s.waiters[wk] {
					p.scan(s, w, tk, tok)
				}
			}
		}
	}
}

func (p *parse[C]) process(s *set, idx int) {
	it := s.items[idx]
	r := &p.run.g.rules[it.rule]
	env := p.envs.values(it.env)
	v, ok := r.Eval(it.dot, env)
	if !ok {
		return
	}
	if it.dot == len(r.RHS) {
		p.complete(s, idx, r.LHS, env[0], v)
		return
	}

	sym := r.RHS[it.dot]
	wk := waitKey{sym: sym, in: v}
	s.waiters[wk] = append(s.waiters[wk], idx)
	if sym.Terminal {
		tk := TerminalKey{Terminal: sym.Index, In: v}
		if !s.lexed[tk] {
			s.lexed[tk] = true
			s.pending = append(s.pending, tk)
		}
		for _, tok := range s.selected[tk] {
			p.scan(s, idx, tk, tok)
		}
		return
	}
	if !s.predicted[wk] {
		s.predicted[wk] = true
		root := p.envs.root(v)
		for _, ri := range p.run.g.byLHS[sym] {
			p.add(s.pos, item{rule: ri, origin: s.pos, env: root}, nil)
		}
	}
	for _, out := range s.empties[wk] {
		p.advance(s, idx, child{sym: sym, start: s.pos, in: v, out: out}, s.pos)
	}
}

func (p *parse[C]) complete(s *set, idx int, lhs Symbol, in, out term.Value) {
	it := s.items[idx]
	ck := complKey{sym: lhs, origin: it.origin, in: in, out: out}
	known := len(s.derivs[ck]) > 0
	s.derivs[ck] = append(s.derivs[ck], idx)
	if known {
		return
	}
	wk := waitKey{sym: lhs, in: in}
	if it.origin == s.pos {
		s.empties[wk] = append(s.empties[wk], out)
	}
	origin := p.sets[it.origin]
	ch := child{sym: lhs, start: it.origin, in: in, out: out}
	for _, w := range origin.waiters[wk] {
		p.advance(origin, w, ch, s.pos)
	}
}

func (p *parse[C]) scan(s *set, idx int, tk TerminalKey, tok Token) {
	ch := child{
		sym:    Symbol{Terminal: true, Index: tk.Terminal},
		start:  s.pos,
		in:     tk.In,
		out:    tok.Out,
		result: tok.Result,
	}
	p.advance(s, idx, ch, s.pos+tok.Length)
}

func (p *parse[C]) advance(from *set, idx int, ch child, end int) {
	it := from.items[idx]
	next := item{rule: it.rule, dot: it.dot + 1, origin: it.origin, env: p.envs.extend(it.env, ch.in, ch.out)}
	p.add(end, next, &link{prev: idx, child: ch})
}

func (p *parse[C]) outcome() Outcome {
	for pos := p.maxPos; pos >= p.origin; pos-- {
		s := p.sets[pos]
		if s == nil {
			continue
		}
		var outs []term.Value
		for ck := range s.derivs {
			if ck.sym == p.start && ck.origin == p.origin && ck.in == p.param {
				outs = append(outs, ck.out)
			}
		}
		if len(outs) == 0 {
			continue
		}
		slices.SortFunc(outs, compareValues)
		results := make(map[term.Value]forest.NodeID, len(outs))
		for _, out := range outs {
			results[out] = p.build(ItemKey{Symbol: p.start, Start: p.origin, End: pos, In: p.param, Out: out})
		}
		return Outcome{Matched: true, Position: pos, Length: pos - p.origin, Results: results}
	}
	return Outcome{Position: p.maxPos}
}
