package syntax

import (
	"context"
	"fmt"
	"strconv"

	"attrparse/internal/diag"
	"attrparse/internal/forest"
	"attrparse/internal/grammar"
	"attrparse/internal/trace"
)

// Build converts a parse forest rooted at root. The root is always kept,
// even when its symbol is auxiliary.
//
// An auxiliary deep child is spliced into its parent. When that child is
// ambiguous, each of its derivations yields a different child list and
// the parent gains one case per list. The cases of every derivation of an
// ambiguous node are flattened into a single list; a case that still
// carries alternatives after that cannot be represented and Build returns
// a *ConversionError.
func Build(root forest.Tree, g *grammar.Grammar) (*Tree, error) {
	return BuildContext(context.Background(), root, g)
}

// BuildContext is Build recorded as a build phase of the tracer in ctx.
func BuildContext(ctx context.Context, root forest.Tree, g *grammar.Grammar) (*Tree, error) {
	if !root.IsValid() {
		return nil, fmt.Errorf("syntax: invalid forest root")
	}
	span, _ := trace.Start(ctx, trace.ScopePhase, "build:"+string(root.Key().Symbol))
	b := &builder{g: g, memo: make(map[forest.NodeID]*Tree)}
	if _, err := b.properties(root); err != nil {
		span.End("failed")
		return nil, err
	}
	t, err := b.node(root)
	if err != nil {
		span.End("failed")
		return nil, err
	}
	span.WithExtra("nodes", strconv.Itoa(len(b.memo))).
		WithExtra("cases", strconv.Itoa(len(t.Cases()))).
		End("")
	return t, nil
}

type builder struct {
	g    *grammar.Grammar
	memo map[forest.NodeID]*Tree
}

func leaf(t forest.Tree) *Tree {
	k := t.Key()
	return &Tree{Symbol: k.Symbol, Start: k.Start, End: k.End, In: k.In, Out: k.Out}
}

func (b *builder) fail(t forest.Tree, code diag.Code, format string, args ...any) error {
	k := t.Key()
	return &ConversionError{Code: code, Symbol: k.Symbol, Start: k.Start, End: k.End, Msg: fmt.Sprintf(format, args...)}
}

// node converts t to a single node, alternatives included.
func (b *builder) node(t forest.Tree) (*Tree, error) {
	if n, ok := b.memo[t.ID()]; ok {
		return n, nil
	}
	var (
		n   *Tree
		err error
	)
	switch {
	case t.IsLeaf():
		n = leaf(t)
	case t.Kind() == forest.KindRule:
		n, err = b.rule(t)
	default:
		n, err = b.forest(t)
	}
	if err != nil {
		return nil, err
	}
	b.memo[t.ID()] = n
	return n, nil
}

func (b *builder) properties(t forest.Tree) (grammar.Properties, error) {
	sym := t.Key().Symbol
	props, ok := b.g.Properties(sym)
	if !ok {
		return props, b.fail(t, diag.SynUnknownSymbol, "symbol %s does not occur in the grammar", sym)
	}
	return props, nil
}

func (b *builder) forest(t forest.Tree) (*Tree, error) {
	alts := t.Alternatives()
	cases := make([]*Tree, 0, len(alts))
	for _, alt := range alts {
		c, err := b.rule(alt)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c.Cases()...)
	}
	return b.join(t, cases)
}

// join makes one node out of flat cases.
func (b *builder) join(t forest.Tree, cases []*Tree) (*Tree, error) {
	for _, c := range cases {
		if len(c.Alternatives) > 0 {
			return nil, b.fail(t, diag.SynNestedAlternatives,
				"case by rule %d has %d nested alternatives", c.Rule, len(c.Alternatives))
		}
	}
	first := *cases[0]
	first.Alternatives = nil
	if len(cases) > 1 {
		first.Alternatives = cases[1:]
	}
	return &first, nil
}

func (b *builder) rule(t forest.Tree) (*Tree, error) {
	id := t.RuleID()
	if _, ok := b.g.Rule(id); !ok {
		return nil, b.fail(t, diag.SynUnknownRule, "unknown rule %d", id)
	}
	lists := [][]*Tree{nil}
	for _, ch := range t.Children() {
		parts, err := b.expand(ch)
		if err != nil {
			return nil, err
		}
		lists = product(lists, parts)
	}
	cases := make([]*Tree, len(lists))
	for i, children := range lists {
		n := leaf(t)
		n.Rule = id
		n.Children = children
		cases[i] = n
	}
	return b.join(t, cases)
}

// expand returns the possible contributions of a child to its parent's
// child list.
func (b *builder) expand(t forest.Tree) ([][]*Tree, error) {
	props, err := b.properties(t)
	if err != nil {
		return nil, err
	}
	aux := props.Visibility == grammar.Auxiliary
	switch {
	case !aux:
		n, err := b.node(t)
		if err != nil {
			return nil, err
		}
		return [][]*Tree{{n}}, nil
	case t.IsLeaf() || props.Structure == grammar.Flat:
		return [][]*Tree{nil}, nil
	}
	var out [][]*Tree
	for _, alt := range t.Alternatives() {
		lists := [][]*Tree{nil}
		for _, ch := range alt.Children() {
			parts, err := b.expand(ch)
			if err != nil {
				return nil, err
			}
			lists = product(lists, parts)
		}
		out = append(out, lists...)
	}
	return out, nil
}

// product appends every part to every prefix.
func product(prefixes, parts [][]*Tree) [][]*Tree {
	out := make([][]*Tree, 0, len(prefixes)*len(parts))
	for _, prefix := range prefixes {
		for _, part := range parts {
			list := make([]*Tree, 0, len(prefix)+len(part))
			list = append(list, prefix...)
			list = append(list, part...)
			out = append(out, list)
		}
	}
	return out
}
