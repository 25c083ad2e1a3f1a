package parser

import (
	"attrparse/internal/compile"
	"attrparse/internal/earley"
	"attrparse/internal/forest"
)

// constructor turns recognized kernel keys into forest nodes. Symbols that
// are not Deep are never enumerated and become leaves.
type constructor struct {
	table *compile.Table
	store *forest.Store
	deep  [2][]bool // [nonterminal, terminal] by index
}

func newConstructor(table *compile.Table, store *forest.Store) *constructor {
	c := &constructor{table: table, store: store}
	c.deep[0] = make([]bool, len(table.Nonterminals))
	for i, name := range table.Nonterminals {
		c.deep[0][i] = table.Grammar.IsDeep(name)
	}
	c.deep[1] = make([]bool, len(table.Terminals))
	for i, name := range table.Terminals {
		c.deep[1][i] = table.Grammar.IsDeep(name)
	}
	return c
}

func (c *constructor) key(k earley.ItemKey) forest.Key {
	return forest.Key{
		Symbol: c.table.Name(k.Symbol),
		Start:  k.Start,
		End:    k.End,
		In:     k.In,
		Out:    k.Out,
	}
}

func (c *constructor) Retains(sym earley.Symbol) bool {
	if sym.Terminal {
		return c.deep[1][sym.Index]
	}
	return c.deep[0][sym.Index]
}

func (c *constructor) Leaf(k earley.ItemKey) forest.NodeID {
	return c.store.Leaf(c.key(k))
}

func (c *constructor) Rule(rule int, k earley.ItemKey, children []forest.NodeID) forest.NodeID {
	return c.store.Rule(c.table.Rules[rule].ID, c.key(k), children)
}

func (c *constructor) Terminal(k earley.ItemKey, result forest.NodeID) forest.NodeID {
	if result.IsValid() {
		return result
	}
	return c.store.Leaf(c.key(k))
}

func (c *constructor) Merge(k earley.ItemKey, results []forest.NodeID) forest.NodeID {
	return c.store.Merge(c.key(k), results...)
}

var _ earley.Constructor = (*constructor)(nil)
