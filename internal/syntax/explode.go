package syntax

import (
	"fmt"
	"strings"
)

// Explode enumerates every fully disambiguated tree t stands for:
// each case of t combined with every explosion of its children.
// Duplicates are removed and the order is deterministic. The result grows
// exponentially with nested ambiguity; check Count first on large inputs.
func (t *Tree) Explode() []*Tree {
	var out []*Tree
	seen := make(map[string]bool)
	for _, c := range t.Cases() {
		for _, children := range explodeChildren(c.Children) {
			n := *c
			n.Alternatives = nil
			n.Children = children
			key := n.structureKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, &n)
		}
	}
	return out
}

// structureKey renders every field Equal compares, unlike String which
// omits spans, rules and inner attributes.
func (t *Tree) structureKey() string {
	var sb strings.Builder
	t.writeKey(&sb)
	return sb.String()
}

func (t *Tree) writeKey(sb *strings.Builder) {
	fmt.Fprintf(sb, "%s[%d:%d](%s;%s)#%d", t.Symbol, t.Start, t.End, t.In, t.Out, t.Rule)
	sb.WriteByte('(')
	for _, ch := range t.Children {
		ch.writeKey(sb)
		sb.WriteByte(',')
	}
	sb.WriteByte(')')
	if len(t.Alternatives) > 0 {
		sb.WriteByte('{')
		for _, a := range t.Alternatives {
			a.writeKey(sb)
			sb.WriteByte('|')
		}
		sb.WriteByte('}')
	}
}

func explodeChildren(children []*Tree) [][]*Tree {
	lists := [][]*Tree{nil}
	for _, ch := range children {
		variants := ch.Explode()
		next := make([][]*Tree, 0, len(lists)*len(variants))
		for _, prefix := range lists {
			for _, v := range variants {
				list := make([]*Tree, len(prefix), len(prefix)+1)
				copy(list, prefix)
				next = append(next, append(list, v))
			}
		}
		lists = next
	}
	return lists
}

// Count returns how many trees Explode would enumerate before
// deduplication, saturating at limit. A limit <= 0 means no limit.
func (t *Tree) Count(limit int) int {
	total := 0
	for _, c := range t.Cases() {
		n := 1
		for _, ch := range c.Children {
			n = saturate(n*ch.Count(limit), limit)
		}
		total = saturate(total+n, limit)
	}
	return total
}

func saturate(v, limit int) int {
	if limit > 0 && v > limit {
		return limit
	}
	return v
}
