package earley

import (
	"attrparse/internal/forest"
)

// build returns the constructor result for a completed key. Results are
// memoized; a key reached again while it is being built contributes no
// derivation, which cuts cyclic derivations.
func (p *parse[C]) build(k ItemKey) forest.NodeID {
	if id, ok := p.built[k]; ok {
		return id
	}
	if p.building[k] {
		return forest.NoNodeID
	}
	cons := p.run.cons
	if !cons.Retains(k.Symbol) {
		id := cons.Leaf(k)
		p.built[k] = id
		return id
	}

	p.building[k] = true
	s := p.sets[k.End]
	var results []forest.NodeID
	for _, idx := range s.derivs[complKey{sym: k.Symbol, origin: k.Start, in: k.In, out: k.Out}] {
		rule := s.items[idx].rule
	seqs:
		for _, seq := range p.sequences(itemRef{pos: k.End, idx: idx}) {
			children := make([]forest.NodeID, len(seq))
			for i, ch := range seq {
				end := k.End
				if i+1 < len(seq) {
					end = seq[i+1].start
				}
				id := p.child(ch, end)
				if !id.IsValid() {
					continue seqs
				}
				children[i] = id
			}
			results = append(results, cons.Rule(rule, k, children))
		}
	}
	delete(p.building, k)

	id := forest.NoNodeID
	if len(results) > 0 {
		id = cons.Merge(k, results)
	}
	p.built[k] = id
	return id
}

func (p *parse[C]) child(ch child, end int) forest.NodeID {
	k := ItemKey{Symbol: ch.sym, Start: ch.start, End: end, In: ch.in, Out: ch.out}
	if ch.sym.Terminal {
		return p.run.cons.Terminal(k, ch.result)
	}
	return p.build(k)
}

// sequences enumerates the child lists that lead to an item by walking
// its links back to dot zero.
func (p *parse[C]) sequences(ref itemRef) [][]child {
	if seqs, ok := p.paths[ref]; ok {
		return seqs
	}
	s := p.sets[ref.pos]
	var out [][]child
	if s.items[ref.idx].dot == 0 {
		out = [][]child{nil}
	} else {
		for _, ln := range s.links[ref.idx] {
			for _, prefix := range p.sequences(itemRef{pos: ln.child.start, idx: ln.prev}) {
				seq := make([]child, len(prefix)+1)
				copy(seq, prefix)
				seq[len(prefix)] = ln.child
				out = append(out, seq)
			}
		}
	}
	p.paths[ref] = out
	return out
}
