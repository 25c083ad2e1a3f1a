package grammar

import (
	"strings"

	"attrparse/internal/source"
	"attrparse/internal/term"
)

// RuleID identifies a rule within one grammar. IDs are dense and start at 1.
type RuleID uint32

const NoRuleID RuleID = 0

func (id RuleID) IsValid() bool { return id != NoRuleID }

// Rule is a checked production. Body holds only Symbol, Assignment and
// Condition elements. Rules are immutable once added.
type Rule struct {
	ID   RuleID
	Name string
	Pos  source.Pos
	Head SymbolName
	Body []Element

	// origin is the rule this one was imported from by Extend.
	origin *Rule
}

// Occurrences lists the body symbols in order.
func (r *Rule) Occurrences() []IndexedSymbolName {
	var out []IndexedSymbolName
	for _, e := range r.Body {
		if s, ok := e.(Symbol); ok {
			out = append(out, s.name)
		}
	}
	return out
}

// Len is the number of body symbols.
func (r *Rule) Len() int {
	n := 0
	for _, e := range r.Body {
		if _, ok := e.(Symbol); ok {
			n++
		}
	}
	return n
}

// Find returns 0 for the head, i for the i-th body occurrence (1-based).
func (r *Rule) Find(s IndexedSymbolName) (int, bool) {
	if s == (IndexedSymbolName{Name: r.Head}) {
		return 0, true
	}
	i := 1
	for _, e := range r.Body {
		if sym, ok := e.(Symbol); ok {
			if sym.name == s {
				return i, true
			}
			i++
		}
	}
	return 0, false
}

func (r *Rule) String() string {
	var sb strings.Builder
	sb.WriteString(string(r.Head))
	if r.Name != "" {
		sb.WriteString(" <" + r.Name + ">")
	}
	sb.WriteString(" ->")
	if len(r.Body) == 0 {
		sb.WriteString(" ε")
	}
	for _, e := range r.Body {
		switch e := e.(type) {
		case Symbol:
			sb.WriteString(" " + e.String())
		case Assignment:
			sb.WriteString(" {" + e.Target.String() + " := " + e.Value.String() + "}")
		case Condition:
			sb.WriteString(" [" + e.Guard.String() + "]")
		}
	}
	return sb.String()
}

// PriorityID identifies a terminal priority; dense from 1.
type PriorityID uint32

// Priority states that tokens of Lower are discarded whenever Condition holds
// against a competing token of Higher at the same position. A nil Condition
// always holds.
type Priority struct {
	ID        PriorityID
	Lower     SymbolName
	Higher    SymbolName
	Condition term.Term
	Pos       source.Pos
}

// Unconditional reports whether the priority applies regardless of tokens.
func (p *Priority) Unconditional() bool {
	if p.Condition == nil {
		return true
	}
	c, ok := p.Condition.(term.Const)
	return ok && c.Value == term.BoolValue(true)
}

// Side picks one of the two tokens a priority condition talks about.
type Side uint8

const (
	Lower Side = iota + 1
	Higher
)

func (s Side) String() string {
	if s == Lower {
		return "lower"
	}
	return "higher"
}

// TokenVar is a variable of a priority condition.
type TokenVar struct {
	Side Side
	Attr Attr
}

func (v TokenVar) String() string { return v.Side.String() + "." + v.Attr.String() }

// Len is the matched length of the token on this side (INT).
func (s Side) Len() term.Term { return term.V(TokenVar{Side: s, Attr: AttrLen}) }

// In is the token's input attribute.
func (s Side) In() term.Term { return term.V(TokenVar{Side: s, Attr: AttrIn}) }

// Out is the token's output attribute.
func (s Side) Out() term.Term { return term.V(TokenVar{Side: s, Attr: AttrOut}) }

// Length relations between the lower and the higher token.
func Always() term.Term            { return term.BoolTerm(true) }
func IfShorter() term.Term         { return term.Lt(Lower.Len(), Higher.Len()) }
func IfShorterOrEqual() term.Term  { return term.Le(Lower.Len(), Higher.Len()) }
func IfLonger() term.Term          { return term.Gt(Lower.Len(), Higher.Len()) }
func IfLongerOrEqual() term.Term   { return term.Ge(Lower.Len(), Higher.Len()) }
func IfSameLength() term.Term      { return term.Eq(Lower.Len(), Higher.Len()) }
func IfDifferentLength() term.Term { return term.Ne(Lower.Len(), Higher.Len()) }
