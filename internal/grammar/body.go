package grammar

import (
	"attrparse/internal/source"
	"attrparse/internal/term"
)

const pkgPath = "attrparse/internal/grammar"

// Element is a rule body element: a Symbol occurrence, an Assignment, a
// Condition, or a Body that is flattened in place.
type Element interface {
	appendTo(dst []Element) []Element
}

// Assignment sets an attribute variable to the value of a term.
type Assignment struct {
	Target term.Term
	Value  term.Term
	Pos    source.Pos
}

// Condition is a BOOL guard.
type Condition struct {
	Guard term.Term
	Pos   source.Pos
}

// Body is a sequence of elements.
type Body []Element

func (a Assignment) appendTo(dst []Element) []Element { return append(dst, a) }
func (c Condition) appendTo(dst []Element) []Element  { return append(dst, c) }

func (b Body) appendTo(dst []Element) []Element {
	for _, e := range b {
		if e != nil {
			dst = e.appendTo(dst)
		}
	}
	return dst
}

// Assign builds an assignment target := value.
func Assign(target, value term.Term) Assignment { return assign(target, value) }

func assign(target, value term.Term) Assignment {
	return Assignment{Target: target, Value: value, Pos: source.Caller(0, pkgPath)}
}

// Guard builds a condition.
func Guard(cond term.Term) Condition {
	return Condition{Guard: cond, Pos: source.Caller(0, pkgPath)}
}

// Empty is the empty body.
func Empty() Body { return nil }

func flatten(elems []Element) []Element {
	return Body(elems).appendTo(make([]Element, 0, len(elems)))
}
