package grammar

import (
	"fmt"

	"attrparse/internal/source"
	"attrparse/internal/term"
)

// SymbolName names a terminal or nonterminal.
type SymbolName string

func (n SymbolName) String() string { return string(n) }

// IndexedSymbolName is one occurrence of a symbol inside a rule. Index 0
// means "no index"; negative indexes are allocated for anonymous
// occurrences (see Builder.Literal).
type IndexedSymbolName struct {
	Name  SymbolName
	Index int
}

// HasIndex reports whether the occurrence carries an index.
func (n IndexedSymbolName) HasIndex() bool { return n.Index != 0 }

func (n IndexedSymbolName) String() string {
	if n.Index == 0 {
		return string(n.Name)
	}
	return fmt.Sprintf("%s[%d]", n.Name, n.Index)
}

// Kind says whether a symbol is a terminal and which sorts its attributes
// have.
type Kind struct {
	Terminal bool
	In       term.Sort
	Out      term.Sort
}

func (k Kind) String() string {
	what := "nonterminal"
	if k.Terminal {
		what = "terminal"
	}
	return fmt.Sprintf("%s %s -> %s", what, k.In, k.Out)
}

type Visibility uint8

const (
	Visible Visibility = iota
	Auxiliary
)

func (v Visibility) String() string {
	if v == Auxiliary {
		return "auxiliary"
	}
	return "visible"
}

type Structure uint8

const (
	Deep Structure = iota
	Flat
)

func (s Structure) String() string {
	if s == Flat {
		return "flat"
	}
	return "deep"
}

// Properties control the shape of parse and syntax trees for a symbol.
type Properties struct {
	Visibility Visibility
	Structure  Structure
}

// SymbolOption adjusts Properties at declaration time.
type SymbolOption func(*Properties)

func WithAuxiliary() SymbolOption { return func(p *Properties) { p.Visibility = Auxiliary } }
func WithVisible() SymbolOption   { return func(p *Properties) { p.Visibility = Visible } }
func WithFlat() SymbolOption      { return func(p *Properties) { p.Structure = Flat } }
func WithDeep() SymbolOption      { return func(p *Properties) { p.Structure = Deep } }

// SymbolInfo is the declaration record of a symbol.
type SymbolInfo struct {
	Name  SymbolName
	Kind  Kind
	Props Properties
	Pos   source.Pos
}

// Attr selects one attribute of a symbol occurrence.
type Attr uint8

const (
	AttrIn Attr = iota
	AttrOut
	AttrLen
)

func (a Attr) String() string {
	switch a {
	case AttrIn:
		return "in"
	case AttrOut:
		return "out"
	}
	return "len"
}

// SymbolVar is a term variable naming an attribute of a symbol occurrence.
type SymbolVar struct {
	Symbol IndexedSymbolName
	Attr   Attr
}

func (v SymbolVar) String() string { return v.Symbol.String() + "." + v.Attr.String() }

// Symbol is a handle to a declared symbol occurrence. It is itself a rule
// body element.
type Symbol struct {
	name IndexedSymbolName
	kind Kind
}

func (s Symbol) Name() SymbolName                 { return s.name.Name }
func (s Symbol) Indexed() IndexedSymbolName       { return s.name }
func (s Symbol) Kind() Kind                       { return s.kind }
func (s Symbol) IsTerminal() bool                 { return s.kind.Terminal }
func (s Symbol) IsZero() bool                     { return s.name.Name == "" }
func (s Symbol) String() string                   { return s.name.String() }
func (s Symbol) appendTo(dst []Element) []Element { return append(dst, s) }

// At returns the occurrence of s with the given index.
func (s Symbol) At(index int) Symbol {
	s.name.Index = index
	return s
}

// In is the input attribute variable of this occurrence.
func (s Symbol) In() term.Term { return term.V(SymbolVar{Symbol: s.name, Attr: AttrIn}) }

// Out is the output attribute variable of this occurrence.
func (s Symbol) Out() term.Term { return term.V(SymbolVar{Symbol: s.name, Attr: AttrOut}) }

// SetIn assigns the input attribute of this body occurrence.
func (s Symbol) SetIn(value term.Term) Assignment { return assign(s.In(), value) }

// SetOut assigns the output attribute of the rule head.
func (s Symbol) SetOut(value term.Term) Assignment { return assign(s.Out(), value) }
