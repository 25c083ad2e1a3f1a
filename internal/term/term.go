package term

import (
	"fmt"
	"strings"
)

// VarName identifies a free variable inside a term. Implementations must be
// comparable.
type VarName interface {
	String() string
}

// Name is a plain string variable name.
type Name string

func (n Name) String() string { return string(n) }

// Slot is a variable bound to a position in an evaluation environment.
type Slot int

func (s Slot) String() string { return fmt.Sprintf("$%d", int(s)) }

// Op is a builtin operation.
type Op uint8

const (
	OpInvalid Op = iota
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpNot
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpIf
	OpOrd
	OpConcat
	OpLen
	OpMatch
)

var opNames = [...]string{
	OpInvalid: "invalid",
	OpEq:      "==",
	OpNe:      "!=",
	OpLt:      "<",
	OpLe:      "<=",
	OpGt:      ">",
	OpGe:      ">=",
	OpAnd:     "and",
	OpOr:      "or",
	OpNot:     "not",
	OpAdd:     "+",
	OpSub:     "-",
	OpMul:     "*",
	OpDiv:     "/",
	OpMod:     "%",
	OpNeg:     "neg",
	OpIf:      "if",
	OpOrd:     "ord",
	OpConcat:  "++",
	OpLen:     "len",
	OpMatch:   "match",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", o)
}

// Term is an expression over attribute variables.
type Term interface {
	isTerm()
	String() string
}

// Var references a variable.
type Var struct{ Name VarName }

// Const is a literal value.
type Const struct{ Value Value }

// App applies a builtin operation.
type App struct {
	Op   Op
	Args []Term
}

func (Var) isTerm()   {}
func (Const) isTerm() {}
func (App) isTerm()   {}

func (v Var) String() string   { return v.Name.String() }
func (c Const) String() string { return c.Value.String() }

func (a App) String() string {
	parts := make([]string, len(a.Args))
	for i, arg := range a.Args {
		parts[i] = arg.String()
	}
	switch a.Op {
	case OpNot, OpNeg, OpIf, OpOrd, OpLen, OpMatch:
		return a.Op.String() + "(" + strings.Join(parts, ", ") + ")"
	}
	return "(" + strings.Join(parts, " "+a.Op.String()+" ") + ")"
}

// V references the variable named n.
func V(n VarName) Term { return Var{Name: n} }

// Lit lifts a value into a term.
func Lit(v Value) Term { return Const{Value: v} }

func IntTerm(i int64) Term     { return Const{Value: IntValue(i)} }
func BoolTerm(b bool) Term     { return Const{Value: BoolValue(b)} }
func CharTerm(r rune) Term     { return Const{Value: CharValue(r)} }
func StringTerm(s string) Term { return Const{Value: StringValue(s)} }
func UnitTerm() Term           { return Const{Value: UnitValue()} }

func apply(op Op, args ...Term) Term { return App{Op: op, Args: args} }

func Eq(a, b Term) Term  { return apply(OpEq, a, b) }
func Ne(a, b Term) Term  { return apply(OpNe, a, b) }
func Lt(a, b Term) Term  { return apply(OpLt, a, b) }
func Le(a, b Term) Term  { return apply(OpLe, a, b) }
func Gt(a, b Term) Term  { return apply(OpGt, a, b) }
func Ge(a, b Term) Term  { return apply(OpGe, a, b) }
func Not(a Term) Term    { return apply(OpNot, a) }
func Add(a, b Term) Term { return apply(OpAdd, a, b) }
func Sub(a, b Term) Term { return apply(OpSub, a, b) }
func Mul(a, b Term) Term { return apply(OpMul, a, b) }
func Div(a, b Term) Term { return apply(OpDiv, a, b) }
func Mod(a, b Term) Term { return apply(OpMod, a, b) }
func Neg(a Term) Term    { return apply(OpNeg, a) }
func Ord(a Term) Term    { return apply(OpOrd, a) }
func Len(a Term) Term    { return apply(OpLen, a) }

// Concat joins STRING terms.
func Concat(a, b Term) Term { return apply(OpConcat, a, b) }

// If selects then or otherwise by cond.
func If(cond, then, otherwise Term) Term { return apply(OpIf, cond, then, otherwise) }

// And folds its operands with conjunction; And() is true.
func And(ts ...Term) Term { return fold(OpAnd, BoolTerm(true), ts) }

// Or folds its operands with disjunction; Or() is false.
func Or(ts ...Term) Term { return fold(OpOr, BoolTerm(false), ts) }

func fold(op Op, unit Term, ts []Term) Term {
	switch len(ts) {
	case 0:
		return unit
	case 1:
		return ts[0]
	}
	acc := ts[0]
	for _, t := range ts[1:] {
		acc = apply(op, acc, t)
	}
	return acc
}

// InRange is lo <= t && t <= hi.
func InRange(t, lo, hi Term) Term { return And(Le(lo, t), Le(t, hi)) }

// Case is one arm of a Match.
type Case struct {
	Pattern Value
	Result  Term
}

// When builds a Match arm.
func When(pattern Value, result Term) Case { return Case{Pattern: pattern, Result: result} }

// Match evaluates to the result of the first arm whose pattern equals the
// scrutinee. Evaluation fails when no arm matches.
func Match(scrutinee Term, cases ...Case) Term {
	args := make([]Term, 0, 1+2*len(cases))
	args = append(args, scrutinee)
	for _, c := range cases {
		args = append(args, Lit(c.Pattern), c.Result)
	}
	return App{Op: OpMatch, Args: args}
}
