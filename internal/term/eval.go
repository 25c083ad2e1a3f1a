package term

import (
	"fmt"
	"unicode/utf8"
)

// Func is a compiled term. It reads variables from env by index and reports
// false when evaluation fails (division by zero, no matching arm, unbound
// variable).
type Func func(env []Value) (Value, bool)

// Compile turns id into a closure. resolve maps each free variable to its
// environment index; when resolve is nil every variable must be a Slot.
func Compile(s *Store, id ID, resolve func(VarName) (int, bool)) (Func, error) {
	if resolve == nil {
		resolve = func(n VarName) (int, bool) {
			sl, ok := n.(Slot)
			return int(sl), ok && sl >= 0
		}
	}
	var unresolved VarName
	f := Fold(s, id, Folder[Func]{
		Var: func(name VarName) Func {
			idx, ok := resolve(name)
			if !ok {
				if unresolved == nil {
					unresolved = name
				}
				return failFunc
			}
			return func(env []Value) (Value, bool) {
				if idx >= len(env) {
					return Value{}, false
				}
				v := env[idx]
				return v, !v.IsZero()
			}
		},
		Const: func(v Value) Func {
			return func([]Value) (Value, bool) { return v, true }
		},
		App: compileApp,
	}, nil)
	if unresolved != nil {
		return nil, fmt.Errorf("term %s: variable %s cannot be resolved", s.String(id), unresolved)
	}
	return f, nil
}

func failFunc([]Value) (Value, bool) { return Value{}, false }

func compileApp(op Op, args []Func) Func {
	switch op {
	case OpEq, OpNe:
		a, b, want := args[0], args[1], op == OpEq
		return func(env []Value) (Value, bool) {
			x, ok := a(env)
			if !ok {
				return Value{}, false
			}
			y, ok := b(env)
			if !ok {
				return Value{}, false
			}
			return BoolValue((x == y) == want), true
		}
	case OpLt, OpLe, OpGt, OpGe:
		a, b := args[0], args[1]
		return func(env []Value) (Value, bool) {
			x, ok := a(env)
			if !ok {
				return Value{}, false
			}
			y, ok := b(env)
			if !ok {
				return Value{}, false
			}
			c := compare(x, y)
			var r bool
			switch op {
			case OpLt:
				r = c < 0
			case OpLe:
				r = c <= 0
			case OpGt:
				r = c > 0
			default:
				r = c >= 0
			}
			return BoolValue(r), true
		}
	case OpAnd, OpOr:
		a, b, short := args[0], args[1], op == OpOr
		return func(env []Value) (Value, bool) {
			x, ok := a(env)
			if !ok {
				return Value{}, false
			}
			if x.Bool() == short {
				return x, true
			}
			return b(env)
		}
	case OpNot:
		a := args[0]
		return func(env []Value) (Value, bool) {
			x, ok := a(env)
			if !ok {
				return Value{}, false
			}
			return BoolValue(!x.Bool()), true
		}
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		a, b := args[0], args[1]
		return func(env []Value) (Value, bool) {
			x, ok := a(env)
			if !ok {
				return Value{}, false
			}
			y, ok := b(env)
			if !ok {
				return Value{}, false
			}
			switch op {
			case OpAdd:
				return IntValue(x.num + y.num), true
			case OpSub:
				return IntValue(x.num - y.num), true
			case OpMul:
				return IntValue(x.num * y.num), true
			case OpDiv:
				if y.num == 0 {
					return Value{}, false
				}
				return IntValue(x.num / y.num), true
			default:
				if y.num == 0 {
					return Value{}, false
				}
				return IntValue(x.num % y.num), true
			}
		}
	case OpNeg:
		a := args[0]
		return func(env []Value) (Value, bool) {
			x, ok := a(env)
			if !ok {
				return Value{}, false
			}
			return IntValue(-x.num), true
		}
	case OpIf:
		c, t, e := args[0], args[1], args[2]
		return func(env []Value) (Value, bool) {
			x, ok := c(env)
			if !ok {
				return Value{}, false
			}
			if x.Bool() {
				return t(env)
			}
			return e(env)
		}
	case OpOrd:
		a := args[0]
		return func(env []Value) (Value, bool) {
			x, ok := a(env)
			if !ok {
				return Value{}, false
			}
			return IntValue(x.num), true
		}
	case OpConcat:
		a, b := args[0], args[1]
		return func(env []Value) (Value, bool) {
			x, ok := a(env)
			if !ok {
				return Value{}, false
			}
			y, ok := b(env)
			if !ok {
				return Value{}, false
			}
			return StringValue(x.str + y.str), true
		}
	case OpLen:
		a := args[0]
		return func(env []Value) (Value, bool) {
			x, ok := a(env)
			if !ok {
				return Value{}, false
			}
			return IntValue(int64(utf8.RuneCountInString(x.str))), true
		}
	case OpMatch:
		scrut := args[0]
		arms := args[1:]
		return func(env []Value) (Value, bool) {
			x, ok := scrut(env)
			if !ok {
				return Value{}, false
			}
			for i := 0; i+1 < len(arms); i += 2 {
				p, _ := arms[i](env)
				if p == x {
					return arms[i+1](env)
				}
			}
			return Value{}, false
		}
	}
	return failFunc
}

// Eval interprets id directly, looking variables up by name.
func Eval(s *Store, id ID, lookup func(VarName) (Value, bool)) (Value, bool) {
	var names []VarName
	index := make(map[VarName]int)
	for _, n := range FreeVars(s, id) {
		index[n] = len(names)
		names = append(names, n)
	}
	f, err := Compile(s, id, func(n VarName) (int, bool) {
		i, ok := index[n]
		return i, ok
	})
	if err != nil {
		return Value{}, false
	}
	env := make([]Value, len(names))
	for i, n := range names {
		v, ok := lookup(n)
		if !ok {
			return Value{}, false
		}
		env[i] = v
	}
	return f(env)
}
