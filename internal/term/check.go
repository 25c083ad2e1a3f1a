package term

import (
	"fmt"
	"sort"
)

// SortError reports an ill-sorted term.
type SortError struct {
	Term    string
	Message string
}

func (e *SortError) Error() string {
	if e.Term == "" {
		return "sort error: " + e.Message
	}
	return fmt.Sprintf("sort error in %s: %s", e.Term, e.Message)
}

type sortResult struct {
	sort Sort
	err  error
}

// SortOf infers the sort of id. varSort resolves free variables; it returns
// false for unknown variables.
func SortOf(s *Store, id ID, varSort func(VarName) (Sort, bool)) (Sort, error) {
	memo := make(map[ID]sortResult)
	var patternOK = true
	r := Fold(s, id, Folder[sortResult]{
		Var: func(name VarName) sortResult {
			srt, ok := varSort(name)
			if !ok {
				return sortResult{err: &SortError{Term: name.String(), Message: "unknown variable"}}
			}
			return sortResult{sort: srt}
		},
		Const: func(v Value) sortResult { return sortResult{sort: v.Sort()} },
		App: func(op Op, args []sortResult) sortResult {
			for _, a := range args {
				if a.err != nil {
					return a
				}
			}
			return opSort(op, args)
		},
	}, memo)
	if r.err != nil {
		return "", r.err
	}
	// Match patterns must be literals.
	walkApps(s, id, func(n *Node) {
		if n.Op != OpMatch {
			return
		}
		for i := 1; i+1 < len(n.Args); i += 2 {
			if s.Node(n.Args[i]).Kind != KindConst {
				patternOK = false
			}
		}
	})
	if !patternOK {
		return "", &SortError{Term: s.String(id), Message: "match patterns must be constants"}
	}
	return r.sort, nil
}

func walkApps(s *Store, id ID, visit func(*Node)) {
	seen := make(map[ID]bool)
	var walk func(ID)
	walk = func(id ID) {
		if seen[id] {
			return
		}
		seen[id] = true
		n := s.Node(id)
		if n.Kind != KindApp {
			return
		}
		visit(n)
		for _, a := range n.Args {
			walk(a)
		}
	}
	walk(id)
}

func opSort(op Op, args []sortResult) sortResult {
	bad := func(format string, a ...any) sortResult {
		return sortResult{err: &SortError{Term: op.String(), Message: fmt.Sprintf(format, a...)}}
	}
	want := func(n int) bool { return len(args) == n }
	switch op {
	case OpEq, OpNe:
		if !want(2) || args[0].sort != args[1].sort {
			return bad("operands must share a sort")
		}
		return sortResult{sort: Bool}
	case OpLt, OpLe, OpGt, OpGe:
		if !want(2) || args[0].sort != args[1].sort {
			return bad("operands must share a sort")
		}
		switch args[0].sort {
		case Int, Char, String:
			return sortResult{sort: Bool}
		}
		return bad("sort %s is not ordered", args[0].sort)
	case OpAnd, OpOr:
		if !want(2) || args[0].sort != Bool || args[1].sort != Bool {
			return bad("operands must be BOOL")
		}
		return sortResult{sort: Bool}
	case OpNot:
		if !want(1) || args[0].sort != Bool {
			return bad("operand must be BOOL")
		}
		return sortResult{sort: Bool}
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		if !want(2) || args[0].sort != Int || args[1].sort != Int {
			return bad("operands must be INT")
		}
		return sortResult{sort: Int}
	case OpNeg:
		if !want(1) || args[0].sort != Int {
			return bad("operand must be INT")
		}
		return sortResult{sort: Int}
	case OpIf:
		if !want(3) || args[0].sort != Bool {
			return bad("condition must be BOOL")
		}
		if args[1].sort != args[2].sort {
			return bad("branches differ: %s vs %s", args[1].sort, args[2].sort)
		}
		return sortResult{sort: args[1].sort}
	case OpOrd:
		if !want(1) || args[0].sort != Char {
			return bad("operand must be CHAR")
		}
		return sortResult{sort: Int}
	case OpConcat:
		if !want(2) || args[0].sort != String || args[1].sort != String {
			return bad("operands must be STRING")
		}
		return sortResult{sort: String}
	case OpLen:
		if !want(1) || args[0].sort != String {
			return bad("operand must be STRING")
		}
		return sortResult{sort: Int}
	case OpMatch:
		if len(args) < 3 || len(args)%2 == 0 {
			return bad("match needs at least one arm")
		}
		res := args[2].sort
		for i := 1; i+1 < len(args); i += 2 {
			if args[i].sort != args[0].sort {
				return bad("pattern sort %s does not match scrutinee %s", args[i].sort, args[0].sort)
			}
			if args[i+1].sort != res {
				return bad("arm results differ: %s vs %s", args[i+1].sort, res)
			}
		}
		return sortResult{sort: res}
	}
	return bad("unknown operation")
}

// FreeVars returns the free variables of id in first-occurrence order.
func FreeVars(s *Store, id ID) []VarName {
	var out []VarName
	seen := make(map[VarName]bool)
	Fold(s, id, Folder[struct{}]{
		Var: func(name VarName) struct{} {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
			return struct{}{}
		},
		Const: func(Value) struct{} { return struct{}{} },
		App:   func(Op, []struct{}) struct{} { return struct{}{} },
	}, nil)
	return out
}

// SortedSlots returns the Slot variables of id in ascending order.
func SortedSlots(s *Store, id ID) []Slot {
	var out []Slot
	for _, v := range FreeVars(s, id) {
		if sl, ok := v.(Slot); ok {
			out = append(out, sl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
