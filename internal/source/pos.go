package source

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Pos is a declaration site inside the Go program that built a grammar.
type Pos struct {
	File string
	Line int
	Func string
}

// NoPos is the unknown position.
var NoPos = Pos{}

// IsValid reports whether p points somewhere.
func (p Pos) IsValid() bool { return p.File != "" }

func (p Pos) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(p.File), p.Line)
}

// Caller returns the first frame above skip that lies outside the packages
// (or exact functions) listed in internal. skip counts like runtime.Caller.
func Caller(skip int, internal ...string) Pos {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		fr, more := frames.Next()
		if !isInternal(fr.Function, internal) {
			return Pos{File: fr.File, Line: fr.Line, Func: shortFunc(fr.Function)}
		}
		if !more {
			return Pos{File: fr.File, Line: fr.Line, Func: shortFunc(fr.Function)}
		}
	}
}

func isInternal(fn string, pkgs []string) bool {
	for _, pkg := range pkgs {
		// "attrparse/internal/grammar.(*Builder).AddRule"
		if fn == pkg || strings.HasPrefix(fn, pkg+".") {
			return true
		}
	}
	return false
}

func shortFunc(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	return fn
}
