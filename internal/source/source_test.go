package source

import (
	"strings"
	"testing"
)

func TestInternerDenseIDs(t *testing.T) {
	in := NewInterner()
	a := in.Intern("Expr")
	b := in.Intern("Sum")
	if a != 1 || b != 2 {
		t.Fatalf("ожидали плотные ID 1 и 2, получили %d и %d", a, b)
	}
	if again := in.Intern("Expr"); again != a {
		t.Errorf("повторный Intern вернул %d вместо %d", again, a)
	}
	if in.Name(b) != "Sum" {
		t.Errorf("Name(%d) = %q", b, in.Name(b))
	}
	if _, ok := in.Lookup("Product"); ok {
		t.Error("Lookup не должен интернировать строку")
	}
	if in.Len() != 3 {
		t.Errorf("Len = %d, want 3", in.Len())
	}
	if in.Name(NameID(99)) != "" {
		t.Error("неизвестный ID должен давать пустую строку")
	}
}

func helperCaller() Pos { return Caller(0, "attrparse/internal/source.helperCaller") }

func TestCallerSkipsInternalFrames(t *testing.T) {
	p := helperCaller()
	if !p.IsValid() {
		t.Fatal("position must be valid")
	}
	if !strings.HasSuffix(p.File, "source_test.go") {
		t.Errorf("file = %s", p.File)
	}
	if !strings.Contains(p.Func, "TestCallerSkipsInternalFrames") {
		t.Errorf("func = %s", p.Func)
	}
	if NoPos.String() != "-" {
		t.Errorf("NoPos.String() = %q", NoPos.String())
	}
}
