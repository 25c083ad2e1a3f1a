package diag

import (
	"strings"
	"testing"

	"attrparse/internal/source"
)

func TestCodeID(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{GrmDoubleAssignment, "GRM1009"},
		{PriDuplicate, "PRI2003"},
		{LexLookahead, "LEX3005"},
		{EncNoCodec, "ENC4001"},
		{SynNestedAlternatives, "SYN5001"},
		{SynUnknownSymbol, "SYN5003"},
		{LexBadPosition, "LEX3008"},
		{CfgValidate, "CFG6003"},
		{UnknownCode, "E0000"},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.want {
			t.Errorf("%d.ID() = %s, want %s", tt.code, got, tt.want)
		}
	}
	if Code(9999).Title() != "Unknown error" {
		t.Errorf("unknown code title = %q", Code(9999).Title())
	}
}

func TestBagLimitAndErrors(t *testing.T) {
	bag := NewBag(2)
	if !bag.Add(New(SevWarning, GrmInfo, source.NoPos, "w")) {
		t.Fatal("первая диагностика должна добавиться")
	}
	if bag.HasErrors() {
		t.Error("предупреждение не является ошибкой")
	}
	bag.Add(NewError(GrmUnknownSymbol, source.NoPos, "e"))
	if bag.Add(NewError(GrmUnknownSymbol, source.NoPos, "overflow")) {
		t.Error("лимит должен отбросить третью диагностику")
	}
	if !bag.HasErrors() || bag.Len() != 2 {
		t.Errorf("HasErrors=%v Len=%d", bag.HasErrors(), bag.Len())
	}
}

func TestBagSortDedupFormat(t *testing.T) {
	bag := NewBag(0)
	r := BagReporter{Bag: bag}
	b := source.Pos{File: "/x/b.go", Line: 3}
	a := source.Pos{File: "/x/a.go", Line: 10}
	ReportError(r, GrmDoubleAssignment, b, "Sum.out assigned twice").WithSubject("Sum").Emit()
	ReportError(r, GrmDoubleAssignment, b, "Sum.out assigned twice").WithSubject("Sum").Emit()
	ReportWarning(r, GrmInfo, a, "hint").WithNote(b, "declared here").Emit()
	bag.Dedup()
	bag.Sort()
	if bag.Len() != 2 {
		t.Fatalf("Len after dedup = %d", bag.Len())
	}
	out := Format(bag.Items(), true)
	want := "a.go:10: WARNING GRM1000: hint\n  note: b.go:3: declared here\nb.go:3: ERROR GRM1009 Sum: Sum.out assigned twice\n"
	if out != want {
		t.Errorf("Format:\n%s\nwant:\n%s", out, want)
	}
	if strings.Contains(Format(bag.Items(), false), "note:") {
		t.Error("notes must be omitted")
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(0)
	rb := ReportError(BagReporter{Bag: bag}, GrmSealed, source.NoPos, "sealed")
	rb.Emit()
	rb.Emit()
	if bag.Len() != 1 {
		t.Fatalf("Emit reported %d times", bag.Len())
	}
}
