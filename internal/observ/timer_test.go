package observ

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTimerPhases(t *testing.T) {
	tm := NewTimer()
	done := tm.Track("seal")
	done("12 rules")
	idx := tm.Begin("compile")
	tm.End(idx, "")
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(r.Phases))
	}
	if r.Phases[0].Note != "12 rules" {
		t.Errorf("note lost: %+v", r.Phases[0])
	}
	if !strings.Contains(tm.Summary(), "total") {
		t.Error("summary must end with total")
	}
}

func TestTimerAddConcurrent(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.Add("parse", time.Millisecond)
		}()
	}
	wg.Wait()
	r := tm.Report()
	if len(r.Phases) != 1 || r.Phases[0].Count != 8 {
		t.Fatalf("unexpected report %+v", r)
	}
	if r.TotalMS < 8 {
		t.Errorf("total = %.3f ms, want >= 8", r.TotalMS)
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	tm.Track("x")("")
	tm.Add("y", time.Second)
	if got := tm.Report(); len(got.Phases) != 0 {
		t.Fatalf("nil timer reported %+v", got)
	}
}
