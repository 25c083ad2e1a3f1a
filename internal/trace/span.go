package trace

import (
	"sync/atomic"
	"time"
)

var seq, spanIDs atomic.Uint64

// Span is one logical operation between Begin and End. A nil *Span is a
// disabled span; all its methods are no-ops.
type Span struct {
	tracer Tracer
	id     uint64
	parent uint64
	scope  Scope
	name   string
	began  time.Time
	extra  map[string]string
}

// Begin starts a span under parent, 0 for a root, and emits its begin
// event. It returns nil when t does not emit scope.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Level().Allows(scope) {
		return nil
	}
	s := &Span{tracer: t, id: spanIDs.Add(1), parent: parent, scope: scope, name: name, began: time.Now()}
	s.emit(KindSpanBegin, "", 0)
	return s
}

// End emits the end event with detail and returns the span duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	d := time.Since(s.began)
	s.emit(KindSpanEnd, detail, d)
	return d
}

func (s *Span) emit(kind Kind, detail string, elapsed time.Duration) {
	ev := Event{
		Time:   time.Now(),
		Seq:    seq.Add(1),
		Kind:   kind,
		Scope:  s.scope,
		Span:   s.id,
		Parent: s.parent,
		Name:   s.name,
		Detail: detail,
	}
	if kind == KindSpanEnd {
		ev.Elapsed = elapsed
		ev.Extra = s.extra
	}
	s.tracer.Emit(ev)
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil {
		return nil
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// ID returns the span id, 0 for a disabled span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}
