package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the most recent events in memory for a dump after the
// run.
type RingTracer struct {
	mu    sync.Mutex
	buf   []Event
	next  int // slot of the next event
	count int
	level Level
}

// NewRingTracer keeps up to capacity events, 4096 when capacity <= 0.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{buf: make([]Event, capacity), level: level}
}

func (t *RingTracer) Emit(ev Event) {
	if ev.Kind != KindHeartbeat && !t.level.Allows(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf[t.next] = ev
	t.next = (t.next + 1) % len(t.buf)
	t.count = min(t.count+1, len(t.buf))
}

// Snapshot returns the kept events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, 0, t.count)
	first := (t.next - t.count + len(t.buf)) % len(t.buf)
	for i := range t.count {
		out = append(out, t.buf[(first+i)%len(t.buf)])
	}
	return out
}

// Dump writes the kept events to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	for _, ev := range t.Snapshot() {
		if _, err := w.Write(format.Encode(ev)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Level() Level { return t.level }
func (t *RingTracer) Close() error { return nil }
