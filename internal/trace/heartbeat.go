package trace

import (
	"context"
	"strconv"
	"time"
)

// Heartbeat emits a numbered session event every interval until the
// returned stop function is called. Beats without span ends in between
// usually mean an exploding parse. Stop waits for the emitter and may be
// called more than once.
func Heartbeat(t Tracer, interval time.Duration) (stop func()) {
	if t == nil || t.Level() == LevelOff || interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for beat := 1; ; beat++ {
			select {
			case <-ctx.Done():
				return
			case now := <-tick.C:
				t.Emit(Event{
					Time:   now,
					Seq:    seq.Add(1),
					Kind:   KindHeartbeat,
					Scope:  ScopeSession,
					Name:   "heartbeat",
					Detail: "#" + strconv.Itoa(beat),
				})
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
