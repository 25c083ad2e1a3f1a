package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// Format is the encoding of written events.
type Format uint8

const (
	FormatText Format = iota
	FormatNDJSON
)

// Encode renders ev as one line.
func (f Format) Encode(ev Event) []byte {
	if f == FormatNDJSON {
		return encodeJSON(ev)
	}
	return encodeText(ev)
}

var kindMarks = []string{KindSpanBegin: ">", KindSpanEnd: "<", KindHeartbeat: "~"}

// encodeText writes "seq scope mark name [elapsed] [(detail)] [k=v ...]".
func encodeText(ev Event) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%06d %-8s %s %s", ev.Seq, ev.Scope, nameOf(kindMarks, int(ev.Kind)), ev.Name)
	if ev.Kind == KindSpanEnd {
		sb.WriteString(" " + ev.Elapsed.Round(time.Microsecond).String())
	}
	if ev.Detail != "" {
		sb.WriteString(" (" + ev.Detail + ")")
	}
	for _, k := range slices.Sorted(maps.Keys(ev.Extra)) {
		sb.WriteString(" " + k + "=" + ev.Extra[k])
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}

type jsonEvent struct {
	Time      string            `json:"time"`
	Seq       uint64            `json:"seq"`
	Kind      string            `json:"kind"`
	Scope     string            `json:"scope"`
	Span      uint64            `json:"span,omitempty"`
	Parent    uint64            `json:"parent,omitempty"`
	Name      string            `json:"name"`
	Detail    string            `json:"detail,omitempty"`
	ElapsedUS int64             `json:"elapsed_us,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

func encodeJSON(ev Event) []byte {
	data, _ := json.Marshal(jsonEvent{
		Time:      ev.Time.Format(time.RFC3339Nano),
		Seq:       ev.Seq,
		Kind:      ev.Kind.String(),
		Scope:     ev.Scope.String(),
		Span:      ev.Span,
		Parent:    ev.Parent,
		Name:      ev.Name,
		Detail:    ev.Detail,
		ElapsedUS: ev.Elapsed.Microseconds(),
		Extra:     ev.Extra,
	})
	return append(data, '\n')
}

// StreamTracer writes each event as it arrives.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
}

func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{w: w, level: level, format: format}
}

func (t *StreamTracer) Emit(ev Event) {
	if ev.Kind != KindHeartbeat && !t.level.Allows(ev.Scope) {
		return
	}
	line := t.format.Encode(ev)
	t.mu.Lock()
	defer t.mu.Unlock()
	// best effort, a broken trace output must not fail the parse
	_, _ = t.w.Write(line)
}

func (t *StreamTracer) Level() Level { return t.level }

// Close flushes a buffered writer and closes a closable one.
func (t *StreamTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return err
		}
	}
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
