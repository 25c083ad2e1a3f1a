package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// Tracer receives events. Implementations must be safe for concurrent
// use.
type Tracer interface {
	Emit(ev Event)
	Level() Level
	// Close flushes and releases the output.
	Close() error
}

type nop struct{}

func (nop) Emit(Event)   {}
func (nop) Level() Level { return LevelOff }
func (nop) Close() error { return nil }

// Nop is the shared disabled tracer.
var Nop Tracer = nop{}

// tee hands every event to each of its tracers.
type tee []Tracer

func (t tee) Emit(ev Event) {
	for _, tr := range t {
		tr.Emit(ev)
	}
}

func (t tee) Level() Level {
	l := LevelOff
	for _, tr := range t {
		l = max(l, tr.Level())
	}
	return l
}

func (t tee) Close() error {
	errs := make([]error, len(t))
	for i, tr := range t {
		errs[i] = tr.Close()
	}
	return errors.Join(errs...)
}

// Ring returns the ring buffer behind t, if it keeps one.
func Ring(t Tracer) *RingTracer {
	switch t := t.(type) {
	case *RingTracer:
		return t
	case tee:
		for _, tr := range t {
			if r := Ring(tr); r != nil {
				return r
			}
		}
	}
	return nil
}

// Mode selects where events are kept.
type Mode uint8

const (
	ModeStream Mode = iota + 1 // written as they happen
	ModeRing                   // last RingSize events in memory
	ModeBoth
)

var modeNames = []string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m Mode) String() string { return nameOf(modeNames, int(m)) }

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	if i := slices.Index(modeNames, strings.ToLower(s)); i > 0 {
		return Mode(i), nil
	}
	return ModeStream, fmt.Errorf("invalid trace mode %q (expected stream|ring|both)", s)
}

// Config describes a tracer for New.
type Config struct {
	Level Level
	Mode  Mode
	// Output receives streamed events. When nil, OutputPath is created;
	// "" and "-" mean stderr.
	Output     io.Writer
	OutputPath string
	RingSize   int
}

// New builds the tracer cfg describes. Output paths ending in .ndjson or
// .jsonl get NDJSON, everything else text.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	var ring, stream Tracer
	if cfg.Mode == ModeRing || cfg.Mode == ModeBoth {
		ring = NewRingTracer(cfg.RingSize, cfg.Level)
	}
	if cfg.Mode == ModeStream || cfg.Mode == ModeBoth {
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		format := FormatText
		if strings.HasSuffix(cfg.OutputPath, ".ndjson") || strings.HasSuffix(cfg.OutputPath, ".jsonl") {
			format = FormatNDJSON
		}
		stream = NewStreamTracer(w, cfg.Level, format)
	}
	switch {
	case ring != nil && stream != nil:
		return tee{stream, ring}, nil
	case ring != nil:
		return ring, nil
	case stream != nil:
		return stream, nil
	}
	return nil, fmt.Errorf("unknown trace mode %v", cfg.Mode)
}

// stderr is never closed by a tracer.
type stderr struct{ io.Writer }

func openOutput(cfg Config) (io.Writer, error) {
	switch {
	case cfg.Output != nil:
		return cfg.Output, nil
	case cfg.OutputPath == "" || cfg.OutputPath == "-":
		return stderr{os.Stderr}, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, nil
}
