package batch

import (
	"time"

	"attrparse/internal/term"
)

// Stage describes one step of processing an input.
type Stage string

const (
	// StageParse runs the recognizer.
	StageParse Stage = "parse"
	// StageTree converts the forest to syntax trees.
	StageTree Stage = "tree"
	// StageEncode serializes the forest.
	StageEncode Stage = "encode"
)

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for an input (or for the whole batch when Item is
// empty).
type Event struct {
	Item    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Run calls it from several
// goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// Item is one input of a batch.
type Item struct {
	Name string
	Text string
}

// Report is the outcome for one item. A failed parse is not an error: Err
// is set only when the item could not be processed at all.
type Report struct {
	Name      string
	Matched   bool
	Complete  bool // the match covers the whole input
	Position  int
	Length    int
	Outs      []term.Value
	Ambiguous bool
	Trees     int // disambiguated trees, saturated at Options.TreeLimit
	Encoded   []byte
	Err       error
	Elapsed   time.Duration
}
