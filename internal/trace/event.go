package trace

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Kind is the type of an event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindHeartbeat
)

var kindNames = []string{KindSpanBegin: "begin", KindSpanEnd: "end", KindHeartbeat: "heartbeat"}

func (k Kind) String() string { return nameOf(kindNames, int(k)) }

// Scope is the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	ScopeSession  Scope = iota + 1 // one CLI invocation or batch run
	ScopePhase                     // seal, compile, parse, build, batch
	ScopeRule                      // one compiled rule
	ScopePosition                  // one chart position of one parse
)

var scopeNames = []string{ScopeSession: "session", ScopePhase: "phase", ScopeRule: "rule", ScopePosition: "position"}

func (s Scope) String() string { return nameOf(scopeNames, int(s)) }

// Level controls verbosity by naming the finest scope that is emitted.
type Level uint8

const (
	LevelOff Level = iota
	LevelError
	LevelPhase
	LevelDetail
	LevelDebug
)

var levelNames = []string{"off", "error", "phase", "detail", "debug"}

// finest scope per level; off and error emit no spans
var levelScopes = []Scope{LevelPhase: ScopePhase, LevelDetail: ScopeRule, LevelDebug: ScopePosition}

func (l Level) String() string { return nameOf(levelNames, int(l)) }

// Allows reports whether spans of scope are emitted at this level.
func (l Level) Allows(scope Scope) bool {
	return int(l) < len(levelScopes) && scope <= levelScopes[l]
}

// ParseLevel converts a level name, in any case, to a Level.
func ParseLevel(s string) (Level, error) {
	i := slices.Index(levelNames, strings.ToLower(s))
	if i < 0 {
		return LevelOff, fmt.Errorf("invalid trace level %q (expected %s)", s, strings.Join(levelNames, "|"))
	}
	return Level(i), nil
}

func nameOf(names []string, i int) string {
	if i < 0 || i >= len(names) || names[i] == "" {
		return "unknown"
	}
	return names[i]
}

// Event is one trace record. Elapsed and Extra are set on span ends only.
type Event struct {
	Time    time.Time
	Seq     uint64
	Kind    Kind
	Scope   Scope
	Span    uint64
	Parent  uint64 // 0 for roots
	Name    string // "compile", "rule:Expr#3", "pos:12"
	Detail  string
	Elapsed time.Duration
	Extra   map[string]string
}
