package term

import (
	"fmt"
	"sort"
	"sync"
)

// Sort names the type of an attribute value.
type Sort string

// Builtin sorts.
const (
	Unit   Sort = "UNIT"
	Bool   Sort = "BOOL"
	Int    Sort = "INT"
	Char   Sort = "CHAR"
	String Sort = "STRING"
)

func (s Sort) String() string { return string(s) }

// IsBuiltin reports whether s is one of the sorts every Language knows.
func (s Sort) IsBuiltin() bool {
	switch s {
	case Unit, Bool, Int, Char, String:
		return true
	}
	return false
}

// Codec converts payloads of a user sort to bytes and back.
// Sorts registered without a codec cannot be serialized.
type Codec interface {
	EncodePayload(v any) ([]byte, error)
	DecodePayload(data []byte) (any, error)
}

// Language is the registry of sorts known to a grammar.
// It is safe for concurrent reads once construction is finished.
type Language struct {
	mu     sync.RWMutex
	codecs map[Sort]Codec
	user   map[Sort]struct{}
}

// NewLanguage returns a language that knows only the builtin sorts.
func NewLanguage() *Language {
	return &Language{
		codecs: make(map[Sort]Codec),
		user:   make(map[Sort]struct{}),
	}
}

// AddSort registers a user sort. Registering the same sort twice is a no-op
// when the codec is identical, otherwise an error.
func (l *Language) AddSort(s Sort, codec Codec) error {
	if s == "" {
		return fmt.Errorf("empty sort name")
	}
	if s.IsBuiltin() {
		return fmt.Errorf("sort %s is builtin", s)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.user[s]; ok {
		if l.codecs[s] != codec {
			return fmt.Errorf("sort %s already registered with a different codec", s)
		}
		return nil
	}
	l.user[s] = struct{}{}
	if codec != nil {
		l.codecs[s] = codec
	}
	return nil
}

// Has reports whether s is a valid sort in l.
func (l *Language) Has(s Sort) bool {
	if s.IsBuiltin() {
		return true
	}
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.user[s]
	return ok
}

func (l *Language) codec(s Sort) (Codec, bool) {
	if l == nil {
		return nil, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.codecs[s]
	return c, ok
}

// Join merges the user sorts of other into l.
func (l *Language) Join(other *Language) error {
	if other == nil {
		return nil
	}
	for _, s := range other.Sorts() {
		c, _ := other.codec(s)
		if err := l.AddSort(s, c); err != nil {
			return err
		}
	}
	return nil
}

// Sorts returns the user sorts in lexical order.
func (l *Language) Sorts() []Sort {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Sort, 0, len(l.user))
	for s := range l.user {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
