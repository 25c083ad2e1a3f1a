package source

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// NameID is a dense index of an interned name.
type NameID uint32

// NoNameID is reserved for the empty name.
const NoNameID NameID = 0

// Interner maps names to dense ids. Graph algorithms use the ids as
// arena indexes instead of hashing strings on every step.
type Interner struct {
	byID  []string
	index map[string]NameID
}

func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]NameID{"": NoNameID},
	}
}

// Intern returns the id of s, allocating one on first use.
func (i *Interner) Intern(s string) NameID {
	if id, ok := i.index[s]; ok {
		return id
	}
	raw, err := safecast.Conv[uint32](len(i.byID))
	if err != nil {
		panic(fmt.Errorf("interner overflow: %w", err))
	}
	id := NameID(raw)
	i.byID = append(i.byID, s)
	i.index[s] = id
	return id
}

// Lookup returns the id of s without interning it.
func (i *Interner) Lookup(s string) (NameID, bool) {
	id, ok := i.index[s]
	return id, ok
}

// Name returns the string for id; unknown ids yield "".
func (i *Interner) Name(id NameID) string {
	if int(id) >= len(i.byID) {
		return ""
	}
	return i.byID[id]
}

// Len counts interned names, including the reserved empty one.
func (i *Interner) Len() int { return len(i.byID) }

// Snapshot copies all names indexed by id.
func (i *Interner) Snapshot() []string { return slices.Clone(i.byID) }
