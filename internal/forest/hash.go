package forest

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"

	"attrparse/internal/term"
)

// Digest is a 256 bit content hash of a node. Equal subtrees have equal
// digests regardless of the store they live in.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:8]) }

func digestOf(n *Node, child func(NodeID) Digest) Digest {
	h := sha256.New()
	writeUint(h, uint64(n.Kind))
	writeString(h, string(n.Key.Symbol))
	writeUint(h, uint64(n.Key.Start))
	writeUint(h, uint64(n.Key.End))
	writeValue(h, n.Key.In)
	writeValue(h, n.Key.Out)
	writeUint(h, uint64(n.Rule))
	writeUint(h, uint64(len(n.Children)))
	for _, c := range n.Children {
		d := child(c)
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func writeUint(h hash.Hash, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

func writeString(h hash.Hash, s string) {
	writeUint(h, uint64(len(s)))
	_, _ = h.Write([]byte(s))
}

// writeValue hashes the sort and a textual rendering of the payload. User
// payloads that render alike collide here; the store then falls back to
// structural comparison.
func writeValue(h hash.Hash, v term.Value) {
	writeString(h, string(v.Sort()))
	writeString(h, fmt.Sprintf("%#v", v.Native()))
}
