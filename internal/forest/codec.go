package forest

import (
	"errors"
	"fmt"
	"io"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"attrparse/internal/diag"
	"attrparse/internal/grammar"
	"attrparse/internal/term"
)

// SchemaVersion is bumped whenever the encoded layout changes.
const SchemaVersion uint16 = 1

// AttributeEncodingError is returned when a key carries an attribute of a
// sort without a codec.
type AttributeEncodingError = term.AttributeEncodingError

// DecodeError reports a malformed or incompatible encoded forest.
type DecodeError struct {
	Code diag.Code
	Msg  string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code.ID(), e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code.ID(), e.Msg)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func malformed(err error, format string, args ...any) error {
	return &DecodeError{Code: diag.EncMalformed, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Encode writes the subgraph reachable from roots as
//
//	[schema, [node...], [root...]]
//
// where nodes are listed in post-order and referenced by position. Each
// node is [kind, symbol, start, end, in, out, rule, [child...]].
// Attribute values use the language's value codecs.
func Encode(w io.Writer, lang *term.Language, roots ...Tree) error {
	var order []Tree
	index := make(map[NodeID]int)
	var visit func(t Tree)
	visit = func(t Tree) {
		if _, ok := index[t.id]; ok {
			return
		}
		for _, c := range t.node().Children {
			visit(Tree{store: t.store, id: c})
		}
		index[t.id] = len(order)
		order = append(order, t)
	}
	var store *Store
	for _, r := range roots {
		if !r.IsValid() {
			return errors.New("forest: cannot encode an invalid tree")
		}
		if store == nil {
			store = r.store
		} else if store != r.store {
			return errors.New("forest: roots belong to different stores")
		}
		visit(r)
	}

	enc := msgpack.NewEncoder(w)
	if err := enc.EncodeArrayLen(3); err != nil {
		return err
	}
	if err := enc.EncodeUint16(SchemaVersion); err != nil {
		return err
	}
	if err := enc.EncodeArrayLen(len(order)); err != nil {
		return err
	}
	for _, t := range order {
		if err := encodeNode(enc, lang, t.node(), index); err != nil {
			return err
		}
	}
	if err := enc.EncodeArrayLen(len(roots)); err != nil {
		return err
	}
	for _, r := range roots {
		if err := enc.EncodeInt(int64(index[r.id])); err != nil {
			return err
		}
	}
	return nil
}

func encodeNode(enc *msgpack.Encoder, lang *term.Language, n *Node, index map[NodeID]int) error {
	if err := enc.EncodeArrayLen(8); err != nil {
		return err
	}
	if err := enc.EncodeUint8(uint8(n.Kind)); err != nil {
		return err
	}
	if err := enc.EncodeString(string(n.Key.Symbol)); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(n.Key.Start)); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(n.Key.End)); err != nil {
		return err
	}
	if err := lang.EncodeValue(enc, n.Key.In); err != nil {
		return err
	}
	if err := lang.EncodeValue(enc, n.Key.Out); err != nil {
		return err
	}
	if err := enc.EncodeUint32(uint32(n.Rule)); err != nil {
		return err
	}
	if err := enc.EncodeArrayLen(len(n.Children)); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := enc.EncodeInt(int64(index[c])); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads a forest written by Encode into a fresh store and returns
// the roots in their original order.
func Decode(r io.Reader, lang *term.Language) (*Store, []Tree, error) {
	dec := msgpack.NewDecoder(r)
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, nil, malformed(err, "header")
	}
	if n != 3 {
		return nil, nil, malformed(nil, "expected 3 top-level fields, got %d", n)
	}
	version, err := dec.DecodeUint16()
	if err != nil {
		return nil, nil, malformed(err, "schema version")
	}
	if version != SchemaVersion {
		return nil, nil, &DecodeError{
			Code: diag.EncSchema,
			Msg:  fmt.Sprintf("schema version %d, want %d", version, SchemaVersion),
		}
	}

	count, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, nil, malformed(err, "node table")
	}
	store := NewStore()
	ids := make([]NodeID, 0, max(count, 0))
	for i := 0; i < count; i++ {
		id, err := decodeNode(dec, lang, store, ids)
		if err != nil {
			var aerr *AttributeEncodingError
			if errors.As(err, &aerr) {
				return nil, nil, err
			}
			return nil, nil, malformed(err, "node %d", i)
		}
		ids = append(ids, id)
	}

	rootCount, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, nil, malformed(err, "roots")
	}
	roots := make([]Tree, 0, max(rootCount, 0))
	for i := 0; i < rootCount; i++ {
		ref, err := decodeRef(dec, len(ids))
		if err != nil {
			return nil, nil, malformed(err, "root %d", i)
		}
		roots = append(roots, store.Tree(ids[ref]))
	}
	return store, roots, nil
}

func decodeNode(dec *msgpack.Decoder, lang *term.Language, store *Store, ids []NodeID) (NodeID, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return NoNodeID, err
	}
	if n != 8 {
		return NoNodeID, fmt.Errorf("expected 8 fields, got %d", n)
	}
	kind, err := dec.DecodeUint8()
	if err != nil {
		return NoNodeID, err
	}
	sym, err := dec.DecodeString()
	if err != nil {
		return NoNodeID, err
	}
	start, err := dec.DecodeInt()
	if err != nil {
		return NoNodeID, err
	}
	end, err := dec.DecodeInt()
	if err != nil {
		return NoNodeID, err
	}
	in, err := lang.DecodeValue(dec)
	if err != nil {
		return NoNodeID, err
	}
	out, err := lang.DecodeValue(dec)
	if err != nil {
		return NoNodeID, err
	}
	rule, err := dec.DecodeUint32()
	if err != nil {
		return NoNodeID, err
	}
	m, err := dec.DecodeArrayLen()
	if err != nil {
		return NoNodeID, err
	}
	children := make([]NodeID, 0, max(m, 0))
	for j := 0; j < m; j++ {
		ref, err := decodeRef(dec, len(ids))
		if err != nil {
			return NoNodeID, err
		}
		children = append(children, ids[ref])
	}
	key := Key{Symbol: grammar.SymbolName(sym), Start: start, End: end, In: in, Out: out}
	switch Kind(kind) {
	case KindRule:
		return store.Rule(grammar.RuleID(rule), key, children), nil
	case KindForest:
		for _, c := range children {
			if store.Node(c).Key != key {
				return NoNodeID, fmt.Errorf("alternative key %s does not match %s", store.Node(c).Key, key)
			}
		}
		if len(children) == 0 {
			return store.Leaf(key), nil
		}
		return store.Merge(key, children...), nil
	}
	return NoNodeID, fmt.Errorf("unknown node kind %d", kind)
}

// decodeRef reads a back reference; post-order guarantees it points at an
// already decoded node.
func decodeRef(dec *msgpack.Decoder, limit int) (int, error) {
	raw, err := dec.DecodeInt64()
	if err != nil {
		return 0, err
	}
	ref, err := safecast.Conv[int](raw)
	if err != nil {
		return 0, err
	}
	if ref < 0 || ref >= limit {
		return 0, fmt.Errorf("reference %d out of range [0,%d)", ref, limit)
	}
	return ref, nil
}
