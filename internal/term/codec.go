package term

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

// AttributeEncodingError reports a value whose sort has no codec.
type AttributeEncodingError struct {
	Sort Sort
	Err  error
}

func (e *AttributeEncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot encode attribute of sort %s: %v", e.Sort, e.Err)
	}
	return fmt.Sprintf("cannot encode attribute of sort %s: no codec registered", e.Sort)
}

func (e *AttributeEncodingError) Unwrap() error { return e.Err }

// ErrUnknownSort is returned when decoding a value of a sort the language
// does not know.
var ErrUnknownSort = errors.New("unknown sort")

// EncodeValue writes v as a two-element array (sort, payload).
func (l *Language) EncodeValue(enc *msgpack.Encoder, v Value) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeString(string(v.sort)); err != nil {
		return err
	}
	switch v.sort {
	case "", Unit:
		return enc.EncodeNil()
	case Bool:
		return enc.EncodeBool(v.Bool())
	case Int, Char:
		return enc.EncodeInt(v.num)
	case String:
		return enc.EncodeString(v.str)
	}
	codec, ok := l.codec(v.sort)
	if !ok {
		return &AttributeEncodingError{Sort: v.sort}
	}
	data, err := codec.EncodePayload(v.ext)
	if err != nil {
		return &AttributeEncodingError{Sort: v.sort, Err: err}
	}
	return enc.EncodeBytes(data)
}

// DecodeValue reads a value written by EncodeValue.
func (l *Language) DecodeValue(dec *msgpack.Decoder) (Value, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return Value{}, err
	}
	if n != 2 {
		return Value{}, fmt.Errorf("value: expected 2 fields, got %d", n)
	}
	name, err := dec.DecodeString()
	if err != nil {
		return Value{}, err
	}
	s := Sort(name)
	switch s {
	case "":
		return Value{}, dec.DecodeNil()
	case Unit:
		return UnitValue(), dec.DecodeNil()
	case Bool:
		b, err := dec.DecodeBool()
		return BoolValue(b), err
	case Int:
		i, err := dec.DecodeInt64()
		return IntValue(i), err
	case Char:
		i, err := dec.DecodeInt64()
		if err != nil {
			return Value{}, err
		}
		r, err := safecast.Conv[int32](i)
		return CharValue(r), err
	case String:
		str, err := dec.DecodeString()
		return StringValue(str), err
	}
	if !l.Has(s) {
		return Value{}, fmt.Errorf("%w: %s", ErrUnknownSort, s)
	}
	codec, ok := l.codec(s)
	if !ok {
		return Value{}, &AttributeEncodingError{Sort: s}
	}
	data, err := dec.DecodeBytes()
	if err != nil {
		return Value{}, err
	}
	payload, err := codec.DecodePayload(data)
	if err != nil {
		return Value{}, &AttributeEncodingError{Sort: s, Err: err}
	}
	return Opaque(s, payload), nil
}
