package term

import (
	"fmt"
	"strconv"
)

// Value is a dynamically typed attribute value tagged with its sort.
// Values are comparable and may be used as map keys; payloads of user
// sorts must therefore be comparable too.
type Value struct {
	sort Sort
	num  int64
	str  string
	ext  any
}

// UnitValue is the single inhabitant of UNIT.
func UnitValue() Value { return Value{sort: Unit} }

// BoolValue wraps b.
func BoolValue(b bool) Value {
	v := Value{sort: Bool}
	if b {
		v.num = 1
	}
	return v
}

// IntValue wraps i.
func IntValue(i int64) Value { return Value{sort: Int, num: i} }

// CharValue wraps r.
func CharValue(r rune) Value { return Value{sort: Char, num: int64(r)} }

// StringValue wraps s.
func StringValue(s string) Value { return Value{sort: String, str: s} }

// Opaque wraps a payload of a user sort.
func Opaque(s Sort, payload any) Value { return Value{sort: s, ext: payload} }

// Sort returns the sort tag; the zero Value has the empty sort.
func (v Value) Sort() Sort { return v.sort }

// IsZero reports whether v is the zero Value (no sort).
func (v Value) IsZero() bool { return v.sort == "" }

// Bool returns the payload of a BOOL value.
func (v Value) Bool() bool { return v.num != 0 }

// Int returns the payload of an INT value.
func (v Value) Int() int64 { return v.num }

// Char returns the payload of a CHAR value.
func (v Value) Char() rune { return rune(v.num) }

// Str returns the payload of a STRING value.
func (v Value) Str() string { return v.str }

// Payload returns the payload of a user-sort value.
func (v Value) Payload() any { return v.ext }

// Native returns the payload as a plain Go value.
func (v Value) Native() any {
	switch v.sort {
	case Unit:
		return struct{}{}
	case Bool:
		return v.Bool()
	case Int:
		return v.num
	case Char:
		return v.Char()
	case String:
		return v.str
	case "":
		return nil
	}
	return v.ext
}

func (v Value) String() string {
	switch v.sort {
	case Unit:
		return "()"
	case Bool:
		return strconv.FormatBool(v.Bool())
	case Int:
		return strconv.FormatInt(v.num, 10)
	case Char:
		return strconv.QuoteRune(v.Char())
	case String:
		return strconv.Quote(v.str)
	case "":
		return "<none>"
	}
	return fmt.Sprintf("%s(%v)", v.sort, v.ext)
}

// compare orders two values of the same ordered sort.
func compare(a, b Value) int {
	switch a.sort {
	case String:
		switch {
		case a.str < b.str:
			return -1
		case a.str > b.str:
			return 1
		}
		return 0
	default:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	}
}

// Less is a total order over values, sort name first. It is used to make
// iteration over value-keyed maps deterministic.
func Less(a, b Value) bool {
	if a.sort != b.sort {
		return a.sort < b.sort
	}
	switch a.sort {
	case Unit, Bool, Int, Char, String:
		return compare(a, b) < 0
	}
	return fmt.Sprint(a.ext) < fmt.Sprint(b.ext)
}
