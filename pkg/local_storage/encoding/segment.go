package encoding

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is a type of the path segment.
type Kind uint8

// Segment kinds in the order of their encoding.
const (
	KindInt Kind = iota + 1
	KindString
	KindSep
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "INT"
	case KindString:
		return "STRING"
	case KindSep:
		return "SEP"
	default:
		return "UNDEFINED"
	}
}

// Segment is a single element of the hierarchical key.
type Segment struct {
	kind Kind
	i    int64
	s    string
}

// Int returns integer segment.
func Int(v int64) Segment {
	return Segment{kind: KindInt, i: v}
}

// String returns string segment.
func String(v string) Segment {
	return Segment{kind: KindString, s: v}
}

// Sep returns separator marker segment.
func Sep() Segment {
	return Segment{kind: KindSep}
}

// Kind returns type of the segment.
func (s Segment) Kind() Kind {
	return s.kind
}

// AsInt returns value of the integer segment.
func (s Segment) AsInt() (int64, bool) {
	return s.i, s.kind == KindInt
}

// AsString returns value of the string segment.
func (s Segment) AsString() (string, bool) {
	return s.s, s.kind == KindString
}

// Value returns the segment as a Go value: int64, string or nil for separators.
func (s Segment) Value() any {
	switch s.kind {
	case KindInt:
		return s.i
	case KindString:
		return s.s
	default:
		return nil
	}
}

// Compare compares segments in the encoding order: integers go before
// strings, strings before separators.
func (s Segment) Compare(o Segment) int {
	if s.kind != o.kind {
		if s.kind < o.kind {
			return -1
		}
		return 1
	}

	switch s.kind {
	case KindInt:
		switch {
		case s.i < o.i:
			return -1
		case s.i > o.i:
			return 1
		}
	case KindString:
		return strings.Compare(s.s, o.s)
	}

	return 0
}

func (s Segment) String() string {
	switch s.kind {
	case KindInt:
		return strconv.FormatInt(s.i, 10)
	case KindString:
		return s.s
	case KindSep:
		return "/"
	default:
		return "?"
	}
}

// FromValue converts Go value into the segment. Strings and integer kinds
// are supported.
func FromValue(v any) (Segment, error) {
	switch x := v.(type) {
	case Segment:
		return x, nil
	case string:
		return String(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	default:
		return Segment{}, fmt.Errorf("unsupported path segment type %T", v)
	}
}
