package sinfo

import (
	"fmt"
	"math"
)

// ScalarKind is the active variant of a Scalar tagged union (spec §3.1:
// "value: a tagged scalar with variants {none, wide-string, byte-string,
// char, bool, signed integer, unsigned integer, long float}").
type ScalarKind int

const (
	KindNone ScalarKind = iota
	KindString
	KindBytes
	KindChar
	KindBool
	KindInt
	KindUint
	KindFloat
)

func (k ScalarKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindChar:
		return "char"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Scalar is the leaf value of a Value-category Info node. Setting any
// variant clears the others (invariant 3, spec §3.1); getters coerce
// between variants with overflow checking, raising ConversionError when the
// source does not fit the target.
type Scalar struct {
	kind ScalarKind
	s    string
	b    []byte
	ch   rune
	bl   bool
	i    int64
	u    uint64
	f    float64
}

func Null() Scalar                 { return Scalar{kind: KindNone} }
func StringScalar(s string) Scalar { return Scalar{kind: KindString, s: s} }
func BytesScalar(b []byte) Scalar  { return Scalar{kind: KindBytes, b: b} }
func CharScalar(c rune) Scalar     { return Scalar{kind: KindChar, ch: c} }
func BoolScalar(v bool) Scalar     { return Scalar{kind: KindBool, bl: v} }
func IntScalar(v int64) Scalar     { return Scalar{kind: KindInt, i: v} }
func UintScalar(v uint64) Scalar   { return Scalar{kind: KindUint, u: v} }
func FloatScalar(v float64) Scalar { return Scalar{kind: KindFloat, f: v} }

func (s Scalar) Kind() ScalarKind { return s.kind }
func (s Scalar) IsNull() bool     { return s.kind == KindNone }

// AsString returns the scalar coerced to a string. Numeric and boolean
// variants are formatted with their natural textual representation.
func (s Scalar) AsString() (string, error) {
	switch s.kind {
	case KindString:
		return s.s, nil
	case KindBytes:
		return string(s.b), nil
	case KindChar:
		return string(s.ch), nil
	case KindBool:
		if s.bl {
			return "true", nil
		}
		return "false", nil
	case KindInt:
		return fmt.Sprintf("%d", s.i), nil
	case KindUint:
		return fmt.Sprintf("%d", s.u), nil
	case KindFloat:
		return fmt.Sprintf("%g", s.f), nil
	case KindNone:
		return "", &ConversionError{From: "none", To: "string"}
	default:
		return "", &ConversionError{From: s.kind.String(), To: "string"}
	}
}

// AsBytes returns the scalar's raw bytes. Only the byte-string and
// wide-string variants convert; everything else is a ConversionError.
func (s Scalar) AsBytes() ([]byte, error) {
	switch s.kind {
	case KindBytes:
		return s.b, nil
	case KindString:
		return []byte(s.s), nil
	default:
		return nil, &ConversionError{From: s.kind.String(), To: "bytes"}
	}
}

// AsBool coerces to bool: a non-zero Int or Uint is true, the strings
// "true"/"1" and "false"/"0" convert (exact, case-sensitive match), and
// every other kind or string, floats included, is an error.
func (s Scalar) AsBool() (bool, error) {
	switch s.kind {
	case KindBool:
		return s.bl, nil
	case KindInt:
		return s.i != 0, nil
	case KindUint:
		return s.u != 0, nil
	case KindString:
		switch s.s {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return false, &ConversionError{From: "string", To: "bool", Why: "not a boolean literal"}
	default:
		return false, &ConversionError{From: s.kind.String(), To: "bool"}
	}
}

// AsInt64 coerces to a signed 64-bit integer with overflow checking against
// the unsigned variant's range (invariant 3).
func (s Scalar) AsInt64() (int64, error) {
	switch s.kind {
	case KindInt:
		return s.i, nil
	case KindUint:
		if s.u > math.MaxInt64 {
			return 0, &ConversionError{From: "uint", To: "int64", Why: "overflow"}
		}
		return int64(s.u), nil
	case KindBool:
		if s.bl {
			return 1, nil
		}
		return 0, nil
	case KindFloat:
		if s.f != math.Trunc(s.f) || s.f > math.MaxInt64 || s.f < math.MinInt64 {
			return 0, &ConversionError{From: "float", To: "int64", Why: "not integral or out of range"}
		}
		return int64(s.f), nil
	case KindString:
		var v int64
		if _, err := fmt.Sscanf(s.s, "%d", &v); err != nil {
			return 0, &ConversionError{From: "string", To: "int64", Why: err.Error()}
		}
		return v, nil
	default:
		return 0, &ConversionError{From: s.kind.String(), To: "int64"}
	}
}

// AsUint64 coerces to an unsigned 64-bit integer; negative signed values are
// a ConversionError (no wraparound).
func (s Scalar) AsUint64() (uint64, error) {
	switch s.kind {
	case KindUint:
		return s.u, nil
	case KindInt:
		if s.i < 0 {
			return 0, &ConversionError{From: "int", To: "uint64", Why: "negative value"}
		}
		return uint64(s.i), nil
	case KindBool:
		if s.bl {
			return 1, nil
		}
		return 0, nil
	case KindString:
		var v uint64
		if _, err := fmt.Sscanf(s.s, "%d", &v); err != nil {
			return 0, &ConversionError{From: "string", To: "uint64", Why: err.Error()}
		}
		return v, nil
	default:
		return 0, &ConversionError{From: s.kind.String(), To: "uint64"}
	}
}

// AsFloat64 coerces to a double. Long-float semantics are represented with
// float64 (spec §3.1: "double is acceptable").
func (s Scalar) AsFloat64() (float64, error) {
	switch s.kind {
	case KindFloat:
		return s.f, nil
	case KindInt:
		return float64(s.i), nil
	case KindUint:
		return float64(s.u), nil
	case KindString:
		var v float64
		if _, err := fmt.Sscanf(s.s, "%g", &v); err != nil {
			return 0, &ConversionError{From: "string", To: "float64", Why: err.Error()}
		}
		return v, nil
	default:
		return 0, &ConversionError{From: s.kind.String(), To: "float64"}
	}
}

// AsChar returns the scalar as a single rune; only a one-rune string or an
// existing char variant convert.
func (s Scalar) AsChar() (rune, error) {
	switch s.kind {
	case KindChar:
		return s.ch, nil
	case KindString:
		runes := []rune(s.s)
		if len(runes) != 1 {
			return 0, &ConversionError{From: "string", To: "char", Why: "not a single character"}
		}
		return runes[0], nil
	default:
		return 0, &ConversionError{From: s.kind.String(), To: "char"}
	}
}
