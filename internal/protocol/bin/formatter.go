package bin

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/maekitalo/sertools/internal/protocol/sinfo"
)

// Formatter implements compose.Formatter, writing the self-describing
// binary wire format described by §4.1. It has no notion of objects vs.
// RPC replies; the request/reply framing (§4.2.1) is written by
// WriteRequest, WriteValueReply and WriteErrorReply in scanner.go, which
// use a Formatter for the value part.
type Formatter struct {
	w           *bufio.Writer
	pendingName *string
}

// NewFormatter wraps w. Callers own w's lifetime; Flush must be called (or
// use NewFormatter(w).Flush() after the last Format call) to push buffered
// bytes out.
func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: bufio.NewWriter(w)}
}

// Flush pushes any buffered bytes to the underlying writer.
func (f *Formatter) Flush() error { return f.w.Flush() }

func (f *Formatter) takeName() (name string, named bool) {
	if f.pendingName == nil {
		return "", false
	}
	name, named = *f.pendingName, true
	f.pendingName = nil
	return name, named
}

func (f *Formatter) writeNameIfAny(name string, named bool) error {
	if !named {
		return nil
	}
	if _, err := f.w.WriteString(name); err != nil {
		return err
	}
	return f.w.WriteByte(nameTerminator)
}

func (f *Formatter) BeginObject(typeName string) error {
	name, named := f.takeName()
	b := byte(codeCategoryObjectPlain)
	if named {
		b = codeCategoryObjectNamed
	}
	if err := f.w.WriteByte(b); err != nil {
		return err
	}
	if err := f.writeNameIfAny(name, named); err != nil {
		return err
	}
	return f.writeTypeTag(typeName)
}

func (f *Formatter) BeginMember(name string) error {
	if f.pendingName != nil {
		return fmt.Errorf("bin: BeginMember(%q) while a previous member name is still pending", name)
	}
	if err := f.w.WriteByte(memberSeparator); err != nil {
		return err
	}
	f.pendingName = &name
	return nil
}

func (f *Formatter) FinishMember() error {
	if f.pendingName != nil {
		return fmt.Errorf("bin: FinishMember called but member %q was never given a value", *f.pendingName)
	}
	return nil
}

func (f *Formatter) FinishObject() error { return f.w.WriteByte(stringTerminator) }

func (f *Formatter) BeginArray(typeName string) error {
	name, named := f.takeName()
	b := byte(codeCategoryArrayPlain)
	if named {
		b = codeCategoryArrayNamed
	}
	if err := f.w.WriteByte(b); err != nil {
		return err
	}
	if err := f.writeNameIfAny(name, named); err != nil {
		return err
	}
	return f.writeTypeTag(typeName)
}

func (f *Formatter) FinishArray() error { return f.w.WriteByte(stringTerminator) }

// writeTypeTag emits the plain type code that tags an object's or array's
// declared element/type name (§4.1 "well-known names ... or TypeOther with
// the literal name").
func (f *Formatter) writeTypeTag(typeName string) error {
	if code, ok := containerCodeForTypeName(typeName); ok {
		return f.w.WriteByte(plainCode(code))
	}
	if err := f.w.WriteByte(plainCode(codeOther)); err != nil {
		return err
	}
	if _, err := f.w.WriteString(typeName); err != nil {
		return err
	}
	return f.w.WriteByte(nameTerminator)
}

func (f *Formatter) AddNull(typeName string) error {
	name, named := f.takeName()
	code := codeEmpty
	b := plainCode(code)
	if named {
		b = namedCode(code)
	}
	if err := f.w.WriteByte(b); err != nil {
		return err
	}
	return f.writeNameIfAny(name, named)
}

func (f *Formatter) AddValue(_ string, v sinfo.Scalar) error {
	name, named := f.takeName()
	switch v.Kind() {
	case sinfo.KindNone:
		return f.AddNullAfterTake(name, named)
	case sinfo.KindString:
		s, _ := v.AsString()
		return f.writeStringValue(name, named, s)
	case sinfo.KindBytes:
		b, _ := v.AsBytes()
		return f.writeBinary(name, named, b)
	case sinfo.KindChar:
		c, _ := v.AsChar()
		return f.writeString(codeChar, name, named, string(c))
	case sinfo.KindBool:
		bv, _ := v.AsBool()
		return f.writeTagged(codeBool, name, named, func() error {
			if bv {
				return f.w.WriteByte(1)
			}
			return f.w.WriteByte(0)
		})
	case sinfo.KindInt:
		iv, _ := v.AsInt64()
		return f.writeInt(name, named, iv)
	case sinfo.KindUint:
		uv, _ := v.AsUint64()
		return f.writeUint(name, named, uv)
	case sinfo.KindFloat:
		fv, _ := v.AsFloat64()
		return f.writeFloat(name, named, fv)
	default:
		return fmt.Errorf("bin: AddValue: unsupported scalar kind %s", v.Kind())
	}
}

func (f *Formatter) AddNullAfterTake(name string, named bool) error {
	b := plainCode(codeEmpty)
	if named {
		b = namedCode(codeEmpty)
	}
	if err := f.w.WriteByte(b); err != nil {
		return err
	}
	return f.writeNameIfAny(name, named)
}

func (f *Formatter) writeTagged(code scalarCode, name string, named bool, payload func() error) error {
	b := plainCode(code)
	if named {
		b = namedCode(code)
	}
	if err := f.w.WriteByte(b); err != nil {
		return err
	}
	if err := f.writeNameIfAny(name, named); err != nil {
		return err
	}
	return payload()
}

// writeStringValue applies the §4.3 heuristics a plain Go string goes
// through before it is written as a scalar: a string containing an embedded
// NUL cannot use the NUL-terminated string/char codes (it would be
// truncated on decode), so it is written as a binary blob instead; a string
// that looks like a number is reinterpreted as an integer (signed if it has
// a leading sign, unsigned otherwise) and, for a true (non-integer) numeric
// string, falls back to the BCD float encoding.
func (f *Formatter) writeStringValue(name string, named bool, s string) error {
	if strings.IndexByte(s, 0) >= 0 {
		return f.writeBinary(name, named, []byte(s))
	}
	if looksNumeric(s) {
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return f.writeUint(name, named, u)
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return f.writeInt(name, named, i)
		}
		if bv, err := strconv.ParseFloat(s, 64); err == nil {
			return f.writeTagged(codeBcdFloat, name, named, func() error {
				_, err := f.w.Write(encodeBCD(bv))
				return err
			})
		}
	}
	return f.writeString(codeString, name, named, s)
}

// looksNumeric is a cheap syntactic pre-check (digits, optional leading
// sign, optional one decimal point / exponent) so ordinary text never pays
// for a ParseInt/ParseFloat attempt.
func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i++
	}
	if i == len(s) {
		return false
	}
	sawDigit := false
	for ; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			sawDigit = true
		case c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-':
		default:
			return false
		}
	}
	return sawDigit
}

// writeString emits a String or Char payload: the UTF-8 text followed by
// `\x00` then `\xff` — two distinct terminator bytes per §4.1's scalar
// payload table ("UTF-8 chars terminated by `\x00` then `\xff`" / "UTF-8
// bytes, `\x00`, `\xff`"), not the single `\xff` an aggregate closes with.
func (f *Formatter) writeString(code scalarCode, name string, named bool, s string) error {
	return f.writeTagged(code, name, named, func() error {
		if _, err := f.w.WriteString(s); err != nil {
			return err
		}
		if err := f.w.WriteByte(nameTerminator); err != nil {
			return err
		}
		return f.w.WriteByte(stringTerminator)
	})
}

func (f *Formatter) writeBinary(name string, named bool, b []byte) error {
	code := codeBinary4
	if len(b) <= 0xffff {
		code = codeBinary2
	}
	return f.writeTagged(code, name, named, func() error {
		if code == codeBinary2 {
			n := uint16(len(b))
			if err := f.w.WriteByte(byte(n >> 8)); err != nil {
				return err
			}
			if err := f.w.WriteByte(byte(n)); err != nil {
				return err
			}
		} else {
			n := uint32(len(b))
			for i := 3; i >= 0; i-- {
				if err := f.w.WriteByte(byte(n >> (8 * i))); err != nil {
					return err
				}
			}
		}
		_, err := f.w.Write(b)
		return err
	})
}

func (f *Formatter) writeInt(name string, named bool, v int64) error {
	if v >= 0 {
		return f.writeUint(name, named, uint64(v))
	}
	code := intWidthCode(v)
	width := intWidthBytes(code)
	return f.writeTagged(code, name, named, func() error {
		return writeBigEndian(f.w, uint64(v), width)
	})
}

func (f *Formatter) writeUint(name string, named bool, v uint64) error {
	code := uintWidthCode(v)
	width := intWidthBytes(code)
	return f.writeTagged(code, name, named, func() error {
		return writeBigEndian(f.w, v, width)
	})
}

func (f *Formatter) writeFloat(name string, named bool, v float64) error {
	shape, payload := encodeFloat(v)
	code := codeShortFloat
	switch shape {
	case shapeMedium:
		code = codeMediumFloat
	case shapeLong:
		code = codeLongFloat
	}
	return f.writeTagged(code, name, named, func() error {
		_, err := f.w.Write(payload)
		return err
	})
}

func writeBigEndian(w *bufio.Writer, v uint64, width int) error {
	for i := width - 1; i >= 0; i-- {
		if err := w.WriteByte(byte(v >> (8 * i))); err != nil {
			return err
		}
	}
	return nil
}
