package json

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/maekitalo/sertools/internal/protocol/sinfo"
)

// Formatter implements compose.Formatter, writing JSON. By default an
// emitted document is valid strict JSON; with PlainKey set, keys that are
// valid bare identifiers are written unquoted, which only a lenient reader
// such as this package's Parser accepts. Comments are never emitted.
type Formatter struct {
	w         *bufio.Writer
	Beautify  bool // pretty-print with indentation (spec §4.5)
	PlainKey  bool // emit unquoted keys where they're valid bare identifiers
	depth     int
	needComma []bool
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: bufio.NewWriter(w)}
}

func (f *Formatter) Flush() error { return f.w.Flush() }

func (f *Formatter) indent() {
	if !f.Beautify {
		return
	}
	f.w.WriteByte('\n')
	for i := 0; i < f.depth; i++ {
		f.w.WriteString("  ")
	}
}

func (f *Formatter) beforeValue() {
	if len(f.needComma) == 0 {
		return
	}
	top := len(f.needComma) - 1
	if f.needComma[top] {
		f.w.WriteByte(',')
	}
	f.needComma[top] = true
	f.indent()
}

func (f *Formatter) BeginObject(string) error {
	f.beforeValue()
	f.w.WriteByte('{')
	f.depth++
	f.needComma = append(f.needComma, false)
	return nil
}

func (f *Formatter) BeginMember(name string) error {
	if f.needComma[len(f.needComma)-1] {
		f.w.WriteByte(',')
	}
	f.needComma[len(f.needComma)-1] = true
	f.indent()
	if f.PlainKey && isBareIdentifier(name) {
		f.w.WriteString(name)
	} else {
		writeJSONString(f.w, name)
	}
	f.w.WriteByte(':')
	if f.Beautify {
		f.w.WriteByte(' ')
	}
	return nil
}

func (f *Formatter) FinishMember() error { return nil }

func (f *Formatter) FinishObject() error {
	f.needComma = f.needComma[:len(f.needComma)-1]
	f.depth--
	f.indent()
	f.w.WriteByte('}')
	return nil
}

func (f *Formatter) BeginArray(string) error {
	f.beforeValue()
	f.w.WriteByte('[')
	f.depth++
	f.needComma = append(f.needComma, false)
	return nil
}

func (f *Formatter) FinishArray() error {
	f.needComma = f.needComma[:len(f.needComma)-1]
	f.depth--
	f.indent()
	f.w.WriteByte(']')
	return nil
}

func (f *Formatter) AddValue(typeName string, v sinfo.Scalar) error {
	f.beforeValue()
	if typeName == "json" {
		// Raw JSON passthrough (spec §4.5): the value is already a valid
		// JSON fragment stored as a string, written verbatim.
		s, err := v.AsString()
		if err != nil {
			return err
		}
		_, err = f.w.WriteString(s)
		return err
	}
	switch v.Kind() {
	case sinfo.KindNone:
		_, err := f.w.WriteString("null")
		return err
	case sinfo.KindString:
		s, _ := v.AsString()
		writeJSONString(f.w, s)
		return nil
	case sinfo.KindBytes:
		b, _ := v.AsBytes()
		writeJSONString(f.w, string(b))
		return nil
	case sinfo.KindChar:
		c, _ := v.AsChar()
		writeJSONString(f.w, string(c))
		return nil
	case sinfo.KindBool:
		b, _ := v.AsBool()
		_, err := f.w.WriteString(strconv.FormatBool(b))
		return err
	case sinfo.KindInt:
		i, _ := v.AsInt64()
		_, err := f.w.WriteString(strconv.FormatInt(i, 10))
		return err
	case sinfo.KindUint:
		u, _ := v.AsUint64()
		_, err := f.w.WriteString(strconv.FormatUint(u, 10))
		return err
	case sinfo.KindFloat:
		d, _ := v.AsFloat64()
		_, err := f.w.WriteString(strconv.FormatFloat(d, 'g', -1, 64))
		return err
	default:
		return fmt.Errorf("json: AddValue: unsupported scalar kind %s", v.Kind())
	}
}

func (f *Formatter) AddNull(string) error {
	f.beforeValue()
	_, err := f.w.WriteString("null")
	return err
}

func writeJSONString(w *bufio.Writer, s string) {
	w.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			w.WriteString(`\"`)
		case '\\':
			w.WriteString(`\\`)
		case '\n':
			w.WriteString(`\n`)
		case '\t':
			w.WriteString(`\t`)
		case '\r':
			w.WriteString(`\r`)
		default:
			switch {
			case r < 0x20:
				fmt.Fprintf(w, `\u%04x`, r)
			case r < 0x80:
				w.WriteRune(r)
			case r <= 0xffff:
				// Non-ASCII code points are always escaped (spec §4.5), even
				// though it's valid UTF-8 output either way.
				fmt.Fprintf(w, `\u%04x`, r)
			default:
				hi, lo := utf16.EncodeRune(r)
				fmt.Fprintf(w, `\u%04x\u%04x`, hi, lo)
			}
		}
	}
	w.WriteByte('"')
}

// isBareIdentifier reports whether name can be written unquoted under
// PlainKey mode (spec §4.4's "bare key" grammar, mirrored on write).
func isBareIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return !strings.ContainsAny(name, " \t\r\n:,{}[]")
}
