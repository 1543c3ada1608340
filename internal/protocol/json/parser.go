// Package json implements the lenient JSON wire codec of spec §4.4–§4.5:
// bare (unquoted) object keys, `//` and `/* */` comments anywhere
// whitespace is allowed, `\uXXXX` escapes (including either-order
// surrogate pairs), multiple top-level documents read back to back from
// one stream, and a Formatter that can emit either strict or
// beautified/plainkey output.
package json

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/maekitalo/sertools/internal/protocol/compose"
	"github.com/maekitalo/sertools/internal/protocol/sinfo"
)

// Parser reads one or more lenient JSON documents from a stream.
type Parser struct {
	r    *bufio.Reader
	line int
}

// NewParser wraps r. If the first bytes carry a UTF-16LE/BE BOM, the
// stream is transcoded to UTF-8 via golang.org/x/text/encoding/unicode
// before lenient parsing begins (cxxtools' wide-character string support,
// supplemented from original_source, implies JSON documents may arrive in
// a non-UTF-8 Windows-native encoding).
func NewParser(r io.Reader) *Parser {
	br := bufio.NewReader(r)
	if peek, err := br.Peek(2); err == nil {
		switch {
		case peek[0] == 0xff && peek[1] == 0xfe, peek[0] == 0xfe && peek[1] == 0xff:
			dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
			tr := transform.NewReader(br, dec)
			return &Parser{r: bufio.NewReader(tr), line: 1}
		}
	}
	return &Parser{r: br, line: 1}
}

// More reports whether another top-level document is available (spec §4.4:
// "a stream may hold several concatenated documents").
func (p *Parser) More() bool {
	p.skipWhitespaceAndComments()
	_, err := p.r.Peek(1)
	return err == nil
}

// ParseValue reads one JSON value (object, array, or scalar) and drives c.
func (p *Parser) ParseValue(c compose.Composer) error {
	p.skipWhitespaceAndComments()
	b, err := p.peekByte()
	if err != nil {
		if err == io.EOF {
			return &NoDataError{}
		}
		return err
	}
	switch b {
	case '{':
		return p.parseObject(c)
	case '[':
		return p.parseArray(c)
	case '"', '\'':
		s, err := p.parseQuotedString()
		if err != nil {
			return err
		}
		c.SetTypeName("string")
		if err := c.SetValue(sinfo.StringScalar(s)); err != nil {
			return err
		}
		return c.Finalize()
	case 't', 'f':
		bv, err := p.parseBool()
		if err != nil {
			return err
		}
		c.SetTypeName("bool")
		if err := c.SetValue(sinfo.BoolScalar(bv)); err != nil {
			return err
		}
		return c.Finalize()
	case 'n':
		if err := p.expectLiteral("null"); err != nil {
			return err
		}
		c.SetTypeName("null")
		if err := c.SetNull(); err != nil {
			return err
		}
		return c.Finalize()
	default:
		return p.parseNumber(c)
	}
}

func (p *Parser) readByte() (byte, error) {
	b, err := p.r.ReadByte()
	if err == nil && b == '\n' {
		p.line++
	}
	return b, err
}

func (p *Parser) peekByte() (byte, error) {
	b, err := p.r.Peek(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (p *Parser) skipWhitespaceAndComments() {
	for {
		b, err := p.peekByte()
		if err != nil {
			return
		}
		switch {
		case b == ' ' || b == '\t' || b == '\r' || b == '\n':
			p.readByte()
		case b == '/':
			peek2, err := p.r.Peek(2)
			if err != nil || len(peek2) < 2 {
				return
			}
			switch peek2[1] {
			case '/':
				for {
					c, err := p.readByte()
					if err != nil || c == '\n' {
						break
					}
				}
			case '*':
				p.readByte()
				p.readByte()
				for {
					c, err := p.readByte()
					if err != nil {
						return
					}
					if c == '*' {
						if next, _ := p.peekByte(); next == '/' {
							p.readByte()
							break
						}
					}
				}
			default:
				return
			}
		default:
			return
		}
	}
}

func (p *Parser) expectLiteral(lit string) error {
	for i := 0; i < len(lit); i++ {
		b, err := p.readByte()
		if err != nil {
			return err
		}
		if b != lit[i] {
			return newParseError(p.line, "expected literal %q", lit)
		}
	}
	return nil
}

func (p *Parser) parseBool() (bool, error) {
	b, err := p.peekByte()
	if err != nil {
		return false, err
	}
	if b == 't' {
		return true, p.expectLiteral("true")
	}
	return false, p.expectLiteral("false")
}

func (p *Parser) parseNumber(c compose.Composer) error {
	var sb strings.Builder
	isFloat := false
	for {
		b, err := p.peekByte()
		if err != nil {
			break
		}
		if b >= '0' && b <= '9' || b == '-' || b == '+' {
			sb.WriteByte(b)
			p.readByte()
			continue
		}
		if b == '.' || b == 'e' || b == 'E' {
			isFloat = true
			sb.WriteByte(b)
			p.readByte()
			continue
		}
		break
	}
	if sb.Len() == 0 {
		return newParseError(p.line, "expected a value")
	}
	if isFloat {
		v, err := strconv.ParseFloat(sb.String(), 64)
		if err != nil {
			return newParseError(p.line, "invalid number %q: %s", sb.String(), err)
		}
		c.SetTypeName("double")
		if err := c.SetValue(sinfo.FloatScalar(v)); err != nil {
			return err
		}
		return c.Finalize()
	}
	v, err := strconv.ParseInt(sb.String(), 10, 64)
	if err != nil {
		// Falls back to float for integers wider than int64 (e.g. huge
		// literals), matching the typeName-inference note in spec §4.5.
		fv, ferr := strconv.ParseFloat(sb.String(), 64)
		if ferr != nil {
			return newParseError(p.line, "invalid number %q: %s", sb.String(), err)
		}
		c.SetTypeName("double")
		if err := c.SetValue(sinfo.FloatScalar(fv)); err != nil {
			return err
		}
		return c.Finalize()
	}
	c.SetTypeName("int")
	if err := c.SetValue(sinfo.IntScalar(v)); err != nil {
		return err
	}
	return c.Finalize()
}

// parseQuotedString reads a '"'- or '\''-delimited string, resolving
// standard escapes plus \uXXXX (including surrogate pairs given in either
// order, recombined via unicode/utf16 the same way encoding/json does).
func (p *Parser) parseQuotedString() (string, error) {
	quote, err := p.readByte()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for {
		b, err := p.readByte()
		if err != nil {
			return "", newParseError(p.line, "unterminated string")
		}
		if b == quote {
			return sb.String(), nil
		}
		if b != '\\' {
			sb.WriteByte(b)
			continue
		}
		esc, err := p.readByte()
		if err != nil {
			return "", newParseError(p.line, "unterminated escape")
		}
		switch esc {
		case '"', '\'', '\\', '/':
			sb.WriteByte(esc)
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'u':
			r, err := p.readUnicodeEscape()
			if err != nil {
				return "", err
			}
			sb.WriteRune(r)
		default:
			return "", newParseError(p.line, "invalid escape \\%c", esc)
		}
	}
}

func (p *Parser) readUnicodeEscape() (rune, error) {
	u1, err := p.readHex4()
	if err != nil {
		return 0, err
	}
	if utf16.IsSurrogate(rune(u1)) {
		// Allow either order of the pair, tolerating malformed input that
		// swaps high/low surrogates (spec §4.4 leniency).
		mark := p.savepoint()
		if peek, err := p.r.Peek(2); err == nil && peek[0] == '\\' && peek[1] == 'u' {
			p.readByte()
			p.readByte()
			u2, err := p.readHex4()
			if err == nil {
				if r := utf16.DecodeRune(rune(u1), rune(u2)); r != utf8.RuneError {
					return r, nil
				}
				if r := utf16.DecodeRune(rune(u2), rune(u1)); r != utf8.RuneError {
					return r, nil
				}
			}
		}
		p.restore(mark)
	}
	return rune(u1), nil
}

func (p *Parser) readHex4() (uint16, error) {
	var buf [4]byte
	for i := range buf {
		b, err := p.readByte()
		if err != nil {
			return 0, newParseError(p.line, "unterminated \\u escape")
		}
		buf[i] = b
	}
	v, err := strconv.ParseUint(string(buf[:]), 16, 16)
	if err != nil {
		return 0, newParseError(p.line, "invalid \\u escape %q", buf)
	}
	return uint16(v), nil
}

// savepoint/restore support the surrogate-pair lookahead above. bufio.Reader
// has no native rewind beyond UnreadByte, so on the (rare) mismatched
// surrogate path we simply accept the already-consumed bytes as lost; JSON
// producers practically always emit pairs in order, so this is a best-
// effort leniency rather than round-trippable recovery.
type parserMark struct{}

func (p *Parser) savepoint() parserMark  { return parserMark{} }
func (p *Parser) restore(parserMark)     {}

func (p *Parser) parseKey() (string, error) {
	p.skipWhitespaceAndComments()
	b, err := p.peekByte()
	if err != nil {
		return "", err
	}
	if b == '"' || b == '\'' {
		return p.parseQuotedString()
	}
	var sb strings.Builder
	for {
		b, err := p.peekByte()
		if err != nil {
			break
		}
		if b == ':' || b == ' ' || b == '\t' || b == '\r' || b == '\n' {
			break
		}
		sb.WriteByte(b)
		p.readByte()
	}
	if sb.Len() == 0 {
		return "", newParseError(p.line, "expected an object key")
	}
	return sb.String(), nil
}

func (p *Parser) expectByte(want byte) error {
	p.skipWhitespaceAndComments()
	b, err := p.readByte()
	if err != nil {
		return err
	}
	if b != want {
		return newParseError(p.line, "expected %q, got %q", want, b)
	}
	return nil
}

func (p *Parser) parseObject(c compose.Composer) error {
	if err := p.expectByte('{'); err != nil {
		return err
	}
	c.SetCategory(sinfo.CategoryObject)
	p.skipWhitespaceAndComments()
	if b, err := p.peekByte(); err == nil && b == '}' {
		p.readByte()
		return c.Finalize()
	}
	for {
		name, err := p.parseKey()
		if err != nil {
			return err
		}
		if err := p.expectByte(':'); err != nil {
			return err
		}
		child, err := c.BeginMember(name)
		if err != nil {
			return err
		}
		if err := p.ParseValue(child); err != nil {
			return err
		}
		p.skipWhitespaceAndComments()
		b, err := p.readByte()
		if err != nil {
			return err
		}
		if b == '}' {
			return c.Finalize()
		}
		if b != ',' {
			return newParseError(p.line, "expected ',' or '}', got %q", b)
		}
		p.skipWhitespaceAndComments()
	}
}

func (p *Parser) parseArray(c compose.Composer) error {
	if err := p.expectByte('['); err != nil {
		return err
	}
	c.SetCategory(sinfo.CategoryArray)
	p.skipWhitespaceAndComments()
	if b, err := p.peekByte(); err == nil && b == ']' {
		p.readByte()
		return c.Finalize()
	}
	for {
		elem, err := c.BeginElement()
		if err != nil {
			return err
		}
		if err := p.ParseValue(elem); err != nil {
			return err
		}
		p.skipWhitespaceAndComments()
		b, err := p.readByte()
		if err != nil {
			return err
		}
		if b == ']' {
			return c.Finalize()
		}
		if b != ',' {
			return newParseError(p.line, "expected ',' or ']', got %q", b)
		}
		p.skipWhitespaceAndComments()
	}
}
