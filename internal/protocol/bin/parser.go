package bin

import (
	"bufio"
	"io"

	"github.com/maekitalo/sertools/internal/protocol/compose"
	"github.com/maekitalo/sertools/internal/protocol/sinfo"
)

// Parser reads the self-describing binary format of §4.1 and drives a
// compose.Composer. The original scanner (original_source/src/bin/
// scanner.h) is a byte-at-a-time resumable state machine so it can sit on
// top of a non-blocking socket; here the Parser is a blocking
// recursive-descent reader over a bufio.Reader instead (see DESIGN.md:
// Go's io.Reader already blocks the calling goroutine, and the rpc package
// gives every connection its own goroutine, so byte-level resumability
// buys nothing we don't already get from a bufio-buffered blocking read).
// The RPC framing layer (Scanner, scanner.go) also reads from a blocking
// bufio.Reader; it only names its steps after the upstream scanner's states.
type Parser struct {
	r      *bufio.Reader
	offset int64
}

func NewParser(r io.Reader) *Parser {
	return &Parser{r: bufio.NewReader(r)}
}

// newParserOnBuffered lets the Scanner share a single bufio.Reader with the
// Parser instead of double-buffering the connection.
func newParserOnBuffered(r *bufio.Reader) *Parser {
	return &Parser{r: r}
}

func (p *Parser) readByte() (byte, error) {
	b, err := p.r.ReadByte()
	if err != nil {
		return 0, err
	}
	p.offset++
	return b, nil
}

func (p *Parser) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(p.r, buf); err != nil {
		return nil, err
	}
	p.offset += int64(n)
	return buf, nil
}

func (p *Parser) readCString() (string, error) {
	var b []byte
	for {
		c, err := p.readByte()
		if err != nil {
			return "", err
		}
		if c == nameTerminator {
			return string(b), nil
		}
		b = append(b, c)
	}
}

// readTerminatedString reads a String/Char payload: UTF-8 bytes up to a
// `\x00`, then requires the following `\xff` (§4.1: "terminated by `\x00`
// then `\xff`").
func (p *Parser) readTerminatedString() (string, error) {
	var b []byte
	for {
		c, err := p.readByte()
		if err != nil {
			return "", err
		}
		if c == nameTerminator {
			term, err := p.readByte()
			if err != nil {
				return "", err
			}
			if term != stringTerminator {
				return "", newParseError(p.offset, "expected %#x after string payload, got %#x", stringTerminator, term)
			}
			return string(b), nil
		}
		b = append(b, c)
	}
}

// ParseValue reads exactly one top-level (unnamed) value from the stream
// and drives c with it. It is the entry point used directly by the RPC
// client (a request/reply body is always a single plain-coded value) and
// indirectly, through Parse, by document-level decoding.
func (p *Parser) ParseValue(c compose.Composer) error {
	b, err := p.readByte()
	if err != nil {
		return err
	}
	return p.parseAfterCode(b, c)
}

// Parse decodes a full top-level document: either a bare value or an
// object/array, matching whatever the formatter wrote for the root.
func (p *Parser) Parse(c compose.Composer) error {
	return p.ParseValue(c)
}

// parseAfterCode parses a value whose leading type-code byte b has already
// been read and is not itself preceded by an inline name (root values, RPC
// payloads, array elements). Scalars are finalized here; parseObject and
// parseArray finalize themselves at their terminator byte.
func (p *Parser) parseAfterCode(b byte, c compose.Composer) error {
	switch b {
	case codeCategoryObjectPlain, codeCategoryObjectNamed:
		return p.parseObject(c)
	case codeCategoryArrayPlain, codeCategoryArrayNamed:
		return p.parseArray(c)
	}

	code, _, ok := classify(b)
	if !ok {
		return newParseError(p.offset, "unrecognized type code %#x", b)
	}
	if err := p.parseScalar(code, c); err != nil {
		return err
	}
	return c.Finalize()
}

func (p *Parser) parseObject(c compose.Composer) error {
	c.SetCategory(sinfo.CategoryObject)
	typeName, err := p.readTypeTag()
	if err != nil {
		return err
	}
	c.SetTypeName(typeName)

	for {
		marker, err := p.readByte()
		if err != nil {
			return err
		}
		if marker == stringTerminator {
			return c.Finalize()
		}
		if marker != memberSeparator {
			return newParseError(p.offset, "expected member separator or terminator, got %#x", marker)
		}

		// Wire order is [separator][named value code][name][terminator]
		// [payload] — the name is embedded in the named code, not the
		// separator (formatter.go: BeginMember only reserves the name,
		// the following AddValue/BeginObject/BeginArray call writes it).
		vb, err := p.readByte()
		if err != nil {
			return err
		}
		if vb != codeCategoryObjectNamed && vb != codeCategoryArrayNamed {
			if _, named, ok := classify(vb); !ok || !named {
				return newParseError(p.offset, "expected a named value code for a member, got %#x", vb)
			}
		}
		name, err := p.readCString()
		if err != nil {
			return err
		}
		child, err := c.BeginMember(name)
		if err != nil {
			return err
		}
		if err := p.parseAfterCode(vb, child); err != nil {
			return err
		}
	}
}

func (p *Parser) parseArray(c compose.Composer) error {
	c.SetCategory(sinfo.CategoryArray)
	typeName, err := p.readTypeTag()
	if err != nil {
		return err
	}
	c.SetTypeName(typeName)

	for {
		b, err := p.readByte()
		if err != nil {
			return err
		}
		if b == stringTerminator {
			return c.Finalize()
		}
		elem, err := c.BeginElement()
		if err != nil {
			return err
		}
		if err := p.parseAfterCode(b, elem); err != nil {
			return err
		}
	}
}

func (p *Parser) readTypeTag() (string, error) {
	b, err := p.readByte()
	if err != nil {
		return "", err
	}
	code, _, ok := classify(b)
	if !ok {
		return "", newParseError(p.offset, "invalid type tag code %#x", b)
	}
	if code == codeOther {
		return p.readCString()
	}
	return containerTypeName(code), nil
}

func containerTypeName(c scalarCode) string {
	switch c {
	case codePair:
		return "pair"
	case codeArray:
		return "array"
	case codeList:
		return "list"
	case codeDeque:
		return "deque"
	case codeSet:
		return "set"
	case codeMultiset:
		return "multiset"
	case codeMap:
		return "map"
	case codeMultimap:
		return "multimap"
	default:
		return ""
	}
}

func (p *Parser) parseScalar(code scalarCode, c compose.Composer) error {
	switch code {
	case codeEmpty:
		return c.SetNull()
	case codeBool:
		b, err := p.readByte()
		if err != nil {
			return err
		}
		return c.SetValue(sinfo.BoolScalar(b != 0))
	case codeChar:
		s, err := p.readTerminatedString()
		if err != nil {
			return err
		}
		r := rune(0)
		for _, rn := range s {
			r = rn
			break
		}
		return c.SetValue(sinfo.CharScalar(r))
	case codeString:
		s, err := p.readTerminatedString()
		if err != nil {
			return err
		}
		return c.SetValue(sinfo.StringScalar(s))
	case codeInt8, codeInt16, codeInt32, codeInt64:
		v, err := p.readSignedBigEndian(intWidthBytes(code))
		if err != nil {
			return err
		}
		return c.SetValue(sinfo.IntScalar(v))
	case codeUInt8, codeUInt16, codeUInt32, codeUInt64:
		v, err := p.readUnsignedBigEndian(intWidthBytes(code))
		if err != nil {
			return err
		}
		return c.SetValue(sinfo.UintScalar(v))
	case codeShortFloat:
		b, err := p.readN(3)
		if err != nil {
			return err
		}
		return c.SetValue(sinfo.FloatScalar(decodeShortFloat([3]byte(b))))
	case codeMediumFloat:
		b, err := p.readN(5)
		if err != nil {
			return err
		}
		return c.SetValue(sinfo.FloatScalar(decodeMediumFloat([5]byte(b))))
	case codeLongFloat:
		b, err := p.readN(10)
		if err != nil {
			return err
		}
		return c.SetValue(sinfo.FloatScalar(decodeLongFloat([10]byte(b))))
	case codeBcdFloat:
		v, err := p.readBCDPayload()
		if err != nil {
			return err
		}
		return c.SetValue(sinfo.FloatScalar(v))
	case codeBinary2:
		lenBytes, err := p.readN(2)
		if err != nil {
			return err
		}
		n := int(lenBytes[0])<<8 | int(lenBytes[1])
		data, err := p.readN(n)
		if err != nil {
			return err
		}
		return c.SetValue(sinfo.BytesScalar(data))
	case codeBinary4:
		lenBytes, err := p.readN(4)
		if err != nil {
			return err
		}
		n := int(lenBytes[0])<<24 | int(lenBytes[1])<<16 | int(lenBytes[2])<<8 | int(lenBytes[3])
		data, err := p.readN(n)
		if err != nil {
			return err
		}
		return c.SetValue(sinfo.BytesScalar(data))
	default:
		return newParseError(p.offset, "unsupported scalar code %v", code)
	}
}

func (p *Parser) readSignedBigEndian(width int) (int64, error) {
	u, err := p.readUnsignedBigEndian(width)
	if err != nil {
		return 0, err
	}
	switch width {
	case 1:
		return int64(int8(u)), nil
	case 2:
		return int64(int16(u)), nil
	case 4:
		return int64(int32(u)), nil
	default:
		return int64(u), nil
	}
}

func (p *Parser) readUnsignedBigEndian(width int) (uint64, error) {
	b, err := p.readN(width)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v, nil
}

// readBCDPayload reads a BCD float byte-by-byte directly off the stream,
// stopping once the terminator nibble (and the trailing 0xff) is seen, so
// it does not need to know the payload length up front.
func (p *Parser) readBCDPayload() (float64, error) {
	var raw []byte
	first, err := p.readByte()
	if err != nil {
		return 0, err
	}
	raw = append(raw, first)
	if first == bcdNaN || first == bcdPosInf || first == bcdNegInf {
		term, err := p.readByte()
		if err != nil {
			return 0, err
		}
		raw = append(raw, term)
		return decodeBCD(raw)
	}
	for {
		hi, lo := first>>4, first&0x0f
		if hi == nibbleTerm || lo == nibbleTerm {
			break
		}
		b, err := p.readByte()
		if err != nil {
			return 0, err
		}
		raw = append(raw, b)
		first = b
	}
	term, err := p.readByte()
	if err != nil {
		return 0, err
	}
	raw = append(raw, term)
	return decodeBCD(raw)
}
