package bin

import (
	"math"
	"strconv"
	"strings"

	"github.com/maekitalo/sertools/internal/protocol/sinfo"
)

// BCD float nibble encoding (§4.1, Open Question (a)). The spec defines
// nibbles 0-9 as digits, 0xb '+', 0xc '-', 0xd "end-half" (odd-length
// padding), 0xe the exponent marker and 0xf the terminator, plus whole-byte
// sentinels \xf0/\xf1/\xf2 (NaN/+Inf/-Inf) each followed by \xff. It names a
// nibble 0xa "sign" without saying how that differs from the explicit
// '+'/'-' nibbles and leaves no nibble for the decimal point. This
// implementation uses 0xa as the decimal-point marker, since
// every non-integer finite value needs one and 0xa is the only nibble left
// unassigned a concrete role; any nibble outside this table is a ParseError
// on decode rather than a guess.
const (
	nibblePlus   = 0xb
	nibbleMinus  = 0xc
	nibblePoint  = 0xa
	nibbleEndPad = 0xd
	nibbleExp    = 0xe
	nibbleTerm   = 0xf
)

const (
	bcdNaN     = 0xf0
	bcdPosInf  = 0xf1
	bcdNegInf  = 0xf2
)

// encodeBCD renders v as packed BCD nibbles terminated by a nibble 0xf
// (padded with 0xd if that leaves an odd nibble count) followed by a
// literal 0xff byte, per the payload grammar in §4.1.
func encodeBCD(v float64) []byte {
	switch {
	case isNaNFloat(v):
		return []byte{bcdNaN, 0xff}
	case isPosInfFloat(v):
		return []byte{bcdPosInf, 0xff}
	case isNegInfFloat(v):
		return []byte{bcdNegInf, 0xff}
	}

	text := strconv.FormatFloat(v, 'g', -1, 64)
	nibbles := make([]byte, 0, len(text)+2)
	for _, r := range text {
		switch r {
		case '-':
			nibbles = append(nibbles, nibbleMinus)
		case '+':
			nibbles = append(nibbles, nibblePlus)
		case '.':
			nibbles = append(nibbles, nibblePoint)
		case 'e', 'E':
			nibbles = append(nibbles, nibbleExp)
		default:
			nibbles = append(nibbles, byte(r-'0'))
		}
	}
	nibbles = append(nibbles, nibbleTerm)
	if len(nibbles)%2 != 0 {
		nibbles = append(nibbles, nibbleEndPad)
	}

	out := make([]byte, len(nibbles)/2, len(nibbles)/2+1)
	for i := 0; i < len(out); i++ {
		out[i] = nibbles[2*i]<<4 | nibbles[2*i+1]
	}
	return append(out, 0xff)
}

// decodeBCD decodes a complete BCD float payload held in data, up to and
// including the trailing 0xff, i.e. exactly the bytes written by encodeBCD.
// The Parser collects those bytes from the stream first and then calls it.
func decodeBCD(data []byte) (float64, error) {
	if len(data) >= 2 && data[1] == 0xff {
		switch data[0] {
		case bcdNaN:
			return math.NaN(), nil
		case bcdPosInf:
			return math.Inf(1), nil
		case bcdNegInf:
			return math.Inf(-1), nil
		}
	}

	var sb strings.Builder
	i := 0
	done := false
	for ; i < len(data) && !done; i++ {
		hi, lo := data[i]>>4, data[i]&0x0f
		for _, n := range [2]byte{hi, lo} {
			switch {
			case n <= 9:
				sb.WriteByte('0' + n)
			case n == nibblePlus:
				sb.WriteByte('+')
			case n == nibbleMinus:
				sb.WriteByte('-')
			case n == nibblePoint:
				sb.WriteByte('.')
			case n == nibbleExp:
				sb.WriteByte('e')
			case n == nibbleEndPad:
				// padding, ignore
			case n == nibbleTerm:
				done = true
			default:
				return 0, newParseError(0, "invalid BCD nibble %#x", n)
			}
			if done {
				break
			}
		}
	}
	if !done {
		return 0, newParseError(0, "BCD payload missing terminator nibble")
	}
	if i >= len(data) || data[i] != 0xff {
		return 0, newParseError(0, "BCD payload missing trailing 0xff")
	}
	v, err := strconv.ParseFloat(sb.String(), 64)
	if err != nil {
		return 0, &sinfo.ConversionError{From: "BCD", To: "float64", Why: err.Error()}
	}
	return v, nil
}

func isNaNFloat(v float64) bool    { return math.IsNaN(v) }
func isPosInfFloat(v float64) bool { return math.IsInf(v, 1) }
func isNegInfFloat(v float64) bool { return math.IsInf(v, -1) }
