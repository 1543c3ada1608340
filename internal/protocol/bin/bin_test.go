package bin

import (
	"bufio"
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maekitalo/sertools/internal/protocol/compose"
	"github.com/maekitalo/sertools/internal/protocol/sinfo"
)

func encodeDecomposer(t *testing.T, d compose.Decomposer) []byte {
	t.Helper()
	var buf bytes.Buffer
	f := NewFormatter(&buf)
	require.NoError(t, d.Format(f))
	require.NoError(t, f.Flush())
	return buf.Bytes()
}

func TestPlainIntWidthSelection(t *testing.T) {
	// -4711 needs int16; the formatter must pick the narrowest signed width.
	root := sinfo.New()
	root.SetValue(sinfo.IntScalar(-4711))
	data := encodeDecomposer(t, compose.NewTreeDecomposer(root))

	require.Len(t, data, 3)
	assert.Equal(t, plainCode(codeInt16), data[0])
	assert.Equal(t, byte(0xED), data[1])
	assert.Equal(t, byte(0x99), data[2])
}

func TestObjectRoundTrip(t *testing.T) {
	root := sinfo.New()
	root.SetCategory(sinfo.CategoryObject)
	root.SetTypeName("testObject")
	m := root.AddMember("Name")
	m.SetValue(sinfo.StringScalar("hello"))
	n := root.AddMember("Count")
	n.SetValue(sinfo.IntScalar(42))

	data := encodeDecomposer(t, compose.NewTreeDecomposer(root))

	out := sinfo.New()
	p := NewParser(bytes.NewReader(data))
	require.NoError(t, p.Parse(compose.NewTreeComposer(out)))

	assert.True(t, root.Equal(out))
}

func TestArrayRoundTrip(t *testing.T) {
	root := sinfo.New()
	root.SetCategory(sinfo.CategoryArray)
	root.SetTypeName("array")
	for _, v := range []int64{1, 2, 3} {
		e := root.AddElement()
		e.SetValue(sinfo.IntScalar(v))
	}

	data := encodeDecomposer(t, compose.NewTreeDecomposer(root))

	out := sinfo.New()
	p := NewParser(bytes.NewReader(data))
	require.NoError(t, p.Parse(compose.NewTreeComposer(out)))
	assert.True(t, root.Equal(out))
}

func TestFloatRoundTripShortMediumLong(t *testing.T) {
	values := []float64{0, 1, -1, 0.5, 1234.5, 1e-300, math.MaxFloat64, -math.MaxFloat64}
	for _, v := range values {
		shape, payload := encodeFloat(v)
		var got float64
		switch shape {
		case shapeShort:
			got = decodeShortFloat([3]byte(payload[:3]))
		case shapeMedium:
			got = decodeMediumFloat([5]byte(payload[:5]))
		case shapeLong:
			got = decodeLongFloat([10]byte(payload[:10]))
		}
		assert.Equal(t, v, got, "round-trip for %v", v)
	}
}

func TestFloatSpecialValues(t *testing.T) {
	_, nanPayload := encodeFloat(math.NaN())
	assert.True(t, math.IsNaN(decodeShortFloat([3]byte(nanPayload))))

	_, posInfPayload := encodeFloat(math.Inf(1))
	assert.True(t, math.IsInf(decodeShortFloat([3]byte(posInfPayload)), 1))

	_, negInfPayload := encodeFloat(math.Inf(-1))
	assert.True(t, math.IsInf(decodeShortFloat([3]byte(negInfPayload)), -1))
}

func TestBCDRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1, -1, 3.125, 12345.6789} {
		data := encodeBCD(v)
		got, err := decodeBCD(data)
		require.NoError(t, err)
		assert.InDelta(t, v, got, 1e-9)
	}
}

func TestBCDSpecialValues(t *testing.T) {
	v, err := decodeBCD(encodeBCD(math.NaN()))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))

	v, err = decodeBCD(encodeBCD(math.Inf(1)))
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1))
}

func TestStringRoundTrip(t *testing.T) {
	root := sinfo.New()
	root.SetValue(sinfo.StringScalar("hello, äöü"))
	data := encodeDecomposer(t, compose.NewTreeDecomposer(root))

	out := sinfo.New()
	require.NoError(t, NewParser(bytes.NewReader(data)).Parse(compose.NewTreeComposer(out)))
	s, err := out.Value().AsString()
	require.NoError(t, err)
	assert.Equal(t, "hello, äöü", s)
}

func TestCharRoundTrip(t *testing.T) {
	root := sinfo.New()
	root.SetValue(sinfo.CharScalar('ä'))
	data := encodeDecomposer(t, compose.NewTreeDecomposer(root))
	// Char payload is terminated `\x00` then `\xff` (§4.1), same two-byte
	// convention as String, not the single `\xff` an aggregate closes with.
	assert.Equal(t, byte(nameTerminator), data[len(data)-2])
	assert.Equal(t, byte(stringTerminator), data[len(data)-1])

	out := sinfo.New()
	require.NoError(t, NewParser(bytes.NewReader(data)).Parse(compose.NewTreeComposer(out)))
	r, err := out.Value().AsChar()
	require.NoError(t, err)
	assert.Equal(t, 'ä', r)
}

func TestBinaryRoundTrip(t *testing.T) {
	root := sinfo.New()
	root.SetValue(sinfo.BytesScalar([]byte{0x00, 0x01, 0xff, 0x10, 0x20}))
	data := encodeDecomposer(t, compose.NewTreeDecomposer(root))

	out := sinfo.New()
	require.NoError(t, NewParser(bytes.NewReader(data)).Parse(compose.NewTreeComposer(out)))
	b, err := out.Value().AsBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0xff, 0x10, 0x20}, b)
}

func TestNullRoundTrip(t *testing.T) {
	root := sinfo.New()
	root.SetNull()
	data := encodeDecomposer(t, compose.NewTreeDecomposer(root))

	out := sinfo.New()
	require.NoError(t, NewParser(bytes.NewReader(data)).Parse(compose.NewTreeComposer(out)))
	assert.True(t, out.Value().IsNull())
}

func TestReflectComposeDecomposeRoundTrip(t *testing.T) {
	type record struct {
		Name  string
		Count int
		Rate  float64
		Flag  bool
	}
	in := record{Name: "widget", Count: 7, Rate: 2.5, Flag: true}

	var buf bytes.Buffer
	f := NewFormatter(&buf)
	require.NoError(t, compose.NewReflectDecomposer(in).Format(f))
	require.NoError(t, f.Flush())

	var out record
	rc, err := compose.NewReflectComposer(&out)
	require.NoError(t, err)
	require.NoError(t, NewParser(bytes.NewReader(buf.Bytes())).Parse(rc))
	assert.Equal(t, in, out)
}

func TestParserRejectsUnrecognizedCode(t *testing.T) {
	out := sinfo.New()
	err := NewParser(bytes.NewReader([]byte{0x99})).Parse(compose.NewTreeComposer(out))
	require.Error(t, err)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestScannerReadsValueReply(t *testing.T) {
	var payload bytes.Buffer
	f := NewFormatter(&payload)
	require.NoError(t, f.AddValue("string", sinfo.StringScalar("ok")))
	require.NoError(t, f.Flush())

	var frame bytes.Buffer
	frame.WriteByte(rpcReplyValue)
	frame.Write(payload.Bytes())
	frame.WriteByte(stringTerminator) // frame-level terminator, §4.1 "value \xff"

	out := sinfo.New()
	sc := NewScanner(&frame)
	require.NoError(t, sc.ReadReply(compose.NewTreeComposer(out)))
	s, err := out.Value().AsString()
	require.NoError(t, err)
	assert.Equal(t, "ok", s)
}

func TestScannerReadsErrorReply(t *testing.T) {
	var frame bytes.Buffer
	frame.WriteByte(rpcReplyError)
	frame.Write([]byte{0, 0, 0, 7}) // error code 7
	frame.WriteString("boom")
	frame.WriteByte(nameTerminator)
	frame.WriteByte(stringTerminator)

	out := sinfo.New()
	sc := NewScanner(&frame)
	err := sc.ReadReply(compose.NewTreeComposer(out))
	require.Error(t, err)
	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, int32(7), rerr.Code)
	assert.Equal(t, "boom", rerr.Message)
}

func TestWriteRequestRoundTrip(t *testing.T) {
	var frame bytes.Buffer
	require.NoError(t, WriteRequest(&frame, "", "echo", func(f *Formatter) error {
		if err := f.AddValue("int", sinfo.IntScalar(5)); err != nil {
			return err
		}
		return f.AddValue("int", sinfo.IntScalar(6))
	}))

	r := bufio.NewReader(bytes.NewReader(frame.Bytes()))
	marker, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(rpcNoDomain), marker)

	p := newParserOnBuffered(r)
	name, err := p.readCString()
	require.NoError(t, err)
	assert.Equal(t, "echo", name)

	out1 := sinfo.New()
	require.NoError(t, p.ParseValue(compose.NewTreeComposer(out1)))
	v1, _ := out1.Value().AsInt64()
	assert.Equal(t, int64(5), v1)

	out2 := sinfo.New()
	require.NoError(t, p.ParseValue(compose.NewTreeComposer(out2)))
	v2, _ := out2.Value().AsInt64()
	assert.Equal(t, int64(6), v2)

	term, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(stringTerminator), term)
}
