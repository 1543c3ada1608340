// Package serial exposes the public serialization surface of spec §6:
// Marshal/Unmarshal and streaming Encoder/Decoder types over both wire
// codecs (binary, spec §4.1-§4.3; lenient JSON, spec §4.4-§4.5), without
// callers ever touching the internal sinfo.Info tree or the
// Composer/Decomposer plumbing directly.
//
// The two formats are interchangeable at this layer exactly as spec §1
// promises ("two interchangeable wire codecs"): the same Go value marshals
// through either Format, and the reflective Composer/Decomposer adapters in
// internal/protocol/compose are format-agnostic.
package serial

import (
	"bytes"
	"io"

	"github.com/maekitalo/sertools/internal/protocol/bin"
	"github.com/maekitalo/sertools/internal/protocol/compose"
	"github.com/maekitalo/sertools/internal/protocol/json"
	"github.com/maekitalo/sertools/internal/protocol/sinfo"
)

// Format selects which wire codec an Encoder/Decoder or Marshal/Unmarshal
// call uses.
type Format int

const (
	// Binary is the self-describing, length-prefixed binary codec of spec
	// §4.1-§4.3.
	Binary Format = iota
	// JSON is the lenient JSON variant of spec §4.4-§4.5.
	JSON
)

func (f Format) String() string {
	switch f {
	case Binary:
		return "binary"
	case JSON:
		return "json"
	default:
		return "unknown"
	}
}

// Marshal encodes v into the given wire format.
func Marshal(format Format, v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := NewEncoder(format, &buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data (encoded in the given wire format) into v, which
// must be a non-nil pointer.
func Unmarshal(format Format, data []byte, v any) error {
	dec := NewDecoder(format, bytes.NewReader(data))
	return dec.Decode(v)
}

// MarshalTree encodes a raw *sinfo.Info subtree, bypassing reflection. Used
// by callers (cmd/sertool, tests) that already hold a tree rather than a Go
// struct.
func MarshalTree(format Format, node *sinfo.Info) ([]byte, error) {
	var buf bytes.Buffer
	dec := compose.NewTreeDecomposer(node)
	if err := encodeWith(format, &buf, dec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalTree decodes data into a fresh *sinfo.Info tree, bypassing
// reflection.
func UnmarshalTree(format Format, data []byte) (*sinfo.Info, error) {
	node := sinfo.New()
	composer := compose.NewTreeComposer(node)
	if err := decodeValueWith(format, bytes.NewReader(data), composer); err != nil {
		return nil, err
	}
	return node, nil
}

// formatterFor returns a fresh compose.Formatter plus its Flush method,
// backed by w.
func formatterFor(format Format, w io.Writer) (compose.Formatter, func() error) {
	switch format {
	case JSON:
		f := json.NewFormatter(w)
		return f, f.Flush
	default:
		f := bin.NewFormatter(w)
		return f, f.Flush
	}
}

func encodeWith(format Format, w io.Writer, dec compose.Decomposer) error {
	f, flush := formatterFor(format, w)
	if err := dec.Format(f); err != nil {
		return err
	}
	return flush()
}

// Encoder writes a stream of values to an underlying io.Writer in one wire
// format, mirroring encoding/json.Encoder (spec §6: "NewEncoder(format,
// ostream)"). The underlying formatter (and its buffering) is created once
// and reused across successive Encode calls so multiple values share one
// buffered writer.
type Encoder struct {
	formatter compose.Formatter
	flush     func() error
}

// NewEncoder returns an Encoder that writes to w using format.
func NewEncoder(format Format, w io.Writer) *Encoder {
	f, flush := formatterFor(format, w)
	return &Encoder{formatter: f, flush: flush}
}

// Encode writes v (any Go value reachable via reflection, or a *sinfo.Info)
// as one wire value.
func (e *Encoder) Encode(v any) error {
	var dec compose.Decomposer
	if node, ok := v.(*sinfo.Info); ok {
		dec = compose.NewTreeDecomposer(node)
	} else {
		dec = compose.NewReflectDecomposer(v)
	}
	return dec.Format(e.formatter)
}

// Flush flushes any buffering the underlying formatter performs; always
// call it after the last Encode on a given Encoder.
func (e *Encoder) Flush() error {
	return e.flush()
}

// Decoder reads a stream of values from an underlying io.Reader in one wire
// format, mirroring encoding/json.Decoder (spec §6: "NewDecoder(format,
// istream)"). JSON's "multiple root documents" leniency (spec §4.4, §8
// scenario 5) is exposed via More/Decode called repeatedly on the same
// Decoder.
type Decoder struct {
	format Format
	r      io.Reader

	jsonParser *json.Parser
	binParser  *bin.Parser
}

// NewDecoder returns a Decoder that reads from r using format.
func NewDecoder(format Format, r io.Reader) *Decoder {
	d := &Decoder{format: format, r: r}
	switch format {
	case JSON:
		d.jsonParser = json.NewParser(r)
	default:
		d.binParser = bin.NewParser(r)
	}
	return d
}

// More reports whether another value may be available (JSON only; the
// binary codec has no concept of a self-delimited stream of sibling root
// values, so More always returns true for Binary and the caller must rely
// on Decode's io.EOF to stop).
func (d *Decoder) More() bool {
	if d.format == JSON {
		return d.jsonParser.More()
	}
	return true
}

// Decode reads the next wire value into v, which must be a non-nil pointer,
// or a **sinfo.Info (in which case a fresh tree is allocated and *v set to
// it).
func (d *Decoder) Decode(v any) error {
	if treePtr, ok := v.(**sinfo.Info); ok {
		node := sinfo.New()
		composer := compose.NewTreeComposer(node)
		if err := d.decodeValue(composer); err != nil {
			return err
		}
		*treePtr = node
		return nil
	}

	composer, err := compose.NewReflectComposer(v)
	if err != nil {
		return err
	}
	return d.decodeValue(composer)
}

func (d *Decoder) decodeValue(c compose.Composer) error {
	switch d.format {
	case JSON:
		return d.jsonParser.ParseValue(c)
	default:
		return d.binParser.ParseValue(c)
	}
}

func decodeValueWith(format Format, r io.Reader, c compose.Composer) error {
	switch format {
	case JSON:
		return json.NewParser(r).ParseValue(c)
	default:
		return bin.NewParser(r).ParseValue(c)
	}
}

// Dump writes a hexdump of data, the same diagnostic helper
// internal/protocol/bin.Dump exposes, re-exported here so callers of pkg/serial
// don't need an internal import for debug output.
func Dump(w io.Writer, data []byte) error {
	return bin.Dump(w, data)
}
