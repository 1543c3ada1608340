// Package xdrutil holds the big-endian primitive helpers used by
// internal/protocol/bin's RPC reply framing. The wire format that package
// implements is not XDR (RFC 4506) — it has no 4-byte alignment
// padding and its own type-code table — but the *shape* of "read/write a
// fixed-width big-endian integer, checking for short reads" is exactly what
// the teacher's internal/protocol/xdr package already does, so this package
// adapts that shape rather than reinventing it.
package xdrutil

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadInt32 reads a 4-byte big-endian signed integer, the shape used by the
// RPC error-reply frame's error code (spec §4.2.1, §8 scenario 7).
func ReadInt32(r io.Reader) (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("xdrutil: read int32: %w", err)
	}
	return int32(binary.BigEndian.Uint32(b[:])), nil
}

// WriteInt32 writes v as a 4-byte big-endian signed integer.
func WriteInt32(w io.Writer, v int32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	_, err := w.Write(b[:])
	if err != nil {
		return fmt.Errorf("xdrutil: write int32: %w", err)
	}
	return nil
}

// ReadUint32 reads a 4-byte big-endian unsigned integer.
func ReadUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("xdrutil: read uint32: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// WriteUint32 writes v as a 4-byte big-endian unsigned integer.
func WriteUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	if err != nil {
		return fmt.Errorf("xdrutil: write uint32: %w", err)
	}
	return nil
}

// ReadUint64 reads an 8-byte big-endian unsigned integer, the shape used by
// the binary codec's wide integer/float payloads (spec §4.1).
func ReadUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("xdrutil: read uint64: %w", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// WriteUint64 writes v as an 8-byte big-endian unsigned integer.
func WriteUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	if err != nil {
		return fmt.Errorf("xdrutil: write uint64: %w", err)
	}
	return nil
}
