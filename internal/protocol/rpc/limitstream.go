// Package rpc implements the binary RPC client of spec §4.6–§4.7: request/
// reply framing on top of internal/protocol/bin, sync and async call
// styles, cancellation, and one-shot reconnect-on-error.
package rpc

import (
	"io"
	"sync/atomic"
)

// LimitStream wraps a net.Conn-shaped reader/writer pair with resettable
// byte allowances (spec §4.7 "LimitStream: bounded reader/writer with
// resettable icount/ocount counters", scenario 9): icount/ocount are the
// number of bytes still allowed to be read/written. Read and Write cap to
// whatever remains of the allowance and report io.EOF once it is spent,
// mirroring cxxtools' BasicLimitStreambuf::underflow/overflow ("when trying
// to read/write more than the specified number of characters, eof is
// reported"). A Client resets the allowances to an effectively unbounded
// value at the start of every call, so ordinary RPC traffic is never
// actually capped; the bounded behavior itself is exercised directly by
// scenario 9.
type LimitStream struct {
	r io.Reader
	w io.Writer

	icount atomic.Int64
	ocount atomic.Int64
}

// NewLimitStream wraps an existing reader/writer pair (typically the two
// halves of the same net.Conn) with zero remaining allowance; call Reset
// before using it.
func NewLimitStream(r io.Reader, w io.Writer) *LimitStream {
	return &LimitStream{r: r, w: w}
}

// Read reads into p, capped to the remaining read allowance. Once the
// allowance is exhausted it returns (0, io.EOF) without touching the
// underlying reader.
func (s *LimitStream) Read(p []byte) (int, error) {
	remaining := s.icount.Load()
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := s.r.Read(p)
	s.icount.Add(int64(-n))
	return n, err
}

// Write writes p, capped to the remaining write allowance. Once the
// allowance is exhausted it returns (0, io.EOF) without touching the
// underlying writer.
func (s *LimitStream) Write(p []byte) (int, error) {
	remaining := s.ocount.Load()
	if remaining <= 0 {
		return 0, io.EOF
	}
	truncated := false
	if int64(len(p)) > remaining {
		p = p[:remaining]
		truncated = true
	}
	n, err := s.w.Write(p)
	s.ocount.Add(int64(-n))
	if err == nil && truncated {
		err = io.EOF
	}
	return n, err
}

// Reset sets new remaining read/write allowances, typically called once per
// RPC turn so one LimitStream is reused across the calls made on a
// connection instead of being reallocated per call.
func (s *LimitStream) Reset(icount, ocount int) {
	s.icount.Store(int64(icount))
	s.ocount.Store(int64(ocount))
}

// ICount returns the remaining read allowance.
func (s *LimitStream) ICount() int64 { return s.icount.Load() }

// OCount returns the remaining write allowance.
func (s *LimitStream) OCount() int64 { return s.ocount.Load() }
