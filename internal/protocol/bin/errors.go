package bin

import "fmt"

// ParseError reports a malformed binary stream: an unrecognized type code,
// a truncated payload, or (for RPC replies) a frame the Scanner could not
// classify. Mirrors the plain-struct-plus-Error() shape the teacher uses
// for its protocol errors (pkg/metadata/errors).
type ParseError struct {
	Offset int64
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bin: parse error at offset %d: %s", e.Offset, e.Reason)
}

func newParseError(offset int64, format string, args ...any) *ParseError {
	return &ParseError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}
