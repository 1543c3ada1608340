package json

import "fmt"

// ParseError reports a lenient-JSON syntax problem, carrying the 1-based
// line number the way JsonParserError does in the original jsonparser.cpp
// (it tracks a running `_lineNo` field through the scanner).
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("json: line %d: %s", e.Line, e.Reason)
}

func newParseError(line int, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Reason: fmt.Sprintf(format, args...)}
}

// NoDataError is raised when a stream ends before any value starts (spec
// §4.4: "An empty input is not silently treated as valid"), distinguishing
// "there was nothing here at all" from a mid-value truncation ParseError.
type NoDataError struct{}

func (e *NoDataError) Error() string { return "json: no data" }
