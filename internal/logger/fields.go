package logger

import "log/slog"

// Standard field keys, kept consistent across internal/protocol/rpc and
// cmd/sertool so log aggregation can group on them.
const (
	KeyRequestID = "request_id"
	KeyMethod    = "method"
	KeyDomain    = "domain"
	KeyAttempt   = "attempt"
	KeyAddr      = "addr"
	KeyDuration  = "duration_ms"
	KeyError     = "error"
	KeyErrorCode = "error_code"
	KeyBytes     = "bytes"
)

func RequestID(id string) slog.Attr { return slog.String(KeyRequestID, id) }
func Method(name string) slog.Attr  { return slog.String(KeyMethod, name) }
func Domain(name string) slog.Attr  { return slog.String(KeyDomain, name) }
func Attempt(n int) slog.Attr       { return slog.Int(KeyAttempt, n) }
func Addr(addr string) slog.Attr    { return slog.String(KeyAddr, addr) }
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDuration, ms)
}

func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

func ErrorCode(code int32) slog.Attr { return slog.Int(KeyErrorCode, int(code)) }
func Bytes(n int64) slog.Attr        { return slog.Int64(KeyBytes, n) }
