package logger

import "context"

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds request-scoped fields for one RPC call (spec §4.6's
// activeProcedure, plus an optional correlation id).
type LogContext struct {
	RequestID string // optional; internal/protocol/rpc leaves it empty, and pkg/rpcclient logs its uuid as a separate request_id attribute
	Method    string
	Domain    string
	Attempt   int // 1 on first try, 2 after the one allowed reconnect
}

func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

func (lc *LogContext) WithAttempt(attempt int) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Attempt = attempt
	}
	return clone
}
