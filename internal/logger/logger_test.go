package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)
	mu.Lock()
	originalOutput, originalColor := output, useColor
	output, useColor = buf, false
	mu.Unlock()
	reconfigure()
	return buf, func() {
		mu.Lock()
		output, useColor = originalOutput, originalColor
		mu.Unlock()
		reconfigure()
	}
}

func TestLevelFiltering(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("WARN")
	Info("should be dropped")
	Warn("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should be dropped")
	assert.Contains(t, out, "should appear")
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("DEBUG")
	SetFormat("json")
	defer SetFormat("text")

	Info("hello", "method", "echo")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "echo", rec["method"])
}

func TestContextFieldsPrepended(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("DEBUG")
	ctx := WithContext(context.Background(), &LogContext{Method: "echo", Attempt: 2})
	InfoCtx(ctx, "calling")

	out := buf.String()
	assert.True(t, strings.Contains(out, "method=echo"))
	assert.True(t, strings.Contains(out, "attempt=2"))
}
