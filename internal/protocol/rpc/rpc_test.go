package rpc

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maekitalo/sertools/internal/protocol/bin"
	"github.com/maekitalo/sertools/internal/protocol/compose"
	"github.com/maekitalo/sertools/internal/protocol/sinfo"
)

// echoServer accepts one connection and replies to every "echo" request by
// writing back the single int8 argument it read, exercising §8 scenario 6's
// literal byte sequence end to end.
func echoServer(t *testing.T) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveEcho(conn)
		}
	}()

	return ln.Addr().String(), func() { ln.Close() }
}

func serveEcho(conn net.Conn) {
	defer conn.Close()
	// Every request byte is read through br: bin.NewParser reuses an
	// existing *bufio.Reader, so a frame terminator the parser has already
	// buffered is still there for readFrameTerminator.
	br := bufio.NewReader(conn)
	for {
		marker := make([]byte, 1)
		if _, err := io.ReadFull(br, marker); err != nil {
			return
		}
		if marker[0] != 0xc0 {
			return
		}
		method, err := readCString(br)
		if err != nil {
			return
		}
		root := sinfo.New()
		p := bin.NewParser(br)
		switch method {
		case "echo":
			if err := p.ParseValue(compose.NewTreeComposer(root)); err != nil {
				return
			}
			if !readFrameTerminator(br) {
				return
			}
			v, _ := root.Value().AsInt64()
			if err := bin.WriteValueReply(conn, func(f *bin.Formatter) error {
				return f.AddValue("int", sinfo.IntScalar(v))
			}); err != nil {
				return
			}
		case "boom":
			if !readFrameTerminator(br) {
				return
			}
			if err := bin.WriteErrorReply(conn, 42, "Boom"); err != nil {
				return
			}
		}
	}
}

// readFrameTerminator reads the §4.1 request-frame trailing `\xff` that
// follows the last argument (or immediately follows the method name when
// there are no arguments).
func readFrameTerminator(r io.Reader) bool {
	b := make([]byte, 1)
	if _, err := io.ReadFull(r, b); err != nil {
		return false
	}
	return b[0] == 0xff
}

func readCString(r io.Reader) (string, error) {
	var out []byte
	b := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, b); err != nil {
			return "", err
		}
		if b[0] == 0 {
			return string(out), nil
		}
		out = append(out, b[0])
	}
}

func TestRPCEchoSuccess(t *testing.T) {
	addr, stop := echoServer(t)
	defer stop()

	c := New(addr, WithIOTimeout(2*time.Second))
	defer c.Close()

	var result int
	err := c.Call(context.Background(), "echo", &result, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, result)
}

func TestRPCRemoteError(t *testing.T) {
	addr, stop := echoServer(t)
	defer stop()

	c := New(addr, WithIOTimeout(2*time.Second))
	defer c.Close()

	var result int
	err := c.Call(context.Background(), "boom", &result)
	require.Error(t, err)
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, int32(42), remoteErr.Code)
	assert.Equal(t, "Boom", remoteErr.Message)
}

func TestRPCReconnectOnError(t *testing.T) {
	addr, stop := echoServer(t)
	defer stop()

	dialCount := 0
	c := New(addr,
		WithIOTimeout(2*time.Second),
		WithDialer(func(ctx context.Context, addr string) (net.Conn, error) {
			dialCount++
			return dialTCP(ctx, addr)
		}),
	)
	defer c.Close()

	var result int
	require.NoError(t, c.Call(context.Background(), "echo", &result, 1))
	assert.Equal(t, 1, dialCount)

	// Force a stale connection by closing it behind the client's back, then
	// confirm the next call transparently reconnects (spec §8 scenario 8).
	c.connMu.Lock()
	c.conn.Close()
	c.connMu.Unlock()

	require.NoError(t, c.Call(context.Background(), "echo", &result, 2))
	assert.Equal(t, 2, result)
	assert.Equal(t, 2, dialCount)
}

func TestRPCUnreachableSurfacesIOError(t *testing.T) {
	c := New("127.0.0.1:1", // nothing listens here
		WithIOTimeout(200*time.Millisecond),
		WithConnectTimeout(200*time.Millisecond),
	)
	defer c.Close()

	var result int
	err := c.Call(context.Background(), "echo", &result, 1)
	require.Error(t, err)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
}

func TestRPCReconnectFailsAfterServerGone(t *testing.T) {
	addr, stop := echoServer(t)

	c := New(addr, WithIOTimeout(2*time.Second), WithConnectTimeout(200*time.Millisecond))
	defer c.Close()

	var result int
	require.NoError(t, c.Call(context.Background(), "echo", &result, 1))

	stop()
	c.connMu.Lock()
	c.conn.Close()
	c.connMu.Unlock()

	// The stale write fails, the automatic reconnect dials a server that no
	// longer exists, and the second consecutive failure surfaces (§8
	// scenario 8: "a second consecutive failure surfaces an IOError").
	err := c.Call(context.Background(), "echo", &result, 2)
	require.Error(t, err)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
}

func TestRPCLogicErrorOnSecondOutstandingCall(t *testing.T) {
	addr, stop := echoServer(t)
	defer stop()

	c := New(addr, WithIOTimeout(2*time.Second))
	defer c.Close()

	var r1, r2 int
	call1, err := c.BeginCall("echo", &r1, 7)
	require.NoError(t, err)

	_, err = c.BeginCall("echo", &r2, 8)
	require.Error(t, err)
	var logicErr *LogicError
	require.ErrorAs(t, err, &logicErr)

	require.NoError(t, call1.Wait(context.Background()))
	assert.Equal(t, 7, r1)
}

func TestActiveProcedureTransition(t *testing.T) {
	addr, stop := echoServer(t)
	defer stop()

	c := New(addr, WithIOTimeout(2*time.Second))
	defer c.Close()

	assert.False(t, c.Active())
	assert.Equal(t, "", c.ActiveProcedure())

	var result int
	call, err := c.BeginCall("echo", &result, 9)
	require.NoError(t, err)

	// Spec §8: activeProcedure is non-null strictly between BeginCall and
	// onFinished.
	assert.True(t, c.Active())
	assert.Equal(t, "echo", c.ActiveProcedure())

	require.NoError(t, call.Wait(context.Background()))
	assert.Equal(t, 9, result)

	assert.False(t, c.Active())
	assert.Equal(t, "", c.ActiveProcedure())
}

func TestLimitStreamResettableCounters(t *testing.T) {
	// Spec §8 scenario 9: cap 3 over "foobar" yields "foo" then EOF; a
	// Reset(icount=5) then yields "bar" then EOF.
	s := NewLimitStream(strings.NewReader("foobar"), io.Discard)
	s.Reset(3, 0)

	got := make([]byte, 10)
	n, err := io.ReadFull(s, got)
	assert.Equal(t, io.ErrUnexpectedEOF, err)
	assert.Equal(t, "foo", string(got[:n]))
	assert.EqualValues(t, 0, s.ICount())

	_, err = s.Read(got)
	assert.Equal(t, io.EOF, err)

	s.Reset(5, 0)
	assert.EqualValues(t, 5, s.ICount())

	n, err = io.ReadFull(s, got)
	assert.Equal(t, io.ErrUnexpectedEOF, err)
	assert.Equal(t, "bar", string(got[:n]))
}
