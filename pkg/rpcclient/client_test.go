package rpcclient

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maekitalo/sertools/internal/protocol/bin"
	"github.com/maekitalo/sertools/internal/protocol/compose"
	"github.com/maekitalo/sertools/internal/protocol/sinfo"
)

// echoServer mirrors internal/protocol/rpc's test fixture at the public
// pkg/rpcclient layer (spec §8 scenario 6/7): it echoes the single "echo"
// argument back and returns a fixed remote error for "boom".
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
		if marker[0] == 0xc3 { // domain-scoped request: discard the domain name
			if _, err := readCString(br); err != nil {
				return
			}
		} else if marker[0] != 0xc0 {
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

func TestClientCallSuccess(t *testing.T) {
	addr, stop := echoServer(t)
	defer stop()

	c := New(addr, WithIOTimeout(2*time.Second))
	defer c.Close()

	var result int
	require.NoError(t, c.Call(context.Background(), "echo", &result, 5))
	assert.Equal(t, 5, result)
}

func TestClientCallRemoteError(t *testing.T) {
	addr, stop := echoServer(t)
	defer stop()

	c := New(addr, WithIOTimeout(2*time.Second))
	defer c.Close()

	var result int
	err := c.Call(context.Background(), "boom", &result)
	require.Error(t, err)
}

func TestClientBeginCallAndWait(t *testing.T) {
	addr, stop := echoServer(t)
	defer stop()

	c := New(addr, WithIOTimeout(2*time.Second))
	defer c.Close()

	var result int
	call, err := c.BeginCall("echo", &result, 9)
	require.NoError(t, err)
	assert.True(t, c.Active())
	assert.Equal(t, "echo", c.ActiveProcedure())

	require.NoError(t, call.Wait(context.Background()))
	assert.Equal(t, 9, result)
	assert.False(t, c.Active())
	assert.Equal(t, "", c.ActiveProcedure())
}

func TestClientWithDomain(t *testing.T) {
	addr, stop := echoServer(t)
	defer stop()

	c := New(addr, WithDomain("demo"), WithIOTimeout(2*time.Second))
	defer c.Close()

	var result int
	require.NoError(t, c.Call(context.Background(), "echo", &result, 3))
	assert.Equal(t, 3, result)
}
