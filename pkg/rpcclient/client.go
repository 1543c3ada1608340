// Package rpcclient is the public binary-RPC client surface of spec §6,
// wrapping internal/protocol/rpc.Client with request-correlation logging
// (a github.com/google/uuid id per call, spec's AMBIENT STACK) and optional
// Prometheus instrumentation.
package rpcclient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/maekitalo/sertools/internal/logger"
	"github.com/maekitalo/sertools/internal/protocol/rpc"
)

// Option configures a Client at construction time.
type Option func(*Client)

// WithDomain scopes every call on this client to domain (spec §4.1's
// `\xc3 domain \x00` framing).
func WithDomain(domain string) Option {
	return func(c *Client) { c.opts = append(c.opts, rpc.WithDomain(domain)) }
}

// WithConnectTimeout overrides the default connect timeout (spec §4.6.1:
// "connectTimeout defaults to ioTimeout unless set explicitly").
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) { c.opts = append(c.opts, rpc.WithConnectTimeout(d)) }
}

// WithIOTimeout overrides the default per-call I/O timeout.
func WithIOTimeout(d time.Duration) Option {
	return func(c *Client) { c.opts = append(c.opts, rpc.WithIOTimeout(d)) }
}

// WithDialer overrides how the client opens a transport connection; tests
// use this to substitute net.Pipe or an in-process listener.
func WithDialer(d rpc.Dialer) Option {
	return func(c *Client) { c.opts = append(c.opts, rpc.WithDialer(d)) }
}

// WithMetrics registers Prometheus counters/histograms for this client's
// calls against registry. Omit to run with no metrics (nil-safe default,
// spec's DOMAIN STACK note: "absent by default so the core has no forced
// global registry").
func WithMetrics(registry prometheus.Registerer) Option {
	return func(c *Client) { c.opts = append(c.opts, rpc.WithMetrics(rpc.NewMetrics(registry))) }
}

// Client is the public RPC client concept of spec §6:
// `RpcClient(addr, port [, domain])` plus `call`/`beginCall`/`endCall`/
// `wait`/`cancel`. It layers request-correlation ids onto
// internal/protocol/rpc.Client.
type Client struct {
	inner *rpc.Client
	opts  []rpc.Option
}

// New constructs a Client for addr ("host:port"). The connection is opened
// lazily on the first call.
func New(addr string, opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	c.inner = rpc.New(addr, c.opts...)
	return c
}

// Call performs a synchronous RPC: method is invoked with args, and the
// reply is decoded into result (a non-nil pointer). A fresh request
// correlation id is generated and attached to the call's log lines (spec's
// AMBIENT STACK: "RPC request correlation id attached to Client.Call's
// logging span").
func (c *Client) Call(ctx context.Context, method string, result any, args ...any) error {
	requestID := uuid.NewString()
	logger.DebugCtx(ctx, "rpcclient: call", logger.RequestID(requestID), logger.Method(method))
	err := c.inner.Call(ctx, method, result, args...)
	if err != nil {
		logger.WarnCtx(ctx, "rpcclient: call failed", logger.RequestID(requestID), logger.Method(method), logger.Err(err))
	}
	return err
}

// Call represents one outstanding asynchronous invocation started by
// BeginCall (spec §4.6.3).
type Call struct {
	inner     *rpc.Call
	requestID string
	method    string
}

// BeginCall starts an asynchronous RPC and returns immediately; the caller
// must eventually call Wait. At most one call may be outstanding per
// Client at a time (spec §4.6.3 step 2).
func (c *Client) BeginCall(method string, result any, args ...any) (*Call, error) {
	requestID := uuid.NewString()
	inner, err := c.inner.BeginCall(method, result, args...)
	if err != nil {
		return nil, err
	}
	return &Call{inner: inner, requestID: requestID, method: method}, nil
}

// Wait blocks until the call finishes or ctx is done, per spec §4.6.4's
// `endCall`/`wait(msecs)`.
func (call *Call) Wait(ctx context.Context) error {
	return call.inner.Wait(ctx)
}

// Cancel aborts the call in progress, if any (spec §4.6.5). Safe to call
// from any goroutine, at any time.
func (c *Client) Cancel() {
	c.inner.Cancel()
}

// Close releases the client's connection. The Client may be reused
// afterward; the next call reconnects.
func (c *Client) Close() error {
	return c.inner.Close()
}

// ActiveProcedure returns the method name of the call currently in flight,
// or "" if the Client is idle (spec §6 activeProcedure).
func (c *Client) ActiveProcedure() string {
	return c.inner.ActiveProcedure()
}

// Active reports whether a call is currently outstanding on this Client.
func (c *Client) Active() bool {
	return c.inner.Active()
}
