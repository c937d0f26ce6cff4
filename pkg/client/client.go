// Package client implements the RPC client core: connect, find a handler
// by name, call it, close.
//
// A Client owns one TCP connection and runs one exchange at a time; Find
// and Call block until the reply arrives. The client is safe for
// concurrent use — exchanges are serialized on an internal mutex — but
// gains no parallelism from it, since the protocol allows a single
// request in flight per connection.
package client

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davidsha/gammarpc/internal/logger"
	"github.com/davidsha/gammarpc/pkg/protocol"
)

// Sentinel errors reported to callers. Failed lookups and failed calls
// are expected outcomes, distinguished from transport trouble.
var (
	// ErrNotFound means the server has no handler under the given name.
	ErrNotFound = errors.New("handler not found")

	// ErrCallFailed means the server answered with a failure reply: the
	// handler is gone, returned nothing, or returned an ill-formed
	// payload.
	ErrCallFailed = errors.New("call failed")

	// ErrClosed means the client has been closed.
	ErrClosed = errors.New("client closed")
)

// Handle is an opaque token naming a handler resolved by Find. It is
// bound to the exact name the server matched and is not transferable
// across clients or server restarts.
type Handle struct {
	name string
}

// Name returns the handler name the handle is bound to.
func (h *Handle) Name() string { return h.name }

// Config holds client configuration.
type Config struct {
	// DialTimeout bounds each connection attempt. Zero means no timeout.
	DialTimeout time.Duration
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{DialTimeout: 10 * time.Second}
}

// Client is a connected RPC client.
type Client struct {
	conn net.Conn
	tr   *protocol.Transport

	mu     sync.Mutex // serializes exchanges and guards closed
	closed bool

	nextRequestID atomic.Int32
}

// Dial resolves addr and connects to the first address that accepts:
// every address the resolver returns is attempted in order before giving
// up.
func Dial(addr string, port int, config Config) (*Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty server address")
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %d", port)
	}

	ips, err := net.LookupHost(addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", addr, err)
	}

	var conn net.Conn
	var lastErr error
	for _, ip := range ips {
		target := net.JoinHostPort(ip, strconv.Itoa(port))
		conn, lastErr = net.DialTimeout("tcp", target, config.DialTimeout)
		if lastErr == nil {
			break
		}
		logger.Debug("dial attempt failed", "address", target, logger.Err(lastErr))
	}
	if conn == nil {
		return nil, fmt.Errorf("connect to %s:%d: %w", addr, port, lastErr)
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	logger.Debug("connected", "address", conn.RemoteAddr().String())

	return &Client{
		conn: conn,
		tr:   protocol.NewTransport(conn),
	}, nil
}

// Find asks the server whether name is registered and returns a handle
// bound to it. ErrNotFound is returned when the server does not know the
// name.
func (c *Client) Find(name string) (*Handle, error) {
	reply, err := c.exchange(&protocol.Message{
		RequestID:    c.nextRequestID.Add(1),
		Operation:    protocol.FindRequest,
		FunctionName: name,
		Data:         &protocol.Data{},
	})
	if err != nil {
		return nil, err
	}

	if reply.Operation == protocol.ReplySuccess && reply.Data.Data1 == 1 {
		return &Handle{name: name}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Call invokes the handler named by the handle with the given payload and
// returns the reply payload. The caller owns the returned payload.
//
// An ill-formed payload is rejected before anything is transmitted.
func (c *Client) Call(h *Handle, payload *protocol.Data) (*protocol.Data, error) {
	if h == nil {
		return nil, fmt.Errorf("nil handle")
	}
	if !payload.WellFormed() {
		return nil, fmt.Errorf("%w: data2_len/data2 mismatch", protocol.ErrMalformedData)
	}

	reply, err := c.exchange(&protocol.Message{
		RequestID:    c.nextRequestID.Add(1),
		Operation:    protocol.CallRequest,
		FunctionName: h.name,
		Data:         payload,
	})
	if err != nil {
		return nil, err
	}

	if reply.Operation != protocol.ReplySuccess {
		return nil, fmt.Errorf("%w: %q", ErrCallFailed, h.name)
	}
	if !reply.Data.WellFormed() {
		return nil, fmt.Errorf("%w: ill-formed reply payload", protocol.ErrMalformedData)
	}
	return reply.Data, nil
}

// Close releases the connection. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	logger.Debug("closing client connection")
	return c.conn.Close()
}

// exchange runs one framed request/reply cycle under the exchange lock.
func (c *Client) exchange(msg *protocol.Message) (*protocol.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	reply, err := c.tr.Exchange(msg)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", msg.Operation.String(), msg.FunctionName, err)
	}
	return reply, nil
}
