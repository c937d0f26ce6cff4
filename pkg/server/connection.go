package server

import (
	"context"
	"errors"
	"io"
	"net"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/davidsha/gammarpc/internal/logger"
	"github.com/davidsha/gammarpc/pkg/protocol"
)

// connection is the per-client worker. It owns its socket exclusively:
// the worker is the only goroutine that reads or writes it, and closing
// the socket ends the worker.
type connection struct {
	server *Server
	conn   net.Conn
	tr     *protocol.Transport
	id     string
	addr   string
}

func newConnection(s *Server, conn net.Conn) *connection {
	return &connection{
		server: s,
		conn:   conn,
		tr:     protocol.NewTransport(conn),
		id:     uuid.NewString(),
		addr:   conn.RemoteAddr().String(),
	}
}

// serve handles requests on this connection until the peer disconnects,
// the stream turns malformed, or shutdown is requested. Replies are
// strictly FIFO with requests: the loop never reads the next request
// before the previous reply is written.
//
// Panic recovery keeps a single misbehaving handler from taking down the
// whole server.
func (c *connection) serve(ctx context.Context) {
	defer c.close()

	logger.Debug("worker started", logger.ConnectionID(c.id), logger.ClientIP(c.addr))

	for {
		// observe shutdown between requests; an in-flight handler is
		// never interrupted
		select {
		case <-ctx.Done():
			logger.Debug("worker stopping: shutdown", logger.ConnectionID(c.id))
			return
		case <-c.server.shutdown:
			logger.Debug("worker stopping: shutdown", logger.ConnectionID(c.id))
			return
		default:
		}

		if !c.handleRequest() {
			return
		}
	}
}

// handleRequest receives one message, dispatches it, and writes the
// reply. It reports whether the connection can serve another request.
func (c *connection) handleRequest() bool {
	msg, err := c.tr.Receive()
	if err != nil {
		return c.handleReceiveError(err)
	}

	switch msg.Operation {
	case protocol.FindRequest:
		return c.handleFind(msg)
	case protocol.CallRequest:
		return c.handleCall(msg)
	default:
		// the server never initiates requests, so an incoming reply has
		// no meaning; ignore it and keep serving
		logger.Debug("ignoring unexpected reply",
			logger.ConnectionID(c.id), logger.Operation(msg.Operation.String()))
		return true
	}
}

// handleReceiveError classifies a failed receive. Decode-level corruption
// gets a best-effort failure reply before the connection drops; transport
// errors and clean disconnects drop it silently.
func (c *connection) handleReceiveError(err error) bool {
	switch {
	case errors.Is(err, io.EOF):
		logger.Debug("peer disconnected", logger.ConnectionID(c.id), logger.ClientIP(c.addr))

	case isTimeout(err):
		// deadlines are only installed by shutdown; the worker exits
		// here like on any other receive failure
		logger.Debug("read interrupted", logger.ConnectionID(c.id))

	case errors.Is(err, protocol.ErrMalformedMessage):
		// the frame arrived in full, so the peer is waiting for a
		// reply; answer failure before dropping the connection
		logger.Warn("malformed message, dropping connection",
			logger.ConnectionID(c.id), logger.ClientIP(c.addr), logger.Err(err))
		c.recordRequest("UNKNOWN", 0, "error")
		c.sendReply(&protocol.Message{
			RequestID:    0,
			Operation:    protocol.ReplyFailure,
			FunctionName: "unknown",
			Data:         &protocol.Data{},
		})

	case errors.Is(err, protocol.ErrMalformedData),
		errors.Is(err, protocol.ErrMessageTooLarge):
		// framing-level corruption: no reply can be framed safely
		logger.Warn("malformed stream, dropping connection",
			logger.ConnectionID(c.id), logger.ClientIP(c.addr), logger.Err(err))
		c.recordRequest("UNKNOWN", 0, "error")

	default:
		logger.Debug("receive error", logger.ConnectionID(c.id), logger.Err(err))
	}
	return false
}

// handleFind answers a FIND with data1=1 when the name is registered and
// data1=0 otherwise, echoing the request id and name.
func (c *connection) handleFind(msg *protocol.Message) bool {
	start := time.Now()
	_, found := c.server.registry.Lookup(msg.FunctionName)

	result := int32(0)
	if found {
		result = 1
	}
	logger.Debug("find request",
		logger.ConnectionID(c.id), logger.Function(msg.FunctionName), "found", found)

	ok := c.sendReply(&protocol.Message{
		RequestID:    msg.RequestID,
		Operation:    protocol.ReplySuccess,
		FunctionName: msg.FunctionName,
		Data:         &protocol.Data{Data1: result},
	})
	c.recordRequest("FIND", time.Since(start), "success")
	return ok
}

// handleCall looks up and invokes the handler, replying with its payload
// on success and with a failure reply when the handler is missing, panics,
// returns nil, or returns an ill-formed payload. Handler failures never
// drop the connection.
func (c *connection) handleCall(msg *protocol.Message) bool {
	start := time.Now()

	handler, found := c.server.registry.Lookup(msg.FunctionName)
	if !found {
		logger.Debug("call to unregistered handler",
			logger.ConnectionID(c.id), logger.Function(msg.FunctionName))
		ok := c.sendFailure(msg)
		c.recordRequest("CALL", time.Since(start), "failure")
		return ok
	}

	result := c.invoke(handler, msg)
	if result == nil || !result.WellFormed() {
		logger.Warn("handler produced no usable result",
			logger.ConnectionID(c.id), logger.Function(msg.FunctionName))
		ok := c.sendFailure(msg)
		c.recordRequest("CALL", time.Since(start), "failure")
		return ok
	}

	ok := c.sendReply(&protocol.Message{
		RequestID:    msg.RequestID,
		Operation:    protocol.ReplySuccess,
		FunctionName: msg.FunctionName,
		Data:         result,
	})
	c.recordRequest("CALL", time.Since(start), "success")
	logger.Debug("call served",
		logger.ConnectionID(c.id), logger.Function(msg.FunctionName),
		logger.RequestID(msg.RequestID), logger.DurationMs(logger.Duration(start)))
	return ok
}

// invoke runs the handler with panic recovery; a panicking handler is
// treated as returning nil.
func (c *connection) invoke(handler func(*protocol.Data) *protocol.Data, msg *protocol.Message) (result *protocol.Data) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in handler",
				logger.Function(msg.FunctionName), logger.ConnectionID(c.id),
				"panic", r, "stack", string(debug.Stack()))
			result = nil
		}
	}()
	return handler(msg.Data)
}

// sendFailure sends a failure reply echoing the request's id and name.
func (c *connection) sendFailure(msg *protocol.Message) bool {
	return c.sendReply(&protocol.Message{
		RequestID:    msg.RequestID,
		Operation:    protocol.ReplyFailure,
		FunctionName: msg.FunctionName,
		Data:         &protocol.Data{},
	})
}

// sendReply writes a reply and reports whether the connection survives.
// It clears any shutdown read deadline first, because the reply's
// size-echo handshake reads from the peer.
func (c *connection) sendReply(reply *protocol.Message) bool {
	_ = c.conn.SetReadDeadline(time.Time{})
	if err := c.tr.Send(reply); err != nil {
		logger.Debug("failed to send reply", logger.ConnectionID(c.id), logger.Err(err))
		return false
	}
	return true
}

func (c *connection) recordRequest(operation string, duration time.Duration, outcome string) {
	if c.server.metrics != nil {
		c.server.metrics.RecordRequest(operation, duration, outcome)
	}
}

// close releases the socket and recovers any panic that escaped the
// request loop.
func (c *connection) close() {
	if r := recover(); r != nil {
		logger.Error("panic in connection worker",
			logger.ConnectionID(c.id), logger.ClientIP(c.addr),
			"panic", r, "stack", string(debug.Stack()))
	}
	_ = c.conn.Close()
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
