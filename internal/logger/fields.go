package logger

import "log/slog"

// Standard field keys for structured logging. Use these consistently so
// logs from the server, client, and transport aggregate cleanly.
const (
	// Connection lifecycle
	KeyClientIP     = "client_ip"     // peer IP address
	KeyClientPort   = "client_port"   // peer source port
	KeyConnectionID = "connection_id" // per-connection correlation id

	// Request/reply
	KeyRequestID = "request_id" // caller-chosen id echoed in the reply
	KeyFunction  = "function"   // handler name
	KeyOperation = "operation"  // FIND, CALL, REPLY_SUCCESS, REPLY_FAILURE

	// Payload and framing
	KeySize     = "size"      // frame body size in bytes
	KeyData1    = "data1"     // payload scalar
	KeyData2Len = "data2_len" // payload byte-block length

	// Outcome
	KeyDurationMs = "duration_ms" // request duration in milliseconds
	KeyError      = "error"       // error message
)

// Field constructors for type safety.

// ClientIP returns a slog.Attr for the peer IP address.
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ConnectionID returns a slog.Attr for the per-connection id.
func ConnectionID(id string) slog.Attr {
	return slog.String(KeyConnectionID, id)
}

// RequestID returns a slog.Attr for the echoed request id.
func RequestID(id int32) slog.Attr {
	return slog.Int(KeyRequestID, int(id))
}

// Function returns a slog.Attr for the handler name.
func Function(name string) slog.Attr {
	return slog.String(KeyFunction, name)
}

// Operation returns a slog.Attr for the message operation.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
