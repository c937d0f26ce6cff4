package protocol

import "errors"

// Sentinel errors returned by the codec and transport. Callers match them
// with errors.Is; most carry wrapped context about the failing field.
var (
	// ErrMalformedData signals a payload or scalar that violates the wire
	// contract: a length/presence mismatch, a truncated field, an invalid
	// gamma byte, or an out-of-range integer.
	ErrMalformedData = errors.New("malformed data")

	// ErrMessageTooLarge signals a frame body above MaxMessageSize.
	ErrMessageTooLarge = errors.New("message exceeds maximum size")

	// ErrSizeEchoMismatch signals that the peer echoed a different size
	// than the one announced, so the stream is considered corrupt.
	ErrSizeEchoMismatch = errors.New("size echo mismatch")

	// ErrUnknownOperation signals an operation tag outside the defined
	// range, on encode or decode.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrMalformedMessage signals a frame whose body was received in
	// full but failed to decode. Unlike a framing-level failure, the
	// handshake has completed, so the receiver may still answer with a
	// failure reply before dropping the connection.
	ErrMalformedMessage = errors.New("malformed message body")

	// ErrInvalidName signals a handler name that is empty, longer than
	// MaxNameLength, or contains an embedded NUL.
	ErrInvalidName = errors.New("invalid handler name")
)
