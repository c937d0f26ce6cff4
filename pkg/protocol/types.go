// Package protocol implements the gammarpc binary wire format and its
// framed transport.
//
// Every message is a flat record serialized field by field:
//
//	[request_id:int64be][operation:int64be][function_name:string][data1:int64be][data2_len:gamma][data2:bytes]
//
// Integers are 8 bytes big-endian, sign-extended from their logical 32-bit
// value. Lengths use Elias-gamma coding of (value+1), emitted one bit per
// byte, which keeps small messages small while staying self-delimiting.
// Strings carry a gamma length prefix of (len+1) followed by the bytes and
// a terminating NUL.
//
// Framing is a two-phase handshake: the sender transmits a fixed 39-byte
// window holding the gamma encoding of the body size, waits for the peer
// to echo the same window back, then transmits the body. See Transport.
package protocol

// Wire format limits. These are part of the protocol contract: both peers
// must agree or the stream misframes.
const (
	// MaxMessageSize is the upper bound on a serialized message body.
	MaxMessageSize = 1_000_000

	// MaxNameLength is the upper bound on a handler name, enforced both
	// at registration and on decode.
	MaxNameLength = 1000

	// SizeHeaderLength is the fixed byte width of the frame size window:
	// the gamma encoding of MaxMessageSize occupies 39 bytes, so every
	// legal size fits with zero padding behind it.
	SizeHeaderLength = 39
)

// Operation tags a message as a request or a reply.
type Operation int32

const (
	// FindRequest asks the server whether a handler name is registered.
	FindRequest Operation = 0

	// CallRequest invokes a named handler with the carried payload.
	CallRequest Operation = 1

	// ReplySuccess carries a handler result or a positive find answer.
	ReplySuccess Operation = 2

	// ReplyFailure signals a failed lookup, invocation, or decode.
	ReplyFailure Operation = 3
)

// String returns the operation name for logging.
func (op Operation) String() string {
	switch op {
	case FindRequest:
		return "FIND"
	case CallRequest:
		return "CALL"
	case ReplySuccess:
		return "REPLY_SUCCESS"
	case ReplyFailure:
		return "REPLY_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// valid reports whether op is one of the four defined tags.
func (op Operation) valid() bool {
	return op >= FindRequest && op <= ReplyFailure
}

// Data is the payload exchanged in requests and replies: a signed 32-bit
// scalar plus an optional owned byte block.
//
// Data2Len is carried explicitly so that ill-formed payloads are
// representable at the API boundary and can be rejected; a payload is
// well-formed iff Data2Len == 0 and Data2 is nil, or Data2Len > 0 and
// len(Data2) == Data2Len.
type Data struct {
	Data1    int32
	Data2Len int
	Data2    []byte
}

// WellFormed reports whether the payload obeys the length/presence
// invariant. Both serialization and call entry reject payloads for which
// this returns false.
func (d *Data) WellFormed() bool {
	if d == nil {
		return false
	}
	if d.Data2Len == 0 {
		return d.Data2 == nil
	}
	return d.Data2Len > 0 && len(d.Data2) == d.Data2Len
}

// Message is one protocol frame: a request or a reply.
type Message struct {
	// RequestID is chosen by the requester and echoed verbatim by the
	// responder. The protocol itself never interprets it.
	RequestID int32

	// Operation selects the message variant.
	Operation Operation

	// FunctionName is the handler name, 1..MaxNameLength bytes with no
	// embedded NUL. Replies echo the request's name.
	FunctionName string

	// Data is the payload; never nil on a well-formed message.
	Data *Data
}
