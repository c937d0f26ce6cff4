package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Serialization: Go values → wire format. Field order and widths are
// fixed by the protocol; see the package comment.

// AppendInt appends a signed 32-bit value as 8 bytes big-endian,
// sign-extended to 64 bits. The 8-byte width is part of the wire
// contract; a peer using 4 bytes would misframe every field after it.
func AppendInt(b *Buffer, v int32) {
	var wire [8]byte
	binary.BigEndian.PutUint64(wire[:], uint64(int64(v)))
	b.Append(wire[:])
}

// AppendString appends a string as a gamma length prefix of len(s)+1
// followed by the bytes and a terminating NUL. Embedded NULs are rejected
// because the terminator would truncate the string on the peer.
func AppendString(b *Buffer, s string) error {
	if strings.IndexByte(s, 0) >= 0 {
		return fmt.Errorf("%w: embedded NUL", ErrInvalidName)
	}
	AppendGamma(b, uint64(len(s)+1))
	b.Reserve(len(s) + 1)
	b.Append([]byte(s))
	b.AppendByte(0x00)
	return nil
}

// AppendData appends a payload: data1, gamma-coded data2_len, then the
// raw data2 bytes (omitted entirely when the length is zero). Ill-formed
// payloads are rejected before any byte is written.
func AppendData(b *Buffer, d *Data) error {
	if !d.WellFormed() {
		return fmt.Errorf("%w: data2_len=%d with %d data2 bytes", ErrMalformedData, dataLen(d), dataBytes(d))
	}
	AppendInt(b, d.Data1)
	AppendGamma(b, uint64(d.Data2Len))
	if d.Data2Len > 0 {
		b.Append(d.Data2)
	}
	return nil
}

// AppendMessage serializes a full message in wire order: request_id,
// operation, function_name, payload.
func AppendMessage(b *Buffer, m *Message) error {
	if !m.Operation.valid() {
		return fmt.Errorf("%w: tag %d", ErrUnknownOperation, int32(m.Operation))
	}
	if err := validateName(m.FunctionName); err != nil {
		return err
	}
	AppendInt(b, m.RequestID)
	AppendInt(b, int32(m.Operation))
	if err := AppendString(b, m.FunctionName); err != nil {
		return err
	}
	return AppendData(b, m.Data)
}

// validateName enforces the 1..MaxNameLength handler name bound. The same
// check runs at registration and on decode so a rogue peer cannot push an
// over-long name past the wire.
func validateName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidName, len(name), MaxNameLength)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("%w: embedded NUL", ErrInvalidName)
	}
	return nil
}

func dataLen(d *Data) int {
	if d == nil {
		return 0
	}
	return d.Data2Len
}

func dataBytes(d *Data) int {
	if d == nil {
		return 0
	}
	return len(d.Data2)
}
