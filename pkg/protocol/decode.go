package protocol

import (
	"encoding/binary"
	"fmt"
)

// Deserialization: wire format → Go values. Every reader advances the
// buffer's read cursor and fails on truncated or out-of-range input
// rather than guessing.

// ReadInt decodes an 8-byte big-endian integer and narrows it to the
// logical 32-bit value. A wire value outside the int32 range is a
// malformed scalar, not a silent truncation.
func ReadInt(b *Buffer) (int32, error) {
	view, err := b.ReadExact(8)
	if err != nil {
		return 0, fmt.Errorf("read int: %w", err)
	}
	wide := int64(binary.BigEndian.Uint64(view))
	if wide != int64(int32(wide)) {
		return 0, fmt.Errorf("%w: integer %d outside 32-bit range", ErrMalformedData, wide)
	}
	return int32(wide), nil
}

// ReadString decodes a gamma length prefix of len+1, the string bytes,
// and the terminating NUL.
func ReadString(b *Buffer) (string, error) {
	length, err := ReadGamma(b)
	if err != nil {
		return "", fmt.Errorf("read string length: %w", err)
	}
	if length == 0 {
		return "", fmt.Errorf("%w: zero string length", ErrMalformedData)
	}
	if length > MaxNameLength+1 {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidName, length-1, MaxNameLength)
	}
	view, err := b.ReadExact(int(length))
	if err != nil {
		return "", fmt.Errorf("read string bytes: %w", err)
	}
	if view[length-1] != 0x00 {
		return "", fmt.Errorf("%w: string not NUL-terminated", ErrMalformedData)
	}
	for _, c := range view[:length-1] {
		if c == 0x00 {
			return "", fmt.Errorf("%w: embedded NUL", ErrMalformedData)
		}
	}
	return string(view[:length-1]), nil
}

// ReadData decodes a payload. When data2_len is zero no allocation is
// made and Data2 stays nil; otherwise exactly data2_len bytes are copied
// out of the buffer, failing if fewer remain.
func ReadData(b *Buffer) (*Data, error) {
	data1, err := ReadInt(b)
	if err != nil {
		return nil, fmt.Errorf("read data1: %w", err)
	}
	length, err := ReadGamma(b)
	if err != nil {
		return nil, fmt.Errorf("read data2_len: %w", err)
	}
	if length > MaxMessageSize {
		return nil, fmt.Errorf("%w: data2_len %d", ErrMessageTooLarge, length)
	}

	d := &Data{Data1: data1, Data2Len: int(length)}
	if length > 0 {
		view, err := b.ReadExact(int(length))
		if err != nil {
			return nil, fmt.Errorf("read data2: %w", err)
		}
		// The view aliases the receive buffer, which is pooled; the
		// payload owns its bytes, so copy out.
		d.Data2 = make([]byte, length)
		copy(d.Data2, view)
	}
	return d, nil
}

// ReadMessage decodes a full message, validating the operation tag and
// the handler name bounds.
func ReadMessage(b *Buffer) (*Message, error) {
	requestID, err := ReadInt(b)
	if err != nil {
		return nil, fmt.Errorf("read request_id: %w", err)
	}
	tag, err := ReadInt(b)
	if err != nil {
		return nil, fmt.Errorf("read operation: %w", err)
	}
	op := Operation(tag)
	if !op.valid() {
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownOperation, tag)
	}
	name, err := ReadString(b)
	if err != nil {
		return nil, fmt.Errorf("read function_name: %w", err)
	}
	if err := validateName(name); err != nil {
		return nil, fmt.Errorf("read function_name: %w", err)
	}
	data, err := ReadData(b)
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	return &Message{
		RequestID:    requestID,
		Operation:    op,
		FunctionName: name,
		Data:         data,
	}, nil
}
