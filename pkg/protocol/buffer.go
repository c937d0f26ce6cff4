package protocol

import "fmt"

// Buffer is a growable byte sequence with independent append and read
// cursors. The serialization path appends into it; the receive path reads
// views out of it without copying.
//
// Growth is geometric (capacity doubles until the requested space fits),
// so N appends cost O(N) amortized.
type Buffer struct {
	data []byte
	off  int // read cursor; never exceeds len(data)
}

// NewBuffer creates a buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{data: make([]byte, 0, capacity)}
}

// NewBufferFrom wraps an existing byte slice for reading. The buffer does
// not copy b; the caller must not mutate it while decoding.
func NewBufferFrom(b []byte) *Buffer {
	return &Buffer{data: b}
}

// Reserve ensures capacity for n more bytes, doubling until satisfied.
func (b *Buffer) Reserve(n int) {
	need := len(b.data) + n
	if need <= cap(b.data) {
		return
	}
	newCap := cap(b.data)
	if newCap == 0 {
		newCap = 1
	}
	for newCap < need {
		newCap *= 2
	}
	grown := make([]byte, len(b.data), newCap)
	copy(grown, b.data)
	b.data = grown
}

// Append writes p at the append cursor.
func (b *Buffer) Append(p []byte) {
	b.Reserve(len(p))
	b.data = append(b.data, p...)
}

// AppendByte writes a single byte at the append cursor.
func (b *Buffer) AppendByte(c byte) {
	b.Reserve(1)
	b.data = append(b.data, c)
}

// ReadExact returns a view of the next n bytes and advances the read
// cursor. It fails when fewer than n bytes remain unread.
func (b *Buffer) ReadExact(n int) ([]byte, error) {
	if n < 0 || b.off+n > len(b.data) {
		return nil, fmt.Errorf("%w: need %d bytes, %d remain", ErrMalformedData, n, len(b.data)-b.off)
	}
	view := b.data[b.off : b.off+n]
	b.off += n
	return view, nil
}

// ReadByte returns the next unread byte.
func (b *Buffer) ReadByte() (byte, error) {
	view, err := b.ReadExact(1)
	if err != nil {
		return 0, err
	}
	return view[0], nil
}

// Len returns the number of written bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int { return len(b.data) - b.off }

// Bytes returns the full written contents. The slice aliases the buffer's
// storage and is invalidated by further appends.
func (b *Buffer) Bytes() []byte { return b.data }
