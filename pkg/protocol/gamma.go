package protocol

import (
	"fmt"
	"math/bits"
)

// Elias-gamma coding of unsigned lengths, one bit per byte.
//
// Gamma coding cannot represent zero, so every value is shifted by one
// before encoding and shifted back on decode. To encode x = v+1 with
// bit-length L:
//
//   - L-1 zero bytes followed by one 0x01 byte (the unary prefix),
//   - the lower L-1 bits of x, most significant first, one per byte.
//
// Total width is 2L-1 bytes. The code is self-delimiting, so a decoder
// can consume it from a zero-padded window without knowing its width in
// advance.

// GammaEncodedLength returns the byte width of the gamma encoding of v.
func GammaEncodedLength(v uint64) int {
	return 2*bits.Len64(v+1) - 1
}

// AppendGamma appends the gamma encoding of v to the buffer.
func AppendGamma(b *Buffer, v uint64) {
	x := v + 1
	length := bits.Len64(x)
	b.Reserve(2*length - 1)

	// unary prefix
	for i := 0; i < length-1; i++ {
		b.AppendByte(0x00)
	}
	b.AppendByte(0x01)

	// binary suffix, most significant bit first
	for i := length - 1; i > 0; i-- {
		b.AppendByte(byte(x>>(i-1)) & 0x01)
	}
}

// ReadGamma decodes one gamma-coded value from the buffer, advancing the
// read cursor past the code. Any byte other than 0x00 or 0x01 inside the
// code is a malformed scalar.
func ReadGamma(b *Buffer) (uint64, error) {
	// count the unary prefix
	prefix := 0
	for {
		c, err := b.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("gamma prefix: %w", err)
		}
		if c == 0x01 {
			break
		}
		if c != 0x00 {
			return 0, fmt.Errorf("%w: gamma prefix byte 0x%02x", ErrMalformedData, c)
		}
		prefix++
		if prefix > 63 {
			return 0, fmt.Errorf("%w: gamma prefix exceeds 63 bits", ErrMalformedData)
		}
	}

	// the terminator is the leading one-bit of x; read the remaining
	// prefix bits, one per byte
	x := uint64(1)
	for i := 0; i < prefix; i++ {
		c, err := b.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("gamma suffix: %w", err)
		}
		if c > 0x01 {
			return 0, fmt.Errorf("%w: gamma suffix byte 0x%02x", ErrMalformedData, c)
		}
		x = x<<1 | uint64(c)
	}

	return x - 1, nil
}
