package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferAppendAndRead(t *testing.T) {
	t.Parallel()

	b := NewBuffer(4)
	b.Append([]byte{1, 2, 3})
	b.AppendByte(4)
	assert.Equal(t, 4, b.Len())

	view, err := b.ReadExact(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, view)
	assert.Equal(t, 2, b.Remaining())

	c, err := b.ReadByte()
	require.NoError(t, err)
	assert.EqualValues(t, 3, c)
}

func TestBufferGrowsGeometrically(t *testing.T) {
	t.Parallel()

	b := NewBuffer(1)
	payload := make([]byte, 1000)
	for i := 0; i < 100; i++ {
		b.Append(payload)
	}
	assert.Equal(t, 100*1000, b.Len())
}

func TestBufferReadPastEnd(t *testing.T) {
	t.Parallel()

	b := NewBufferFrom([]byte{1, 2, 3})
	_, err := b.ReadExact(4)
	assert.ErrorIs(t, err, ErrMalformedData)

	// a failed read must not advance the cursor
	view, err := b.ReadExact(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, view)

	_, err = b.ReadExact(1)
	assert.ErrorIs(t, err, ErrMalformedData)
}

func TestBufferZeroCapacity(t *testing.T) {
	t.Parallel()

	b := NewBuffer(0)
	b.Append([]byte{42})
	assert.Equal(t, 1, b.Len())
}
