package protocol

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntRoundTrip(t *testing.T) {
	t.Parallel()

	values := []int32{0, 1, -1, 100, -100, math.MaxInt32, math.MinInt32}
	for _, v := range values {
		b := NewBuffer(16)
		AppendInt(b, v)
		assert.Equal(t, 8, b.Len(), "value %d", v)

		got, err := ReadInt(NewBufferFrom(b.Bytes()))
		require.NoError(t, err, "value %d", v)
		assert.Equal(t, v, got)
	}
}

func TestIntWireLayout(t *testing.T) {
	t.Parallel()

	b := NewBuffer(8)
	AppendInt(b, 1)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1}, b.Bytes())

	// negative values are sign-extended across all 8 bytes
	b = NewBuffer(8)
	AppendInt(b, -1)
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, b.Bytes())
}

func TestIntRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	// a 64-bit value outside the int32 range is a malformed scalar
	wire := []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}
	_, err := ReadInt(NewBufferFrom(wire))
	assert.ErrorIs(t, err, ErrMalformedData)

	// truncated input
	_, err = ReadInt(NewBufferFrom([]byte{0, 0, 0}))
	assert.ErrorIs(t, err, ErrMalformedData)
}

func TestStringRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"a", "add2", strings.Repeat("x", MaxNameLength)} {
		b := NewBuffer(64)
		require.NoError(t, AppendString(b, s))

		got, err := ReadString(NewBufferFrom(b.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestStringWireTermination(t *testing.T) {
	t.Parallel()

	b := NewBuffer(16)
	require.NoError(t, AppendString(b, "ab"))

	// gamma(3) then 'a' 'b' NUL
	wire := b.Bytes()
	assert.EqualValues(t, 0x00, wire[len(wire)-1])

	// a frame whose terminator is not NUL is rejected
	wire[len(wire)-1] = 'x'
	_, err := ReadString(NewBufferFrom(wire))
	assert.ErrorIs(t, err, ErrMalformedData)
}

func TestStringRejectsEmbeddedNUL(t *testing.T) {
	t.Parallel()

	b := NewBuffer(16)
	assert.ErrorIs(t, AppendString(b, "a\x00b"), ErrInvalidName)
}

func TestDataRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []*Data{
		{Data1: 0},
		{Data1: -5},
		{Data1: 1, Data2Len: 1, Data2: []byte{100}},
		{Data1: 42, Data2Len: 3, Data2: []byte{1, 2, 3}},
	}
	for _, d := range cases {
		b := NewBuffer(64)
		require.NoError(t, AppendData(b, d))

		got, err := ReadData(NewBufferFrom(b.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
}

func TestDataAbsentBlockStaysNil(t *testing.T) {
	t.Parallel()

	b := NewBuffer(32)
	require.NoError(t, AppendData(b, &Data{Data1: 7}))

	got, err := ReadData(NewBufferFrom(b.Bytes()))
	require.NoError(t, err)
	assert.Nil(t, got.Data2)
	assert.Zero(t, got.Data2Len)
}

func TestDataRejectsIllFormed(t *testing.T) {
	t.Parallel()

	cases := []*Data{
		nil,
		{Data1: 0, Data2Len: 3},                            // length without bytes
		{Data1: 0, Data2Len: 2, Data2: []byte{1}},          // short block
		{Data1: 0, Data2Len: 0, Data2: []byte{1}},          // bytes without length
		{Data1: 0, Data2Len: -1, Data2: []byte{1}},         // negative length
		{Data1: 0, Data2Len: 1, Data2: []byte{1, 2, 3, 4}}, // long block
	}
	for _, d := range cases {
		b := NewBuffer(32)
		assert.ErrorIs(t, AppendData(b, d), ErrMalformedData, "%+v", d)
	}
}

func TestDataDecodeRejectsTruncatedBlock(t *testing.T) {
	t.Parallel()

	b := NewBuffer(32)
	AppendInt(b, 0)
	AppendGamma(b, 5)
	b.Append([]byte{1, 2}) // promises 5 bytes, delivers 2

	_, err := ReadData(NewBufferFrom(b.Bytes()))
	assert.ErrorIs(t, err, ErrMalformedData)
}

func TestWellFormed(t *testing.T) {
	t.Parallel()

	assert.True(t, (&Data{}).WellFormed())
	assert.True(t, (&Data{Data1: -1}).WellFormed())
	assert.True(t, (&Data{Data2Len: 2, Data2: []byte{1, 2}}).WellFormed())
	assert.False(t, (&Data{Data2Len: 2}).WellFormed())
	assert.False(t, (&Data{Data2: []byte{1}}).WellFormed())
	assert.False(t, (*Data)(nil).WellFormed())
}

func TestMessageRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []*Message{
		{RequestID: 1, Operation: FindRequest, FunctionName: "add2", Data: &Data{}},
		{RequestID: -7, Operation: CallRequest, FunctionName: "op", Data: &Data{Data1: 5, Data2Len: 1, Data2: []byte{2}}},
		{RequestID: 99, Operation: ReplySuccess, FunctionName: "add2", Data: &Data{Data1: 101}},
		{RequestID: 99, Operation: ReplyFailure, FunctionName: "add2", Data: &Data{}},
	}
	for _, m := range cases {
		b := NewBuffer(128)
		require.NoError(t, AppendMessage(b, m))

		got, err := ReadMessage(NewBufferFrom(b.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestMessageFieldOrderOnWire(t *testing.T) {
	t.Parallel()

	m := &Message{RequestID: 1, Operation: CallRequest, FunctionName: "a", Data: &Data{Data1: 2}}
	b := NewBuffer(64)
	require.NoError(t, AppendMessage(b, m))

	wire := b.Bytes()
	// request_id (8) · operation (8) · gamma(2)=3 bytes + "a" + NUL · data1 (8) · gamma(0)=1 byte
	require.Len(t, wire, 8+8+5+8+1)
	assert.EqualValues(t, 1, wire[7])                          // request_id
	assert.EqualValues(t, 1, wire[15])                         // operation tag
	assert.Equal(t, []byte{0x00, 0x01, 0x01}, wire[16:19])     // gamma(1+1)
	assert.EqualValues(t, 'a', wire[19])                       // name byte
	assert.EqualValues(t, 0x00, wire[20])                      // NUL terminator
	assert.EqualValues(t, 2, wire[28])                         // data1
	assert.EqualValues(t, 0x01, wire[29])                      // gamma(0+1) for data2_len
}

func TestMessageRejectsUnknownOperation(t *testing.T) {
	t.Parallel()

	// on encode
	b := NewBuffer(64)
	err := AppendMessage(b, &Message{RequestID: 1, Operation: 9, FunctionName: "x", Data: &Data{}})
	assert.ErrorIs(t, err, ErrUnknownOperation)

	// on decode
	b = NewBuffer(64)
	AppendInt(b, 1)
	AppendInt(b, 9)
	require.NoError(t, AppendString(b, "x"))
	require.NoError(t, AppendData(b, &Data{}))

	_, err = ReadMessage(NewBufferFrom(b.Bytes()))
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestMessageRejectsBadNames(t *testing.T) {
	t.Parallel()

	b := NewBuffer(64)
	err := AppendMessage(b, &Message{Operation: FindRequest, FunctionName: "", Data: &Data{}})
	assert.ErrorIs(t, err, ErrInvalidName)

	long := strings.Repeat("n", MaxNameLength+1)
	err = AppendMessage(NewBuffer(64), &Message{Operation: FindRequest, FunctionName: long, Data: &Data{}})
	assert.ErrorIs(t, err, ErrInvalidName)

	// an over-long name is also rejected coming off the wire
	wire := NewBuffer(4096)
	AppendInt(wire, 1)
	AppendInt(wire, int32(FindRequest))
	AppendGamma(wire, uint64(MaxNameLength+2))
	wire.Append([]byte(long))
	wire.AppendByte(0x00)
	AppendInt(wire, 0)
	AppendGamma(wire, 0)

	_, err = ReadMessage(NewBufferFrom(wire.Bytes()))
	assert.ErrorIs(t, err, ErrInvalidName)
}
