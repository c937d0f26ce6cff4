package client

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidsha/gammarpc/pkg/protocol"
)

// silentListener accepts one connection and reports whether any bytes
// ever arrived on it.
func silentListener(t *testing.T) (port int, received chan int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	received = make(chan int, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		received <- n
	}()

	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err = strconv.Atoi(portStr)
	require.NoError(t, err)
	return port, received
}

func TestDialFailure(t *testing.T) {
	t.Parallel()

	// grab a port and close it again so nothing listens there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	_, err = Dial("127.0.0.1", port, Config{DialTimeout: time.Second})
	assert.Error(t, err)
}

func TestDialRejectsBadArguments(t *testing.T) {
	t.Parallel()

	_, err := Dial("", 3000, DefaultConfig())
	assert.Error(t, err)

	_, err = Dial("localhost", -1, DefaultConfig())
	assert.Error(t, err)

	_, err = Dial("localhost", 70000, DefaultConfig())
	assert.Error(t, err)
}

func TestMalformedPayloadNeverTransmits(t *testing.T) {
	t.Parallel()

	port, received := silentListener(t)

	cl, err := Dial("127.0.0.1", port, DefaultConfig())
	require.NoError(t, err)
	defer cl.Close()

	_, err = cl.Call(&Handle{name: "add2"}, &protocol.Data{Data1: 0, Data2Len: 3})
	assert.ErrorIs(t, err, protocol.ErrMalformedData)

	// the server side must have seen zero bytes
	assert.Zero(t, <-received)
}

func TestCallNilHandle(t *testing.T) {
	t.Parallel()

	port, _ := silentListener(t)
	cl, err := Dial("127.0.0.1", port, DefaultConfig())
	require.NoError(t, err)
	defer cl.Close()

	_, err = cl.Call(nil, &protocol.Data{})
	assert.Error(t, err)
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	port, _ := silentListener(t)
	cl, err := Dial("127.0.0.1", port, DefaultConfig())
	require.NoError(t, err)

	assert.NoError(t, cl.Close())
	assert.NoError(t, cl.Close())

	_, err = cl.Find("add2")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHandleName(t *testing.T) {
	t.Parallel()

	h := &Handle{name: "add2"}
	assert.Equal(t, "add2", h.Name())
}
