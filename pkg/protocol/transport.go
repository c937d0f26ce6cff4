package protocol

import (
	"errors"
	"fmt"
	"io"

	"github.com/davidsha/gammarpc/internal/logger"
	"github.com/davidsha/gammarpc/pkg/bufpool"
)

// Transport frames messages over a stream with a size-echo handshake.
//
// Sending a message takes three steps on the wire:
//
//  1. the sender writes a SizeHeaderLength-byte window holding the gamma
//     encoding of the body size, zero-padded;
//  2. the sender reads the peer's echo of the same window and aborts if
//     the echoed size differs (the framing header is validated before
//     either side commits to a large transfer);
//  3. the sender writes the body.
//
// The receiver mirrors this: read the window, decode and bound-check the
// size, echo the window back, read exactly that many body bytes.
//
// Reads and writes loop until the full count is transferred; end of
// stream or a broken pipe surfaces as an error and the caller drops the
// connection. A Transport is not safe for concurrent use: exchanges on a
// connection are strictly sequential.
type Transport struct {
	rw io.ReadWriter
}

// NewTransport wraps a stream. The server passes the accepted connection;
// the client passes the dialed one.
func NewTransport(rw io.ReadWriter) *Transport {
	return &Transport{rw: rw}
}

// Send serializes msg and ships it through the size-echo handshake.
func (t *Transport) Send(msg *Message) error {
	body := NewBuffer(256)
	if err := AppendMessage(body, msg); err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}
	size := body.Len()
	if size > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, size)
	}

	// announce the size and wait for the echo
	var header [SizeHeaderLength]byte
	encodeSizeHeader(header[:], uint64(size))
	if err := writeFull(t.rw, header[:]); err != nil {
		return fmt.Errorf("write size header: %w", err)
	}
	var echo [SizeHeaderLength]byte
	if err := readFull(t.rw, echo[:]); err != nil {
		return fmt.Errorf("read size echo: %w", err)
	}
	echoed, err := decodeSizeHeader(echo[:])
	if err != nil {
		return fmt.Errorf("decode size echo: %w", err)
	}
	if echoed != uint64(size) {
		return fmt.Errorf("%w: sent %d, peer echoed %d", ErrSizeEchoMismatch, size, echoed)
	}

	if logger.DebugEnabled() {
		logger.Debug("sending frame", "operation", msg.Operation.String(), "size", size)
		logger.Debug(HexDump(body.Bytes()))
	}
	if err := writeFull(t.rw, body.Bytes()); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// Receive reads one framed message. io.EOF is returned untouched when the
// peer closed the connection cleanly between frames.
func (t *Transport) Receive() (*Message, error) {
	var header [SizeHeaderLength]byte
	if err := readFull(t.rw, header[:]); err != nil {
		return nil, err
	}
	size, err := decodeSizeHeader(header[:])
	if err != nil {
		return nil, fmt.Errorf("decode size header: %w", err)
	}

	// bound the size before echoing so a rogue peer cannot coax an
	// unbounded allocation out of us
	if size > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, size)
	}

	if err := writeFull(t.rw, header[:]); err != nil {
		return nil, fmt.Errorf("write size echo: %w", err)
	}

	body := bufpool.Get(int(size))
	defer bufpool.Put(body)
	if err := readFull(t.rw, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if logger.DebugEnabled() {
		logger.Debug("received frame", "size", size)
		logger.Debug(HexDump(body))
	}

	msg, err := ReadMessage(NewBufferFrom(body))
	if err != nil {
		// the handshake is complete, so the caller may still reply
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return msg, nil
}

// Exchange sends a request and blocks for the reply. This is the client's
// one-request-in-flight request/reply cycle.
func (t *Transport) Exchange(msg *Message) (*Message, error) {
	if err := t.Send(msg); err != nil {
		return nil, err
	}
	return t.Receive()
}

// encodeSizeHeader writes the gamma encoding of size at the front of the
// window; the remainder stays zero. The code is self-delimiting, so the
// padding never reaches the decoder.
func encodeSizeHeader(window []byte, size uint64) {
	b := NewBuffer(SizeHeaderLength)
	AppendGamma(b, size)
	copy(window, b.Bytes())
}

// decodeSizeHeader reads the gamma code from the front of the window.
func decodeSizeHeader(window []byte) (uint64, error) {
	return ReadGamma(NewBufferFrom(window))
}

// readFull loops until len(buf) bytes are read or the stream ends.
func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}

// writeFull writes all of buf with a single call. io.Writer already
// guarantees full writes on success; a short count is reported as
// io.ErrShortWrite.
func writeFull(w io.Writer, buf []byte) error {
	n, err := w.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}
	return nil
}
