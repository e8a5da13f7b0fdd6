package satellite

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/nadzzz/wyosat/internal/event"
)

// ErrDisconnected is returned by sendEvent when no client is currently
// attached or a stop has been requested.
var ErrDisconnected = errors.New("satellite: disconnected")

// ErrSocket reports a listener failure or any failed write, including a
// write to a peer that has dropped the connection.
var ErrSocket = errors.New("satellite: socket error")

const (
	sendChunkSize   = event.BufferSize
	sendChunkWindow = 250 * time.Millisecond
)

// sendEvent serializes and writes ev to the current client connection
// under the send mutex, so concurrent emitters (mode handlers reacting to
// device events, the dispatcher replying to protocol events) can never
// interleave bytes on the wire.
func (s *Satellite) sendEvent(ev event.Event) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.stateMu.Lock()
	conn := s.conn
	stopped := s.stopRequested
	s.stateMu.Unlock()

	if conn == nil || stopped {
		return ErrDisconnected
	}

	wire, err := event.Encode(ev)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSocket, err)
	}
	return s.sendAll(conn, wire)
}

// sendAll writes buf in chunks no larger than sendChunkSize, each bounded
// by a write deadline so the loop can observe a stop request between
// chunks, the Go-idiomatic stand-in for the source's select-with-timeout
// send loop.
func (s *Satellite) sendAll(conn net.Conn, buf []byte) error {
	for len(buf) > 0 {
		if s.isStopRequested() {
			return ErrSocket
		}

		chunk := buf
		if len(chunk) > sendChunkSize {
			chunk = chunk[:sendChunkSize]
		}

		if err := conn.SetWriteDeadline(time.Now().Add(sendChunkWindow)); err != nil {
			return fmt.Errorf("%w: %v", ErrSocket, err)
		}

		n, err := conn.Write(chunk)
		buf = buf[n:]
		if err != nil {
			if isTimeout(err) {
				// Only our own deadline firing; retry unless told to stop.
				continue
			}
			if isConnDrop(err) {
				return ErrSocket
			}
			return fmt.Errorf("%w: %v", ErrSocket, err)
		}
	}
	return nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// isConnDrop classifies the connection-drop error family from §7: the
// peer went away mid-write rather than our code hitting a genuine socket
// failure.
func isConnDrop(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ENOTCONN) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETRESET) ||
		errors.Is(err, syscall.ENETDOWN)
}
