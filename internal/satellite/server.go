package satellite

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"
)

const pollTimeout = 250 * time.Millisecond

// serve is the connection loop: accept one client at a time on the
// configured port, reset the decoder per connection, and read/dispatch
// until the client disconnects or a stop is requested. It translates the
// source's nested select-with-250ms-timeout loops into Go's idiomatic
// deadline-based polling on *net.TCPListener / net.Conn.
func (s *Satellite) serve() error {
	lc := net.ListenConfig{Control: setReuseAddr}
	ln, err := lc.Listen(s.ctx, "tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("%w: listen: %v", ErrSocket, err)
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return fmt.Errorf("%w: listener is not tcp", ErrSocket)
	}

	s.stateMu.Lock()
	s.listener = tcpLn
	s.stateMu.Unlock()
	defer tcpLn.Close()

	s.logger.Info("satellite listening", "port", s.cfg.Port)

	for {
		if s.isStopRequested() {
			return nil
		}
		if err := tcpLn.SetDeadline(time.Now().Add(pollTimeout)); err != nil {
			return fmt.Errorf("%w: %v", ErrSocket, err)
		}

		conn, err := tcpLn.Accept()
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if s.isStopRequested() {
				return nil
			}
			if isAcceptTransient(err) {
				continue
			}
			return fmt.Errorf("%w: accept: %v", ErrSocket, err)
		}

		s.handleConnection(conn)

		if s.isStopRequested() {
			return nil
		}
	}
}

// setReuseAddr requests SO_REUSEADDR on the listening socket, the
// Go-idiomatic equivalent of the source's setsockopt call before bind.
func setReuseAddr(network, address string, c syscall.RawConn) error {
	var ctrlErr error
	err := c.Control(func(fd uintptr) {
		ctrlErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return ctrlErr
}

func isAcceptTransient(err error) bool {
	if isTimeout(err) {
		return true
	}
	return errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPROTO) ||
		errors.Is(err, syscall.ENOPROTOOPT) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EINTR)
}

// handleConnection drives the read loop for a single client connection:
// reset the decoder, notify SAT_CONNECT, read into the decoder's staging
// buffer on a 250ms poll, drain and dispatch every record it yields, and
// notify SAT_DISCONNECT on the way out regardless of how the connection
// ended.
func (s *Satellite) handleConnection(conn net.Conn) {
	s.stateMu.Lock()
	s.conn = conn
	s.stateMu.Unlock()

	s.decoder.Reset()
	s.routeSatConnect()

	defer func() {
		s.stateMu.Lock()
		s.conn = nil
		s.stateMu.Unlock()
		conn.Close()
		s.routeSatDisconnect()
	}()

	for {
		if s.isStopRequested() {
			return
		}

		dst := s.decoder.BufferGet()
		if len(dst) == 0 {
			s.drainDecoder()
			dst = s.decoder.BufferGet()
			if len(dst) == 0 {
				s.logger.Error("decoder buffer stuck full, resetting connection")
				return
			}
		}

		if err := conn.SetReadDeadline(time.Now().Add(pollTimeout)); err != nil {
			return
		}

		n, err := conn.Read(dst)
		if n > 0 {
			s.decoder.BufferAdvance(n)
			s.drainDecoder()
		}
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if !isConnDrop(err) {
				s.logger.Warn("connection read error", "error", err)
			}
			return
		}
	}
}

func (s *Satellite) drainDecoder() {
	for {
		rec, ok := s.decoder.Next()
		if !ok {
			return
		}
		s.dispatch(&rec)
		rec.Free()
	}
}
