package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"tichu-server/internal/protocol"
)

const (
	// A client that sends nothing for this long has its read loop
	// cancelled instead of leaking a goroutine forever.
	tcpReadTimeout  = 5 * time.Minute
	tcpWriteTimeout = 10 * time.Second
)

// tcpConn adapts a raw socket to the Conn interface, writing framed
// payloads. Sends are serialized so broadcast frames never interleave.
type tcpConn struct {
	mu sync.Mutex
	c  net.Conn
}

func (t *tcpConn) Send(ctx context.Context, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	deadline := time.Now().Add(tcpWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.c.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return protocol.EncodeFrame(t.c, payload)
}

func (t *tcpConn) Close() error {
	return t.c.Close()
}

// serveTCP accepts framed-protocol clients until the listener closes.
func (s *Server) serveTCP(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("TCP accept error: %v", err)
			continue
		}
		go s.handleTCPConn(ctx, conn)
	}
}

func (s *Server) handleTCPConn(ctx context.Context, conn net.Conn) {
	connectionID := uuid.New().String()
	log.Printf("New TCP connection: %s (%s)", connectionID, conn.RemoteAddr())

	wrapped := &tcpConn{c: conn}
	s.connectionManager.AddConnection(connectionID, wrapped)

	defer func() {
		s.connectionManager.RemoveConnection(connectionID)
		conn.Close()
		log.Printf("TCP connection closed: %s", connectionID)
	}()

	reader := bufio.NewReader(conn)

	for {
		if ctx.Err() != nil {
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(tcpReadTimeout)); err != nil {
			return
		}

		payload, err := protocol.DecodeFrame(reader)
		if err != nil {
			// A message with a bad length field is dropped, not
			// fatal: the connection survives protocol mistakes.
			if errors.Is(err, protocol.ErrMalformedLength) || errors.Is(err, protocol.ErrFrameTooLarge) {
				log.Printf("Dropping malformed frame from %s: %v", connectionID, err)
				continue
			}
			if !errors.Is(err, io.EOF) {
				log.Printf("Connection %s read error: %v", connectionID, err)
			}
			return
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("Invalid JSON from %s: %v", connectionID, err)
			s.sendError(connectionID, "INVALID_JSON", "Invalid JSON payload")
			continue
		}

		if !s.limiter.Allow(connectionID) {
			s.sendError(connectionID, "RATE_LIMITED", "Too many requests, slow down")
			continue
		}

		s.dispatcher.Enqueue(Command{ConnID: connectionID, Msg: msg})
	}
}
