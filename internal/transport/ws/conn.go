// Package ws provides the WebSocket gateway transport for the relay hub.
// Binary messages carry protobuf envelopes; text messages carry raw chat
// text from the peer.
package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/omochice/socket-relay/pkg/protocol"
)

// envelopeOverhead is the room left for the protobuf fields around the
// content of an inbound binary message.
const envelopeOverhead = 512

// Conn adapts an upgraded WebSocket socket to chat.Conn.
type Conn struct {
	conn     net.Conn
	maxFrame int
	mu       sync.Mutex
}

// NewConn wraps a socket that already completed the server-side upgrade.
// A non-positive maxFrame selects protocol.DefaultMaxFrame.
func NewConn(conn net.Conn, maxFrame int) *Conn {
	if maxFrame <= 0 {
		maxFrame = protocol.DefaultMaxFrame
	}
	return &Conn{conn: conn, maxFrame: maxFrame}
}

// Read implements chat.Conn.
// Returns the chat text of the next data message. Control frames are
// answered inline. A frame header or a fragmented message larger than the
// limit fails with protocol.ErrFrameTooLarge before its body is buffered.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	limit := int64(c.maxFrame + envelopeOverhead)
	control := wsutil.ControlFrameHandler(controlWriter{c}, ws.StateServerSide)
	rd := &wsutil.Reader{
		Source:         c.conn,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		MaxFrameSize:   limit,
		OnIntermediate: control,
	}

	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return nil, readError(err, hdr.Length)
		}
		if hdr.OpCode.IsControl() {
			if err := control(hdr, rd); err != nil {
				return nil, closed(err)
			}
			continue
		}
		if hdr.OpCode != ws.OpText && hdr.OpCode != ws.OpBinary {
			if err := rd.Discard(); err != nil {
				return nil, closed(err)
			}
			continue
		}

		data, err := io.ReadAll(io.LimitReader(rd, limit+1))
		if err != nil {
			return nil, readError(err, hdr.Length)
		}
		if int64(len(data)) > limit {
			return nil, fmt.Errorf("%w: message exceeds %d bytes", protocol.ErrFrameTooLarge, limit)
		}
		return c.payload(hdr.OpCode, data)
	}
}

func (c *Conn) payload(op ws.OpCode, data []byte) ([]byte, error) {
	payload := data
	if op == ws.OpBinary {
		var msg protocol.Message
		if err := msg.Decode(data); err != nil {
			return nil, fmt.Errorf("%w: %w", protocol.ErrProtocol, err)
		}
		payload = []byte(msg.Content)
	}
	if err := protocol.ValidatePayload(payload, c.maxFrame); err != nil {
		return nil, err
	}
	return payload, nil
}

// Write implements chat.Conn.
// Writes msg as a binary envelope. The ctx deadline, if any, bounds the write.
func (c *Conn) Write(ctx context.Context, msg protocol.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	if err := wsutil.WriteServerBinary(c.conn, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close implements chat.Conn.
// A close frame is sent only when no write is in flight.
func (c *Conn) Close() error {
	if c.mu.TryLock() {
		_ = c.conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
		_ = wsutil.WriteServerMessage(c.conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
		c.mu.Unlock()
	}
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// controlWriter serialises control frame replies with Write.
type controlWriter struct {
	c *Conn
}

func (w controlWriter) Write(p []byte) (int, error) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	return w.c.conn.Write(p)
}

func readError(err error, length int64) error {
	switch {
	case errors.Is(err, wsutil.ErrFrameTooLarge):
		return fmt.Errorf("%w: frame declares %d bytes", protocol.ErrFrameTooLarge, length)
	case errors.Is(err, wsutil.ErrInvalidUTF8):
		return fmt.Errorf("%w: %w", protocol.ErrInvalidUTF8, err)
	}
	return closed(err)
}

// closed maps a peer close frame or a dropped socket to
// protocol.ErrConnectionClosed.
func closed(err error) error {
	var ce wsutil.ClosedError
	if errors.As(err, &ce) {
		return fmt.Errorf("%w: %w", protocol.ErrConnectionClosed, err)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", protocol.ErrConnectionClosed, err)
	}
	return err
}
