// Package tcp provides the length-prefixed TCP transport for the relay hub.
package tcp

import (
	"context"
	"net"
	"time"

	"github.com/omochice/socket-relay/pkg/protocol"
)

// Conn adapts net.Conn to chat.Conn. Inbound frames carry raw text; outbound
// frames carry presentation lines.
type Conn struct {
	conn     net.Conn
	reader   *protocol.Reader
	maxLine  int
}

// NewConn wraps a net.Conn. Inbound frames are limited to maxFrame; outbound
// lines get protocol.MaxLine(maxFrame) so a full-size payload is relayed
// whole. A non-positive maxFrame selects protocol.DefaultMaxFrame.
func NewConn(conn net.Conn, maxFrame int) *Conn {
	r := protocol.NewReader(conn, maxFrame)
	return &Conn{conn: conn, reader: r, maxLine: protocol.MaxLine(r.Max)}
}

// Read implements chat.Conn.
// Blocks until one whole frame has arrived.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	return c.reader.ReadFrame()
}

// Write implements chat.Conn.
// The ctx deadline, if any, bounds the socket write.
func (c *Conn) Write(ctx context.Context, msg protocol.Message) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	return protocol.WriteFrame(c.conn, protocol.EncodeLine(msg, c.maxLine), c.maxLine)
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
