// Package ws provides a WebSocket client for the relay gateway.
package ws

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/omochice/socket-relay/internal/client"
	"github.com/omochice/socket-relay/pkg/protocol"
)

// Client represents a WebSocket relay client. Messages travel as protobuf
// envelopes in binary frames.
type Client struct {
	address string

	mu        sync.Mutex
	conn      net.Conn
	writeMu   sync.Mutex
	connected atomic.Bool

	messages  chan protocol.Message
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a new Client for a ws:// address.
func New(address string) *Client {
	return &Client{
		address:  address,
		messages: make(chan protocol.Message, 16),
		done:     make(chan struct{}),
	}
}

// Connect performs the WebSocket handshake and starts the receive path.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return client.ErrAlreadyConnected
	}

	conn, br, _, err := ws.Dial(ctx, c.address)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}

	// Frames the server sent right after the handshake may already sit in br.
	var src io.Reader = conn
	if br != nil {
		src = io.MultiReader(br, conn)
	}

	c.conn = conn
	c.connected.Store(true)

	c.wg.Add(1)
	go c.receiveMessages(src, br)

	return nil
}

// Disconnect sends a close frame, closes the socket and waits for the
// receive path to end. It is safe to call more than once.
func (c *Client) Disconnect() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.connected.Store(false)

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		if c.writeMu.TryLock() {
			_ = conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
			_ = wsutil.WriteClientMessage(conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
			c.writeMu.Unlock()
		}
		conn.Close()
	})
	c.wg.Wait()
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// SendMessage sends content in a binary envelope.
func (c *Client) SendMessage(content string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil || !c.connected.Load() {
		return client.ErrNotConnected
	}

	msg := protocol.Message{Type: protocol.MessageTypeText, Content: content}
	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := wsutil.WriteClientBinary(conn, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Messages returns the channel for receiving messages.
func (c *Client) Messages() <-chan protocol.Message {
	return c.messages
}

// LocalAddr returns the local address of the socket, or "" before Connect.
func (c *Client) LocalAddr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ""
	}
	return c.conn.LocalAddr().String()
}

// controlWriter serialises control frame replies with SendMessage. Each
// reply is emitted in a single Write.
type controlWriter struct {
	c *Client
}

func (w controlWriter) Write(p []byte) (int, error) {
	w.c.writeMu.Lock()
	defer w.c.writeMu.Unlock()
	return w.c.conn.Write(p)
}

func (c *Client) receiveMessages(src io.Reader, br *bufio.Reader) {
	defer c.wg.Done()
	defer close(c.messages)
	defer c.connected.Store(false)
	if br != nil {
		defer ws.PutReader(br)
	}

	rw := struct {
		io.Reader
		io.Writer
	}{src, controlWriter{c}}

	for {
		data, op, err := wsutil.ReadServerData(rw)
		if err != nil {
			return
		}

		var msg protocol.Message
		if op == ws.OpBinary {
			if err := msg.Decode(data); err != nil {
				continue
			}
		} else {
			msg = protocol.Message{Type: protocol.MessageTypeText, Content: string(data)}
		}
		if msg.Time.IsZero() {
			msg.Time = time.Now()
		}

		select {
		case c.messages <- msg:
		case <-c.done:
			return
		}
	}
}
