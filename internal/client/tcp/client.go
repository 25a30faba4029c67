// Package tcp provides a TCP client for the relay hub.
package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omochice/socket-relay/internal/client"
	"github.com/omochice/socket-relay/pkg/protocol"
)

// Client represents a TCP relay client.
type Client struct {
	address  string
	local    string
	maxFrame int

	mu        sync.Mutex
	conn      net.Conn
	writer    *protocol.Writer
	writeMu   sync.Mutex
	connected atomic.Bool

	messages  chan protocol.Message
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a new Client for the hub at address. When local is not empty
// the socket is bound to it before dialing. A non-positive maxFrame selects
// protocol.DefaultMaxFrame.
func New(address, local string, maxFrame int) *Client {
	if maxFrame <= 0 {
		maxFrame = protocol.DefaultMaxFrame
	}
	return &Client{
		address:  address,
		local:    local,
		maxFrame: maxFrame,
		messages: make(chan protocol.Message, 16),
		done:     make(chan struct{}),
	}
}

// Connect establishes a connection to the hub and starts the receive path.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return client.ErrAlreadyConnected
	}

	var d net.Dialer
	if c.local != "" {
		addr, err := net.ResolveTCPAddr("tcp", c.local)
		if err != nil {
			return fmt.Errorf("failed to resolve local address: %w", err)
		}
		d.LocalAddr = addr
	}

	conn, err := d.DialContext(ctx, "tcp", c.address)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}

	c.conn = conn
	c.writer = protocol.NewWriter(conn, c.maxFrame)
	c.connected.Store(true)

	c.wg.Add(1)
	go c.receiveMessages(protocol.NewReader(conn, protocol.MaxLine(c.maxFrame)))

	return nil
}

// Disconnect closes the connection and waits for the receive path to end.
// It is safe to call more than once.
func (c *Client) Disconnect() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.connected.Store(false)

		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
	c.wg.Wait()
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// SendMessage sends one line of text as a frame.
func (c *Client) SendMessage(content string) error {
	c.mu.Lock()
	w := c.writer
	c.mu.Unlock()

	if w == nil || !c.connected.Load() {
		return client.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := w.WriteFrame([]byte(content)); err != nil {
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

// receiveMessages reads frames until the connection ends. Frames that are
// not presentation lines are delivered as plain text stamped on arrival.
func (c *Client) receiveMessages(r *protocol.Reader) {
	defer c.wg.Done()
	defer close(c.messages)
	defer c.connected.Store(false)

	for {
		payload, err := r.ReadFrame()
		if err != nil {
			return
		}

		msg, err := protocol.ParseLine(string(payload))
		if err != nil {
			msg = protocol.Message{
				Type:    protocol.MessageTypeText,
				Content: string(payload),
				Time:    time.Now(),
			}
		}

		select {
		case c.messages <- msg:
		case <-c.done:
			return
		}
	}
}
