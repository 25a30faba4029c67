package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/omochice/socket-relay/pkg/protocol"
)

// State is the lifecycle state of a Client.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client is one live peer of the hub. It owns its connection and a bounded
// outbound queue drained by its own write loop.
type Client struct {
	id   string
	addr string
	conn Conn
	hub  *Hub

	state    atomic.Int32
	outgoing chan protocol.Message

	closeOnce  sync.Once
	closing    chan struct{}
	writerDone chan struct{}
	done       chan struct{}

	mu     sync.Mutex
	reason error
}

func newClient(h *Hub, conn Conn) *Client {
	return &Client{
		id:         h.opts.newID(),
		addr:       conn.RemoteAddr(),
		conn:       conn,
		hub:        h,
		outgoing:   make(chan protocol.Message, h.opts.queueSize),
		closing:    make(chan struct{}),
		writerDone: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// ID returns the process-unique client id.
func (c *Client) ID() string { return c.id }

// Addr returns the peer address.
func (c *Client) Addr() string { return c.addr }

// State returns the current lifecycle state.
func (c *Client) State() State { return State(c.state.Load()) }

// Done is closed once both loops have exited and the connection is released.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns the reason the client left the open state, or nil while open.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Pending returns the number of queued outbound messages.
func (c *Client) Pending() int { return len(c.outgoing) }

// Close starts a graceful shutdown: the queue is flushed and the connection closed.
func (c *Client) Close() {
	c.shutdown(ErrShutdown)
}

// Enqueue queues msg for delivery. It never blocks: when the queue is full the
// client is disconnected as a slow consumer and msg is dropped. It reports
// whether msg was queued.
func (c *Client) Enqueue(msg protocol.Message) bool {
	if c.State() != StateOpen {
		return false
	}

	select {
	case c.outgoing <- msg:
		return true
	default:
		c.hub.stats.overflows.Add(1)
		c.shutdown(fmt.Errorf("%w: %d messages pending", ErrQueueOverflow, cap(c.outgoing)))
		return false
	}
}

// shutdown moves the client to closing exactly once. Overflow and write
// failures abort the connection at once; any other reason lets the write loop
// flush what is queued.
func (c *Client) shutdown(reason error) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()

		c.hub.registry.Remove(c.id)
		close(c.closing)

		if errors.Is(reason, ErrQueueOverflow) || errors.Is(reason, ErrWrite) {
			_ = c.conn.Close()
		}

		c.hub.departed(c)
	})
}

func (c *Client) readLoop() {
	for {
		payload, err := c.conn.Read(context.Background())
		if err != nil {
			c.shutdown(c.hub.classifyReadError(err))
			return
		}
		if c.State() != StateOpen {
			return
		}
		c.hub.stats.messagesIn.Add(1)
		c.hub.Broadcast(payload, c)
	}
}

func (c *Client) writeLoop() {
	defer close(c.writerDone)

	for {
		select {
		case msg := <-c.outgoing:
			if err := c.write(msg); err != nil {
				c.shutdown(fmt.Errorf("%w: %w", ErrWrite, err))
				_ = c.conn.Close()
				return
			}
		case <-c.closing:
			c.drain()
			return
		}
	}
}

func (c *Client) write(msg protocol.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.hub.opts.writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, msg)
}

// drain flushes the queue within the drain timeout, then releases the connection.
func (c *Client) drain() {
	defer c.conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.hub.opts.drainTimeout)
	defer cancel()

	for {
		select {
		case msg := <-c.outgoing:
			if err := c.conn.Write(ctx, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

// finish runs after both loops have exited.
func (c *Client) finish() {
	c.state.Store(int32(StateClosed))

	reason := c.Err()
	c.hub.opts.logger.Debug("client closed", "id", c.id, "addr", c.addr, "reason", reason)
	c.hub.opts.hooks.close(c.addr, reason)
	close(c.done)
}

// classifyReadError maps a read failure to a close reason. Anything that is
// not a protocol violation counts as the peer going away.
func (h *Hub) classifyReadError(err error) error {
	switch {
	case errors.Is(err, protocol.ErrProtocol):
		h.stats.protocolErrors.Add(1)
		return err
	case errors.Is(err, protocol.ErrConnectionClosed):
		return err
	default:
		return fmt.Errorf("%w: %w", protocol.ErrConnectionClosed, err)
	}
}
