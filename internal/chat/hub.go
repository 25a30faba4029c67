package chat

import (
	"context"
	"log/slog"
	"sync"

	"github.com/omochice/socket-relay/pkg/protocol"
)

// Hub owns the registry of live clients and fans messages out to them.
// TCP and WebSocket transports share a single Hub instance.
type Hub struct {
	opts     options
	registry *Registry
	stats    counters
	wg       sync.WaitGroup
}

// NewHub creates a new Hub.
func NewHub(opts ...Option) *Hub {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Hub{
		opts:     o,
		registry: NewRegistry(),
	}
}

// Join registers conn as an open client and starts its read and write loops.
// The caller keeps ownership of conn only when an error is returned.
func (h *Hub) Join(conn Conn) (*Client, error) {
	c := newClient(h, conn)
	c.state.Store(int32(StateOpen))

	if err := h.registry.insert(c, func() { h.wg.Add(2) }); err != nil {
		c.state.Store(int32(StateClosed))
		return nil, err
	}
	h.stats.accepted.Add(1)

	h.opts.logger.Debug("client joined", "id", c.id, "addr", c.addr)
	h.opts.hooks.connect(c.addr)

	go func() {
		defer h.wg.Done()
		c.writeLoop()
	}()
	go func() {
		defer h.wg.Done()
		c.readLoop()
		<-c.writerDone
		c.finish()
	}()

	return c, nil
}

// Broadcast relays payload from sender to every other open client, stamped
// with the current time and the sender's address. A nil sender broadcasts to
// all clients as the hub itself.
func (h *Hub) Broadcast(payload []byte, sender *Client) {
	msg := protocol.Message{
		Type:    protocol.MessageTypeText,
		Sender:  protocol.SystemSender,
		Content: string(payload),
		Time:    h.opts.now(),
	}
	if sender != nil {
		msg.Sender = sender.Addr()
	}

	h.opts.hooks.message(msg.Sender, msg.Time, payload)
	h.fanOut(msg, sender)
}

// departed announces that c left to everyone still registered.
func (h *Hub) departed(c *Client) {
	h.fanOut(protocol.Message{
		Type:   protocol.MessageTypeLeave,
		Sender: c.Addr(),
		Time:   h.opts.now(),
	}, nil)
}

// fanOut enqueues msg on every registered client except one. It returns the
// number of clients that accepted the message.
func (h *Hub) fanOut(msg protocol.Message, except *Client) int {
	n := 0
	for _, c := range h.registry.Snapshot() {
		if c == except {
			continue
		}
		if c.Enqueue(msg) {
			n++
		}
	}
	h.stats.framesQueued.Add(int64(n))
	return n
}

// Snapshot returns the clients currently registered.
func (h *Hub) Snapshot() []*Client {
	return h.registry.Snapshot()
}

// ClientCount returns number of connected clients.
func (h *Hub) ClientCount() int {
	return h.registry.Len()
}

// Stats returns the current counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Accepted:       h.stats.accepted.Load(),
		Active:         h.registry.Len(),
		MessagesIn:     h.stats.messagesIn.Load(),
		FramesQueued:   h.stats.framesQueued.Load(),
		Overflows:      h.stats.overflows.Load(),
		ProtocolErrors: h.stats.protocolErrors.Load(),
	}
}

// Shutdown stops accepting joins, closes every client and waits for their
// loops to exit. When ctx expires first the remaining connections are closed
// without flushing and ctx.Err() is returned.
func (h *Hub) Shutdown(ctx context.Context) error {
	clients := h.registry.Close()
	for _, c := range clients {
		c.shutdown(ErrHubClosed)
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		for _, c := range clients {
			_ = c.conn.Close()
		}
		return ctx.Err()
	}
}

// Logger returns the logger the hub reports to.
func (h *Hub) Logger() *slog.Logger {
	return h.opts.logger
}
