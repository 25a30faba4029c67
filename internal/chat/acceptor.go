package chat

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

// Handshake turns an accepted socket into a Conn. It runs on the socket's own
// goroutine under the hub's handshake timeout.
type Handshake func(ctx context.Context, conn net.Conn) (Conn, error)

const maxAcceptDelay = time.Second

// Serve accepts sockets from ln until ln is closed, handing each one to its
// own goroutine for the handshake and Join. It returns nil after ln is closed
// and every pending handshake has finished.
func (h *Hub) Serve(ln net.Listener, handshake Handshake) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	var delay time.Duration
	for {
		raw, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay *= 2
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			h.opts.logger.Warn("failed to accept connection", "err", err, "retry_in", delay)
			time.Sleep(delay)
			continue
		}
		delay = 0

		wg.Add(1)
		go func() {
			defer wg.Done()
			h.accept(raw, handshake)
		}()
	}
}

func (h *Hub) accept(raw net.Conn, handshake Handshake) {
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.handshakeTimeout)
	defer cancel()

	deadline, _ := ctx.Deadline()
	_ = raw.SetDeadline(deadline)

	conn, err := handshake(ctx, raw)
	if err != nil {
		h.opts.logger.Warn("handshake failed", "addr", raw.RemoteAddr().String(), "err", err)
		_ = raw.Close()
		return
	}
	_ = raw.SetDeadline(time.Time{})

	if _, err := h.Join(conn); err != nil {
		h.opts.logger.Debug("rejected connection", "addr", conn.RemoteAddr(), "err", err)
		_ = conn.Close()
	}
}
