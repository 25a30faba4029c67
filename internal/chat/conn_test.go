package chat_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/omochice/socket-relay/internal/chat"
	"github.com/omochice/socket-relay/pkg/protocol"
)

// mockConn is a mock implementation of chat.Conn for testing.
type mockConn struct {
	readCh     chan []byte
	readErr    chan error
	writtenMu  sync.Mutex
	written    []protocol.Message
	writeErr   error
	block      chan struct{}
	closeOnce  sync.Once
	closed     chan struct{}
	remoteAddr string
}

func newMockConn(addr string) *mockConn {
	return &mockConn{
		readCh:     make(chan []byte, 10),
		readErr:    make(chan error, 1),
		closed:     make(chan struct{}),
		remoteAddr: addr,
	}
}

// newBlockedConn returns a conn whose writes hang until it is closed.
func newBlockedConn(addr string) *mockConn {
	m := newMockConn(addr)
	m.block = make(chan struct{})
	return m
}

func (m *mockConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.closed:
		return nil, net.ErrClosed
	case err := <-m.readErr:
		return nil, err
	case data, ok := <-m.readCh:
		if !ok {
			return nil, fmt.Errorf("%w: %w", protocol.ErrConnectionClosed, io.EOF)
		}
		return data, nil
	}
}

func (m *mockConn) Write(ctx context.Context, msg protocol.Message) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-m.closed:
			return net.ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case <-m.closed:
		return net.ErrClosed
	default:
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	m.written = append(m.written, msg)
	return nil
}

func (m *mockConn) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

func (m *mockConn) RemoteAddr() string {
	return m.remoteAddr
}

func (m *mockConn) GetWritten() []protocol.Message {
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	return append([]protocol.Message(nil), m.written...)
}

func (m *mockConn) IsClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

// send simulates the peer sending payload.
func (m *mockConn) send(payload string) {
	m.readCh <- []byte(payload)
}

// hangUp simulates the peer closing its end.
func (m *mockConn) hangUp() {
	close(m.readCh)
}

// Compile-time check that mockConn implements chat.Conn
var _ chat.Conn = (*mockConn)(nil)

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitDone(t *testing.T, c *chat.Client) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("client %s did not close", c.Addr())
	}
}

func join(t *testing.T, hub *chat.Hub, conn chat.Conn) *chat.Client {
	t.Helper()
	c, err := hub.Join(conn)
	if err != nil {
		t.Fatalf("Join(%s) error = %v", conn.RemoteAddr(), err)
	}
	return c
}

func shutdown(t *testing.T, hub *chat.Hub) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := hub.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
