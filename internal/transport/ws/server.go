package ws

import (
	"context"
	"fmt"
	"net"

	"github.com/gobwas/ws"
	"github.com/omochice/socket-relay/internal/chat"
	"github.com/omochice/socket-relay/internal/transport"
)

// Server accepts WebSocket connections and delegates them to a Hub.
type Server struct {
	*transport.Server
	maxFrame int
}

// New creates a WebSocket server that uses the provided Hub. A non-positive
// maxFrame selects protocol.DefaultMaxFrame.
func New(address string, hub *chat.Hub, maxFrame int) *Server {
	s := &Server{maxFrame: maxFrame}
	s.Server = transport.NewServer(address, hub, s.handshake)
	return s
}

// handshake upgrades the raw socket in place, without net/http.
func (s *Server) handshake(_ context.Context, conn net.Conn) (chat.Conn, error) {
	if _, err := ws.Upgrade(conn); err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}
	return NewConn(conn, s.maxFrame), nil
}
