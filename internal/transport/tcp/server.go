package tcp

import (
	"context"
	"net"

	"github.com/omochice/socket-relay/internal/chat"
	"github.com/omochice/socket-relay/internal/transport"
)

// Server accepts TCP connections and delegates them to a Hub.
type Server struct {
	*transport.Server
	maxFrame int
}

// New creates a TCP server that uses the provided Hub. A non-positive
// maxFrame selects protocol.DefaultMaxFrame.
func New(address string, hub *chat.Hub, maxFrame int) *Server {
	s := &Server{maxFrame: maxFrame}
	s.Server = transport.NewServer(address, hub, s.handshake)
	return s
}

// The raw stream carries frames from the first byte, so there is nothing to
// negotiate.
func (s *Server) handshake(_ context.Context, conn net.Conn) (chat.Conn, error) {
	return NewConn(conn, s.maxFrame), nil
}
