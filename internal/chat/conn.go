// Package chat provides the core relay logic shared by all transports: the
// registry of live clients, the broadcaster, and the per-client read and
// write loops.
package chat

import (
	"context"

	"github.com/omochice/socket-relay/pkg/protocol"
)

// Conn abstracts a bidirectional message connection for both TCP and WebSocket.
// This interface isolates transport details from relay logic.
type Conn interface {
	// Read blocks until one complete inbound payload is available.
	// It returns an error wrapping protocol.ErrConnectionClosed when the peer
	// goes away and one wrapping protocol.ErrProtocol for malformed input.
	Read(ctx context.Context) ([]byte, error)

	// Write sends one outbound message. A deadline on ctx bounds the write.
	Write(ctx context.Context, msg protocol.Message) error

	// Close closes the connection and unblocks pending Read and Write calls.
	Close() error

	// RemoteAddr returns the peer address.
	RemoteAddr() string
}
