// Package client defines the common interface for relay clients and the
// duplex session that drives them.
package client

import (
	"context"
	"errors"

	"github.com/omochice/socket-relay/pkg/protocol"
)

var (
	// ErrNotConnected reports a send on a client that is not connected.
	ErrNotConnected = errors.New("not connected to server")

	// ErrAlreadyConnected reports a second Connect on the same client.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrServerClosed reports that the hub ended the connection.
	ErrServerClosed = errors.New("server closed the connection")
)

// Client defines the interface for relay clients.
// Both TCP and WebSocket implementations satisfy this interface.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	SendMessage(content string) error
	// Messages is closed when the receive path ends.
	Messages() <-chan protocol.Message
	LocalAddr() string
}
