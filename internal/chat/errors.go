package chat

import "errors"

var (
	// ErrQueueOverflow is the close reason of a slow consumer.
	ErrQueueOverflow = errors.New("outbound queue overflow")

	// ErrDuplicateID is returned by Registry.Insert for an id already present.
	ErrDuplicateID = errors.New("duplicate client id")

	// ErrHubClosed is returned once the hub has started shutting down.
	ErrHubClosed = errors.New("hub closed")

	// ErrWrite wraps a failed write to a peer.
	ErrWrite = errors.New("write failed")

	// ErrShutdown is the close reason of Client.Close.
	ErrShutdown = errors.New("connection shut down")

	// ErrNotOpen is returned when inserting a client that is not open.
	ErrNotOpen = errors.New("client not open")
)
