package chat

import "time"

// Hooks receives connection events for presentation. Hooks run on connection
// goroutines and must be safe for concurrent use. Nil hooks are skipped.
type Hooks struct {
	// OnConnect is called after a client is registered.
	OnConnect func(addr string)

	// OnMessage is called for every relayed message before fan-out.
	// payload must not be retained or modified.
	OnMessage func(sender string, at time.Time, payload []byte)

	// OnClose is called once a client is fully closed. reason wraps
	// protocol.ErrConnectionClosed for an ordinary departure.
	OnClose func(addr string, reason error)
}

func (h Hooks) connect(addr string) {
	if h.OnConnect != nil {
		h.OnConnect(addr)
	}
}

func (h Hooks) message(sender string, at time.Time, payload []byte) {
	if h.OnMessage != nil {
		h.OnMessage(sender, at, payload)
	}
}

func (h Hooks) close(addr string, reason error) {
	if h.OnClose != nil {
		h.OnClose(addr, reason)
	}
}
