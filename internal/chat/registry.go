package chat

import (
	"fmt"
	"sync"
)

// Registry is the set of open clients keyed by id. The lock is held only for
// the structural edit or the copy made by Snapshot, never across I/O.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Insert adds an open client.
func (r *Registry) Insert(c *Client) error {
	return r.insert(c, nil)
}

// insert runs onInsert under the lock once c is in, so work started there is
// ordered before any Close.
func (r *Registry) insert(c *Client, onInsert func()) error {
	if c.State() != StateOpen {
		return fmt.Errorf("%w: %s is %s", ErrNotOpen, c.ID(), c.State())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrHubClosed
	}
	if _, ok := r.clients[c.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, c.ID())
	}
	r.clients[c.ID()] = c
	if onInsert != nil {
		onInsert()
	}
	return nil
}

// Remove deletes the client with the given id. Removing an absent id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

// Snapshot returns the clients registered at the time of the call.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Close rejects further inserts and returns the clients still registered.
func (r *Registry) Close() []*Client {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return r.Snapshot()
}
