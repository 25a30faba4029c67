package transport

import (
	"net"
	"sync"

	"github.com/omochice/socket-relay/internal/chat"
)

// Server binds one listener and feeds accepted sockets to a Hub through a
// Handshake.
type Server struct {
	address   string
	hub       *chat.Hub
	handshake chat.Handshake

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
}

// NewServer creates a Server that is not yet listening.
func NewServer(address string, hub *chat.Hub, handshake chat.Handshake) *Server {
	return &Server{
		address:   address,
		hub:       hub,
		handshake: handshake,
	}
}

// Listen binds the listening socket without accepting yet. A second call is
// a no-op.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := Listen(s.address)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Serve accepts connections until Stop is called. Listen is called first if
// needed.
func (s *Server) Serve() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.serve(s.track())
}

// Start binds and serves in the background.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	ln, done := s.track()
	go s.serve(ln, done)
	return nil
}

// Stop closes the listener and waits for pending handshakes. Connected
// clients are left to the Hub. The Server may Listen again afterwards.
func (s *Server) Stop() {
	s.mu.Lock()
	ln, done := s.listener, s.done
	s.listener, s.done = nil, nil
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	if done != nil {
		<-done
	}
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// track records that the current listener is being served so Stop can wait
// for it.
func (s *Server) track() (net.Listener, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = make(chan struct{})
	return s.listener, s.done
}

func (s *Server) serve(ln net.Listener, done chan struct{}) error {
	defer close(done)
	if ln == nil {
		// Stopped before serving began.
		return nil
	}
	return s.hub.Serve(ln, s.handshake)
}
