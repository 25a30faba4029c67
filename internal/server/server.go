// Package server assembles the relay hub process: one Hub shared by the TCP
// listener and, when enabled, the WebSocket gateway.
package server

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/omochice/socket-relay/internal/chat"
	"github.com/omochice/socket-relay/internal/config"
	"github.com/omochice/socket-relay/internal/transport/tcp"
	"github.com/omochice/socket-relay/internal/transport/ws"
)

// Server represents the relay hub with its listeners.
type Server struct {
	hub    *chat.Hub
	tcp    *tcp.Server
	ws     *ws.Server
	logger *slog.Logger
}

// New creates a Server from cfg. Options are applied after the ones derived
// from cfg, so they win.
func New(cfg config.Hub, opts ...chat.Option) *Server {
	opts = append([]chat.Option{chat.WithQueueSize(cfg.QueueSize)}, opts...)
	hub := chat.NewHub(opts...)

	s := &Server{
		hub:    hub,
		tcp:    tcp.New(cfg.Address(), hub, cfg.MaxFrame),
		logger: hub.Logger(),
	}
	if addr := cfg.WSAddress(); addr != "" {
		s.ws = ws.New(addr, hub, cfg.MaxFrame)
	}
	return s
}

// Listen binds every listener. When one fails, none stays bound and the
// error wraps transport.ErrListenerBind.
func (s *Server) Listen() error {
	if err := s.tcp.Listen(); err != nil {
		return err
	}
	if s.ws != nil {
		if err := s.ws.Listen(); err != nil {
			s.tcp.Stop()
			return err
		}
	}

	s.logger.Info("relay listening", "tcp", s.tcp.Addr())
	if s.ws != nil {
		s.logger.Info("websocket gateway listening", "addr", s.ws.Addr())
	}
	return nil
}

// Serve accepts on every listener until Stop is called. Listen is called
// first if needed.
func (s *Server) Serve() error {
	if s.Addr() == "" {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	var g errgroup.Group
	g.Go(s.tcp.Serve)
	if s.ws != nil {
		g.Go(s.ws.Serve)
	}
	return g.Wait()
}

// Start binds and serves in the background.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	if err := s.tcp.Start(); err != nil {
		return err
	}
	if s.ws != nil {
		return s.ws.Start()
	}
	return nil
}

// Stop closes the listeners, then every client, and waits for them within
// ctx.
func (s *Server) Stop(ctx context.Context) error {
	s.tcp.Stop()
	if s.ws != nil {
		s.ws.Stop()
	}
	return s.hub.Shutdown(ctx)
}

// Addr returns the TCP listening address.
func (s *Server) Addr() string {
	return s.tcp.Addr()
}

// WSAddr returns the gateway listening address, or "" when it is disabled.
func (s *Server) WSAddr() string {
	if s.ws == nil {
		return ""
	}
	return s.ws.Addr()
}

// ClientCount returns the number of connected clients on both listeners.
func (s *Server) ClientCount() int {
	return s.hub.ClientCount()
}

// Stats returns the hub counters.
func (s *Server) Stats() chat.Stats {
	return s.hub.Stats()
}
