package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omochice/socket-relay/internal/chat"
	"github.com/omochice/socket-relay/internal/config"
	"github.com/omochice/socket-relay/internal/server"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.HubFromEnv()

	// Parse command-line flags
	flag.StringVar(&cfg.Bind, "bind", cfg.Bind, "IP address to listen on")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "TCP port to listen on")
	wsPort := flag.Int("ws-port", 0, "WebSocket gateway port (0 keeps the gateway off unless RELAY_WS_PORT is set)")
	flag.IntVar(&cfg.MaxFrame, "max-frame", cfg.MaxFrame, "Largest accepted frame payload in bytes")
	flag.IntVar(&cfg.QueueSize, "queue", cfg.QueueSize, "Outbound queue capacity per client")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	prompt := flag.Bool("prompt", false, "Ask for the listen IP and port on startup")
	flag.Parse()

	if *wsPort > 0 {
		cfg.Gateway = true
		cfg.WSPort = *wsPort
	}

	logger, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if *prompt {
		if err := config.NewPrompter(os.Stdin, os.Stdout).Hub(&cfg); err != nil {
			logger.Error("invalid input", "err", err)
			os.Exit(2)
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(2)
	}

	srv := server.New(cfg,
		chat.WithLogger(logger),
		chat.WithHooks(hooks(logger)),
	)
	if err := srv.Listen(); err != nil {
		logger.Error("failed to start server", "err", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("server error", "err", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("clients did not close in time", "err", err)
	}

	stats := srv.Stats()
	logger.Info("server stopped",
		"accepted", stats.Accepted,
		"messages", stats.MessagesIn,
		"frames_queued", stats.FramesQueued,
		"overflows", stats.Overflows,
		"protocol_errors", stats.ProtocolErrors,
	)
}

func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	return slog.New(handler), nil
}

// hooks reports connection events the way an operator console shows them.
func hooks(logger *slog.Logger) chat.Hooks {
	return chat.Hooks{
		OnConnect: func(addr string) {
			logger.Info("client connected", "addr", addr)
		},
		OnMessage: func(sender string, at time.Time, payload []byte) {
			logger.Info("received", "from", sender, "at", at.Format(time.DateTime), "text", string(payload))
		},
		OnClose: func(addr string, reason error) {
			if errors.Is(reason, chat.ErrQueueOverflow) {
				logger.Warn("slow consumer disconnected", "addr", addr, "reason", reason)
				return
			}
			attrs := []any{"addr", addr}
			if reason != nil && !errors.Is(reason, chat.ErrHubClosed) {
				attrs = append(attrs, "reason", reason)
			}
			logger.Info("client disconnected", attrs...)
		},
	}
}
