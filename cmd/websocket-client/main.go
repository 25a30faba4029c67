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

	"github.com/omochice/socket-relay/internal/client"
	"github.com/omochice/socket-relay/internal/client/ws"
)

func main() {
	serverAddr := flag.String("server", "ws://localhost:8081", "WebSocket gateway address (e.g., ws://localhost:8081)")
	dialRetries := flag.Int("dial-retries", 0, "Extra attempts when the first dial fails")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := ws.New(*serverAddr)
	notify := func(err error, next time.Duration) {
		logger.Warn("connect failed, retrying", "err", err, "retry_in", next)
	}
	if err := client.ConnectWithRetry(ctx, c, *dialRetries, notify); err != nil {
		logger.Error("failed to connect to server", "err", err)
		os.Exit(1)
	}

	r := client.NewRenderer(os.Stdout)
	r.Notice("Connected from %s to %s", c.LocalAddr(), *serverAddr)
	r.Notice("Type '%s' to disconnect", client.ExitCommand)

	err := client.Run(ctx, c, os.Stdin, r.Present)
	if err != nil && !errors.Is(err, client.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	r.Notice("Disconnected from server")
}
