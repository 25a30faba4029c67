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
	"github.com/omochice/socket-relay/internal/client/tcp"
	"github.com/omochice/socket-relay/internal/config"
)

func main() {
	cfg := config.ClientFromEnv()

	// Parse command-line flags
	flag.StringVar(&cfg.Local, "local", cfg.Local, "Local IP address to bind before dialing")
	flag.StringVar(&cfg.Target, "server", cfg.Target, "Server IP address")
	flag.IntVar(&cfg.TargetPort, "port", cfg.TargetPort, "Server TCP port")
	flag.IntVar(&cfg.MaxFrame, "max-frame", cfg.MaxFrame, "Largest frame payload in bytes")
	flag.IntVar(&cfg.DialRetries, "dial-retries", cfg.DialRetries, "Extra attempts when the first dial fails")
	prompt := flag.Bool("prompt", false, "Ask for the local IP, server IP and port on startup")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *prompt {
		if err := config.NewPrompter(os.Stdin, os.Stdout).Client(&cfg); err != nil {
			logger.Error("invalid input", "err", err)
			os.Exit(2)
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := tcp.New(cfg.Address(), cfg.LocalAddress(), cfg.MaxFrame)
	notify := func(err error, next time.Duration) {
		logger.Warn("connect failed, retrying", "err", err, "retry_in", next)
	}
	if err := client.ConnectWithRetry(ctx, c, cfg.DialRetries, notify); err != nil {
		logger.Error("failed to connect to server", "err", err)
		os.Exit(1)
	}

	r := client.NewRenderer(os.Stdout)
	r.Notice("Connected from %s to server %s", c.LocalAddr(), cfg.Address())
	r.Notice("Type messages and press Enter")
	r.Notice("Type '%s' to disconnect", client.ExitCommand)

	err := client.Run(ctx, c, os.Stdin, r.Present)
	if err != nil && !errors.Is(err, client.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	r.Notice("Disconnected from server")
}
