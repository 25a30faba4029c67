package chat

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultQueueSize        = 256
	DefaultWriteTimeout     = 10 * time.Second
	DefaultDrainTimeout     = time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

type options struct {
	queueSize        int
	writeTimeout     time.Duration
	drainTimeout     time.Duration
	handshakeTimeout time.Duration
	hooks            Hooks
	logger           *slog.Logger
	now              func() time.Time
	newID            func() string
}

func defaultOptions() options {
	return options{
		queueSize:        DefaultQueueSize,
		writeTimeout:     DefaultWriteTimeout,
		drainTimeout:     DefaultDrainTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		logger:           slog.Default(),
		now:              time.Now,
		newID:            uuid.NewString,
	}
}

// Option configures a Hub.
type Option func(*options)

// WithQueueSize sets the per-client outbound queue capacity.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithWriteTimeout bounds every write to a peer.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// WithDrainTimeout bounds how long a closing client keeps flushing its queue.
func WithDrainTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.drainTimeout = d
		}
	}
}

// WithHandshakeTimeout bounds the transport handshake of an accepted socket.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.handshakeTimeout = d
		}
	}
}

// WithHooks installs presentation hooks.
func WithHooks(h Hooks) Option {
	return func(o *options) { o.hooks = h }
}

// WithLogger sets the logger for internal diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now for broadcast timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator replaces the random client id generator.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) {
		if gen != nil {
			o.newID = gen
		}
	}
}
