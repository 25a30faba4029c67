// Package config holds runtime settings for the relay hub and its clients.
// Values start from defaults, are overridden by RELAY_* environment
// variables, then by command-line flags, and can be completed interactively.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/omochice/socket-relay/internal/chat"
	"github.com/omochice/socket-relay/pkg/protocol"
)

// ErrInvalid reports a setting that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

const (
	DefaultPort      = 8080
	DefaultWSPort    = 8081
	DefaultQueueSize = chat.DefaultQueueSize
)

// Hub holds the hub process settings.
type Hub struct {
	Bind      string
	Port      int
	Gateway   bool
	WSPort    int
	MaxFrame  int
	QueueSize int
}

// Client holds the settings of a TCP client.
type Client struct {
	Local       string
	Target      string
	TargetPort  int
	MaxFrame    int
	DialRetries int
}

// NewHub returns a Hub populated with default values.
func NewHub() Hub {
	return Hub{
		Bind:      "0.0.0.0",
		Port:      DefaultPort,
		WSPort:    DefaultWSPort,
		MaxFrame:  protocol.DefaultMaxFrame,
		QueueSize: DefaultQueueSize,
	}
}

// NewClient returns a Client populated with default values.
func NewClient() Client {
	return Client{
		Target:     "127.0.0.1",
		TargetPort: DefaultPort,
		MaxFrame:   protocol.DefaultMaxFrame,
	}
}

// HubFromEnv returns the defaults overridden by environment variables.
// Unparsable numbers keep their default. Setting RELAY_WS_PORT enables the
// WebSocket gateway.
func HubFromEnv() Hub {
	cfg := NewHub()

	if bind := os.Getenv("RELAY_BIND"); bind != "" {
		cfg.Bind = bind
	}
	if port := os.Getenv("RELAY_PORT"); port != "" {
		cfg.Port = parsePort(port, cfg.Port)
	}
	if port := os.Getenv("RELAY_WS_PORT"); port != "" {
		cfg.WSPort = parsePort(port, cfg.WSPort)
		cfg.Gateway = true
	}
	if size := os.Getenv("RELAY_MAX_FRAME"); size != "" {
		cfg.MaxFrame = parsePositive(size, cfg.MaxFrame)
	}
	if size := os.Getenv("RELAY_QUEUE_SIZE"); size != "" {
		cfg.QueueSize = parsePositive(size, cfg.QueueSize)
	}

	return cfg
}

// ClientFromEnv returns the defaults overridden by environment variables.
func ClientFromEnv() Client {
	cfg := NewClient()

	if local := os.Getenv("RELAY_LOCAL"); local != "" {
		cfg.Local = local
	}
	if target := os.Getenv("RELAY_TARGET"); target != "" {
		cfg.Target = target
	}
	if port := os.Getenv("RELAY_TARGET_PORT"); port != "" {
		cfg.TargetPort = parsePort(port, cfg.TargetPort)
	}
	if size := os.Getenv("RELAY_MAX_FRAME"); size != "" {
		cfg.MaxFrame = parsePositive(size, cfg.MaxFrame)
	}
	if retries := os.Getenv("RELAY_DIAL_RETRIES"); retries != "" {
		if n, err := strconv.Atoi(retries); err == nil && n >= 0 {
			cfg.DialRetries = n
		}
	}

	return cfg
}

// Address returns the TCP listen address.
func (h Hub) Address() string {
	return net.JoinHostPort(h.Bind, strconv.Itoa(h.Port))
}

// WSAddress returns the gateway listen address, or "" when the gateway is
// disabled.
func (h Hub) WSAddress() string {
	if !h.Gateway {
		return ""
	}
	return net.JoinHostPort(h.Bind, strconv.Itoa(h.WSPort))
}

// Validate reports every unusable setting, each wrapping ErrInvalid.
func (h Hub) Validate() error {
	var errs []error
	if h.Bind != "" && net.ParseIP(h.Bind) == nil {
		errs = append(errs, fmt.Errorf("%w: bind address %q is not an IP address", ErrInvalid, h.Bind))
	}
	if !validPort(h.Port, true) {
		errs = append(errs, fmt.Errorf("%w: port %d out of range", ErrInvalid, h.Port))
	}
	if h.Gateway {
		if !validPort(h.WSPort, true) {
			errs = append(errs, fmt.Errorf("%w: websocket port %d out of range", ErrInvalid, h.WSPort))
		} else if h.WSPort == h.Port && h.Port != 0 {
			errs = append(errs, fmt.Errorf("%w: websocket port %d is already the TCP port", ErrInvalid, h.WSPort))
		}
	}
	if h.MaxFrame <= 0 {
		errs = append(errs, fmt.Errorf("%w: max frame %d must be positive", ErrInvalid, h.MaxFrame))
	}
	if h.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: queue size %d must be positive", ErrInvalid, h.QueueSize))
	}
	return errors.Join(errs...)
}

// Address returns the hub address to dial.
func (c Client) Address() string {
	return net.JoinHostPort(c.Target, strconv.Itoa(c.TargetPort))
}

// LocalAddress returns the address to bind before dialing, or "" to let the
// system choose. The local port is always ephemeral.
func (c Client) LocalAddress() string {
	if c.Local == "" {
		return ""
	}
	return net.JoinHostPort(c.Local, "0")
}

// Validate reports every unusable setting, each wrapping ErrInvalid.
func (c Client) Validate() error {
	var errs []error
	if c.Local != "" && net.ParseIP(c.Local) == nil {
		errs = append(errs, fmt.Errorf("%w: local address %q is not an IP address", ErrInvalid, c.Local))
	}
	if c.Target == "" {
		errs = append(errs, fmt.Errorf("%w: server address is required", ErrInvalid))
	}
	if !validPort(c.TargetPort, false) {
		errs = append(errs, fmt.Errorf("%w: server port %d out of range", ErrInvalid, c.TargetPort))
	}
	if c.MaxFrame <= 0 {
		errs = append(errs, fmt.Errorf("%w: max frame %d must be positive", ErrInvalid, c.MaxFrame))
	}
	if c.DialRetries < 0 {
		errs = append(errs, fmt.Errorf("%w: dial retries %d must not be negative", ErrInvalid, c.DialRetries))
	}
	return errors.Join(errs...)
}

func validPort(port int, allowZero bool) bool {
	if port == 0 {
		return allowZero
	}
	return port > 0 && port <= 65535
}

func parsePort(value string, defaultValue int) int {
	if port, err := strconv.Atoi(value); err == nil && validPort(port, true) {
		return port
	}
	return defaultValue
}

func parsePositive(value string, defaultValue int) int {
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return n
	}
	return defaultValue
}
