// Package transport holds what the TCP and WebSocket listeners share.
package transport

import (
	"errors"
	"fmt"
	"net"
)

// ErrListenerBind reports that a listening socket could not be opened.
var ErrListenerBind = errors.New("failed to bind listener")

// Listen opens a TCP listener on address. A failure is wrapped in
// ErrListenerBind.
func Listen(address string) (net.Listener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w on %s: %w", ErrListenerBind, address, err)
	}
	return ln, nil
}
