package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocol reports a malformed frame.
	ErrProtocol = errors.New("protocol error")

	// ErrFrameTooLarge reports a frame whose length exceeds the configured maximum.
	// It is a protocol error: errors.Is(ErrFrameTooLarge, ErrProtocol) holds.
	ErrFrameTooLarge = fmt.Errorf("%w: frame too large", ErrProtocol)

	// ErrEmptyFrame reports a zero-length frame.
	ErrEmptyFrame = fmt.Errorf("%w: empty frame", ErrProtocol)

	// ErrInvalidUTF8 reports a payload that is not valid UTF-8.
	ErrInvalidUTF8 = fmt.Errorf("%w: payload is not valid UTF-8", ErrProtocol)

	// ErrConnectionClosed reports that the stream ended before a complete frame arrived.
	ErrConnectionClosed = errors.New("connection closed")
)
