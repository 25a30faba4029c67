package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	// HeaderSize is the size of the length prefix.
	HeaderSize = 4

	// DefaultMaxFrame is the largest payload accepted unless configured otherwise.
	DefaultMaxFrame = 65536
)

// EncodeFrame returns payload prefixed with its big-endian uint32 length.
func EncodeFrame(payload []byte, max int) ([]byte, error) {
	if err := ValidatePayload(payload, max); err != nil {
		return nil, err
	}
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// WriteFrame encodes payload and writes it with a single Write call.
func WriteFrame(w io.Writer, payload []byte, max int) error {
	buf, err := EncodeFrame(payload, max)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// ReadFrame reads exactly one frame from r and returns its payload.
// It never returns a partial payload.
func ReadFrame(r io.Reader, max int) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, closedOr(err)
	}

	n := binary.BigEndian.Uint32(header[:])
	switch {
	case n == 0:
		return nil, ErrEmptyFrame
	case uint64(n) > uint64(max):
		return nil, fmt.Errorf("%w: declared length %d exceeds %d", ErrFrameTooLarge, n, max)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, closedOr(err)
	}
	if !utf8.Valid(payload) {
		return nil, ErrInvalidUTF8
	}
	return payload, nil
}

// ValidatePayload reports whether payload may be sent as one frame of at most
// max bytes.
func ValidatePayload(payload []byte, max int) error {
	switch {
	case len(payload) == 0:
		return ErrEmptyFrame
	case len(payload) > max:
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrFrameTooLarge, len(payload), max)
	case !utf8.Valid(payload):
		return ErrInvalidUTF8
	}
	return nil
}

// closedOr maps end-of-stream errors to ErrConnectionClosed and keeps the cause.
func closedOr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}
	return err
}

// Reader reads frames of at most Max bytes from an underlying stream.
type Reader struct {
	r   io.Reader
	Max int
}

// NewReader wraps r. A non-positive max selects DefaultMaxFrame.
func NewReader(r io.Reader, max int) *Reader {
	if max <= 0 {
		max = DefaultMaxFrame
	}
	return &Reader{r: r, Max: max}
}

// ReadFrame reads the next frame.
func (fr *Reader) ReadFrame() ([]byte, error) {
	return ReadFrame(fr.r, fr.Max)
}

// Writer writes frames of at most Max bytes to an underlying stream.
// It is not safe for concurrent use.
type Writer struct {
	w   io.Writer
	Max int
}

// NewWriter wraps w. A non-positive max selects DefaultMaxFrame.
func NewWriter(w io.Writer, max int) *Writer {
	if max <= 0 {
		max = DefaultMaxFrame
	}
	return &Writer{w: w, Max: max}
}

// WriteFrame writes payload as one frame.
func (fw *Writer) WriteFrame(payload []byte) error {
	return WriteFrame(fw.w, payload, fw.Max)
}
