// Package protocol defines the wire format shared by server and client:
// length-prefixed UTF-8 JSON frames and the typed messages they carry.
package protocol

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Each frame is HEXLEN ':' PAYLOAD, where HEXLEN is the payload byte
// length as lowercase hex, zero-padded to 8 digits (2 * sizeof(int32)).
const (
	lenDigits = 8
	headerLen = lenDigits + 1
)

// MaxFrameSize bounds how much a single frame may carry. Anything a
// client legitimately sends is far below this.
const MaxFrameSize = 1 << 20

var (
	ErrMalformedLength = errors.New("malformed frame length")
	ErrFrameTooLarge   = errors.New("frame exceeds maximum size")
)

// EncodeFrame writes one framed payload to w.
func EncodeFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	header := fmt.Sprintf("%08x:", len(payload))
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// DecodeFrame reads exactly one framed payload from r. The length field
// is read in full before the payload, so a well-behaved peer is never
// split mid-frame. A bad length field yields ErrMalformedLength.
func DecodeFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	if header[lenDigits] != ':' {
		return nil, fmt.Errorf("%w: missing separator", ErrMalformedLength)
	}

	length, err := strconv.ParseUint(string(header[:lenDigits]), 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedLength, header[:lenDigits])
	}
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}
