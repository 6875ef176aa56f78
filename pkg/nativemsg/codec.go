// Package nativemsg speaks the browser native messaging protocol: each
// message is a JSON document preceded by its length as a 32-bit unsigned
// integer in native byte order.
package nativemsg

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	// MaxOutbound is the largest message a host may send to the browser.
	MaxOutbound = 1 << 20
	// MaxInbound is the largest message the browser sends to a host.
	MaxInbound = 64 << 20
)

var ErrTooLarge = errors.New("native message too large")

// ReadMessage decodes the next message from r into v. It returns io.EOF
// when r is exhausted between messages.
func ReadMessage(r io.Reader, v any) error {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("read length: %w", err)
		}
		return err
	}

	n := binary.NativeEndian.Uint32(hdr[:])
	if n > MaxInbound {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}

// WriteMessage encodes v and writes it to w as a single frame.
func WriteMessage(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if len(body) > MaxOutbound {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(body))
	}

	frame := make([]byte, 4+len(body))
	binary.NativeEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[4:], body)

	_, err = w.Write(frame)
	return err
}
