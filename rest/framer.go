// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package rest

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/secure-device-onboard/go-sdo/transport"
)

// Framer translates between the raw byte stream of one connection and
// (protocol version, message type, body length) plus a body payload. The
// context it threads between the send and receive paths is guarded so
// overlapping use from multiple goroutines cannot interleave header state.
type Framer struct {
	conn *transport.Conn

	mu  sync.Mutex
	ctx Context
}

// NewFramer wraps a connection.
func NewFramer(conn *transport.Conn) *Framer {
	return &Framer{conn: conn}
}

// Conn exposes the underlying connection so the session owner can tear it
// down.
func (f *Framer) Conn() *transport.Conn { return f.conn }

// SendMessage frames and writes one protocol message, returning the number
// of body bytes written. Header and body go out as two separate writes so
// the body is never copied into a second buffer; a short or failed write of
// either is fatal and tears the connection down (inside the transport).
func (f *Framer) SendMessage(protver uint16, msgType uint8, body []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ctx.ProtocolVersion = protver
	f.ctx.MessageType = msgType
	f.ctx.ContentLength = len(body)

	hdr, err := f.ctx.BuildHeader()
	if err != nil {
		return 0, fmt.Errorf("constructing header for message %d: %w", msgType, err)
	}
	if _, err := f.conn.SendAll([]byte(hdr)); err != nil {
		return 0, fmt.Errorf("writing header for message %d: %w", msgType, err)
	}
	n, err := f.conn.SendAll(body)
	if err != nil {
		return n, fmt.Errorf("writing body for message %d: %w", msgType, err)
	}
	slog.Debug("message sent", "type", msgType, "body_bytes", n)
	return n, nil
}

// ReceiveHeader accumulates header lines until the header/body separator,
// re-terminating each with a newline for uniform parsing, then reports the
// protocol version, message type and body length of the message that
// follows. Version and type are read from the framer context, which the
// parser refreshes from any request or Message-Type line it encounters.
func (f *Framer) ReceiveHeader() (protver uint16, msgType uint8, length int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var hdr strings.Builder
	for {
		line, err := f.conn.ReceiveLine(MaxHeaderLine)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("reading header: %w", err)
		}
		if line == HeaderBodySeparator {
			break
		}
		if hdr.Len()+len(line)+1 > MaxHeaderSize {
			return 0, 0, 0, fmt.Errorf("%w: over %d bytes", ErrHeaderTooLarge, MaxHeaderSize)
		}
		hdr.WriteString(line)
		hdr.WriteByte('\n')
	}

	if err := ParseHeader(hdr.String(), &f.ctx); err != nil {
		return 0, 0, 0, err
	}
	slog.Debug("header received", "type", f.ctx.MessageType, "body_bytes", f.ctx.ContentLength)
	return f.ctx.ProtocolVersion, f.ctx.MessageType, f.ctx.ContentLength, nil
}

// ReceiveBody reads exactly length body bytes.
func (f *Framer) ReceiveBody(length int) ([]byte, error) {
	if length < 0 || length > MaxBodySize {
		return nil, fmt.Errorf("%w: body length %d out of range", ErrHeaderMalformed, length)
	}
	buf := make([]byte, length)
	if _, err := f.conn.ReceiveExact(buf); err != nil {
		return nil, fmt.Errorf("reading %d-byte body: %w", length, err)
	}
	return buf, nil
}
