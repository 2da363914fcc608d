// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package transport implements the network abstraction layer the protocol
// runs over: a single connection to a manufacturer or rendezvous service,
// carried on a plain TCP socket or a TLS session behind one read/write
// contract.
package transport

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Errors reported by connection primitives.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrShortWrite       = errors.New("short write")
)

// Conn is one device-to-server connection. TLS mode is indicated by the
// presence of a TLS session handle, not a separate flag. A Conn is not safe
// for concurrent use; the protocol performs one blocking exchange at a time.
type Conn struct {
	sock net.Conn
	tls  *tls.Conn

	// Timeout, when non-zero, bounds each individual read and write call.
	// The original client blocks indefinitely on a stalled peer.
	Timeout time.Duration

	closed bool
}

// New wraps an established network connection. A *tls.Conn is recognized
// and treated as a TLS session.
func New(conn net.Conn) *Conn {
	c := &Conn{sock: conn}
	if tc, ok := conn.(*tls.Conn); ok {
		c.tls = tc
	}
	return c
}

// Dial connects to addr:port, layering a TLS session on top when tlsConf is
// non-nil. The textual form of the numeric address is used for the TLS
// handshake. A failed TLS setup closes the socket rather than leaking a
// half-constructed session.
func Dial(addr IPAddress, port uint16, tlsConf *tls.Config) (*Conn, error) {
	hostport := net.JoinHostPort(addr.String(), strconv.Itoa(int(port)))
	sock, err := net.Dial("tcp", hostport)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", hostport, err)
	}
	if tlsConf == nil {
		return &Conn{sock: sock}, nil
	}
	tlsSock := tls.Client(sock, tlsConf)
	if err := tlsSock.Handshake(); err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("tls setup with %s: %w", hostport, err)
	}
	return &Conn{sock: sock, tls: tlsSock}, nil
}

// rw selects the TLS session when one is present.
func (c *Conn) rw() net.Conn {
	if c.tls != nil {
		return c.tls
	}
	return c.sock
}

func (c *Conn) setDeadline() {
	if c.Timeout > 0 {
		_ = c.rw().SetDeadline(time.Now().Add(c.Timeout))
	}
}

// Close tears the connection down, shutting the TLS layer before the
// underlying socket. The handle must not be used for I/O afterward.
func (c *Conn) Close() error {
	if c.closed {
		return ErrConnectionClosed
	}
	c.closed = true
	if c.tls != nil {
		// tls.Conn.Close sends the close_notify alert and then closes
		// the socket it wraps.
		return c.tls.Close()
	}
	return c.sock.Close()
}

// ReceiveExact reads until buf is full, accumulating across partial reads.
// A read that returns no data is fatal; there is no distinction between EOF
// and error at this layer.
func (c *Conn) ReceiveExact(buf []byte) (int, error) {
	if c.closed {
		return 0, ErrConnectionClosed
	}
	total := 0
	for total < len(buf) {
		c.setDeadline()
		n, err := c.rw().Read(buf[total:])
		if n <= 0 {
			if err == nil {
				err = ErrConnectionClosed
			}
			return total, fmt.Errorf("read %d/%d bytes: %w", total, len(buf), err)
		}
		total += n
	}
	return total, nil
}

// ReceiveLine reads one header line, a byte at a time, up to the line feed.
// Trailing CR/LF are stripped. A line longer than max is truncated but
// consumed through its terminator so the stream stays aligned.
func (c *Conn) ReceiveLine(max int) (string, error) {
	if c.closed {
		return "", ErrConnectionClosed
	}
	if max <= 0 {
		return "", fmt.Errorf("invalid maximum line length %d", max)
	}
	line := make([]byte, 0, 64)
	var b [1]byte
	for {
		c.setDeadline()
		n, err := c.rw().Read(b[:])
		if n <= 0 {
			if err == nil {
				err = ErrConnectionClosed
			}
			return "", fmt.Errorf("reading line: %w", err)
		}
		if b[0] == '\n' {
			break
		}
		if len(line) < max {
			line = append(line, b[0])
		}
	}
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return string(line), nil
}

// SendAll writes buf with a single underlying write call. Any short or
// failed write is fatal for this transport: the connection is closed before
// the error propagates. There is no retry-write loop.
func (c *Conn) SendAll(buf []byte) (int, error) {
	if c.closed {
		return 0, ErrConnectionClosed
	}
	if len(buf) == 0 {
		return 0, nil
	}
	c.setDeadline()
	n, err := c.rw().Write(buf)
	if err != nil || n < len(buf) {
		_ = c.Close()
		if err == nil {
			err = ErrShortWrite
		}
		return n, fmt.Errorf("wrote %d/%d bytes: %w", n, len(buf), err)
	}
	return n, nil
}
