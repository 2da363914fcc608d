// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package rest frames protocol messages with a minimal HTTP-like header
// block. The wire format, in both directions, is a sequence of CRLF
// terminated header lines ended by a single empty line, followed by exactly
// Content-Length raw body bytes:
//
//	POST /mp/<protver>/msg/<msgtype> HTTP/1.1
//	Content-Type:application/json
//	Content-Length:<n>
//
//	<n body bytes>
//
// Inbound headers may instead open with a status line ("HTTP/1.1 200 OK",
// any code other than 200 is rejected) and may carry a "Message-Type:<n>"
// line identifying the response message. Lines the parser does not know are
// ignored. Bare LF line endings are accepted on the inbound path.
package rest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Framing limits.
const (
	// MaxHeaderLine bounds a single header line read from the wire.
	MaxHeaderLine = 256
	// MaxHeaderSize bounds the accumulated header block.
	MaxHeaderSize = 1024
	// MaxBodySize bounds a declared content length.
	MaxBodySize = 65535
)

// HeaderBodySeparator is the line (after CR/LF stripping) that ends the
// header block.
const HeaderBodySeparator = ""

// Framing errors.
var (
	ErrHeaderMalformed = errors.New("malformed header")
	ErrHeaderTooLarge  = errors.New("header too large")
)

// Context threads the protocol version, message type and pending content
// length between header construction and parsing for one connection. The
// original kept a process-global equivalent; here each framer owns one.
type Context struct {
	ProtocolVersion uint16
	MessageType     uint8
	ContentLength   int
}

// BuildHeader renders the outgoing header block. Identical context values
// produce byte-identical header text.
func (c *Context) BuildHeader() (string, error) {
	if c.ProtocolVersion == 0 {
		return "", fmt.Errorf("%w: protocol version unset", ErrHeaderMalformed)
	}
	if c.ContentLength < 0 || c.ContentLength > MaxBodySize {
		return "", fmt.Errorf("%w: content length %d out of range", ErrHeaderMalformed, c.ContentLength)
	}
	hdr := fmt.Sprintf("POST /mp/%d/msg/%d HTTP/1.1\r\n", c.ProtocolVersion, c.MessageType) +
		"Content-Type:application/json\r\n" +
		fmt.Sprintf("Content-Length:%d\r\n", c.ContentLength) +
		"\r\n"
	if len(hdr) > MaxHeaderSize {
		return "", fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, len(hdr))
	}
	return hdr, nil
}

// ParseHeader processes an accumulated header block (one line per newline)
// and extracts the declared content length into ctx. Request lines and
// Message-Type lines refresh the context's protocol version and message
// type as they are seen.
func ParseHeader(hdr string, ctx *Context) error {
	contentLength := -1
	for _, line := range strings.Split(hdr, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "POST "):
			ver, typ, err := parseRequestLine(line)
			if err != nil {
				return err
			}
			ctx.ProtocolVersion, ctx.MessageType = ver, typ

		case strings.HasPrefix(line, "HTTP/"):
			if err := parseStatusLine(line); err != nil {
				return err
			}

		default:
			name, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			switch strings.ToLower(strings.TrimSpace(name)) {
			case "content-length":
				n, err := strconv.Atoi(value)
				if err != nil || n < 0 || n > MaxBodySize {
					return fmt.Errorf("%w: bad content length %q", ErrHeaderMalformed, value)
				}
				contentLength = n
			case "message-type":
				typ, err := strconv.ParseUint(value, 10, 8)
				if err != nil {
					return fmt.Errorf("%w: bad message type %q", ErrHeaderMalformed, value)
				}
				ctx.MessageType = uint8(typ)
			}
		}
	}
	if contentLength < 0 {
		return fmt.Errorf("%w: missing Content-Length", ErrHeaderMalformed)
	}
	ctx.ContentLength = contentLength
	return nil
}

// parseRequestLine extracts protocol version and message type from
// "POST /mp/<protver>/msg/<msgtype> HTTP/1.1".
func parseRequestLine(line string) (uint16, uint8, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return 0, 0, fmt.Errorf("%w: bad request line %q", ErrHeaderMalformed, line)
	}
	parts := strings.Split(fields[1], "/")
	if len(parts) != 5 || parts[0] != "" || parts[1] != "mp" || parts[3] != "msg" {
		return 0, 0, fmt.Errorf("%w: bad request path %q", ErrHeaderMalformed, fields[1])
	}
	ver, err := strconv.ParseUint(parts[2], 10, 16)
	if err != nil || ver == 0 {
		return 0, 0, fmt.Errorf("%w: bad protocol version %q", ErrHeaderMalformed, parts[2])
	}
	typ, err := strconv.ParseUint(parts[4], 10, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad message type %q", ErrHeaderMalformed, parts[4])
	}
	return uint16(ver), uint8(typ), nil
}

func parseStatusLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return fmt.Errorf("%w: bad status line %q", ErrHeaderMalformed, line)
	}
	if fields[1] != "200" {
		return fmt.Errorf("%w: unexpected status %s", ErrHeaderMalformed, fields[1])
	}
	return nil
}
