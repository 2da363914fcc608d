// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package rest_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/secure-device-onboard/go-sdo/rest"
)

func TestBuildHeader(t *testing.T) {
	t.Run("is deterministic", func(t *testing.T) {
		ctx := rest.Context{ProtocolVersion: 113, MessageType: 10, ContentLength: 42}
		first, err := ctx.BuildHeader()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := ctx.BuildHeader()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first != second {
			t.Errorf("header construction not idempotent:\n%q\n%q", first, second)
		}
	})

	t.Run("layout", func(t *testing.T) {
		ctx := rest.Context{ProtocolVersion: 113, MessageType: 10, ContentLength: 9}
		hdr, err := ctx.BuildHeader()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(hdr, "POST /mp/113/msg/10 HTTP/1.1\r\n") {
			t.Errorf("bad request line: %q", hdr)
		}
		if !strings.Contains(hdr, "Content-Length:9\r\n") {
			t.Errorf("missing content length: %q", hdr)
		}
		if !strings.HasSuffix(hdr, "\r\n\r\n") {
			t.Errorf("missing header/body separator: %q", hdr)
		}
	})

	t.Run("rejects unset version", func(t *testing.T) {
		ctx := rest.Context{MessageType: 10, ContentLength: 1}
		if _, err := ctx.BuildHeader(); !errors.Is(err, rest.ErrHeaderMalformed) {
			t.Errorf("expected ErrHeaderMalformed, got %v", err)
		}
	})

	t.Run("rejects oversized body", func(t *testing.T) {
		ctx := rest.Context{ProtocolVersion: 113, MessageType: 10, ContentLength: rest.MaxBodySize + 1}
		if _, err := ctx.BuildHeader(); !errors.Is(err, rest.ErrHeaderMalformed) {
			t.Errorf("expected ErrHeaderMalformed, got %v", err)
		}
	})
}

func TestParseHeader(t *testing.T) {
	t.Run("request form", func(t *testing.T) {
		var ctx rest.Context
		hdr := "POST /mp/113/msg/10 HTTP/1.1\nContent-Type:application/json\nContent-Length:17\n"
		if err := rest.ParseHeader(hdr, &ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ctx.ProtocolVersion != 113 || ctx.MessageType != 10 || ctx.ContentLength != 17 {
			t.Errorf("bad context: %+v", ctx)
		}
	})

	t.Run("response form with message type", func(t *testing.T) {
		ctx := rest.Context{ProtocolVersion: 113, MessageType: 10}
		hdr := "HTTP/1.1 200 OK\nContent-Length:5\nMessage-Type:11\n"
		if err := rest.ParseHeader(hdr, &ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ctx.ProtocolVersion != 113 || ctx.MessageType != 11 || ctx.ContentLength != 5 {
			t.Errorf("bad context: %+v", ctx)
		}
	})

	t.Run("response without message type keeps context value", func(t *testing.T) {
		ctx := rest.Context{ProtocolVersion: 113, MessageType: 12}
		hdr := "HTTP/1.1 200 OK\nContent-Length:0\n"
		if err := rest.ParseHeader(hdr, &ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ctx.MessageType != 12 {
			t.Errorf("message type changed: %+v", ctx)
		}
	})

	t.Run("failures", func(t *testing.T) {
		for name, hdr := range map[string]string{
			"missing content length": "POST /mp/113/msg/10 HTTP/1.1\n",
			"bad content length":     "Content-Length:many\n",
			"negative length":        "Content-Length:-1\n",
			"bad status":             "HTTP/1.1 500 Internal Server Error\nContent-Length:0\n",
			"bad request path":       "POST /xx/113/msg/10 HTTP/1.1\nContent-Length:0\n",
			"bad message type":       "Content-Length:0\nMessage-Type:lots\n",
		} {
			t.Run(name, func(t *testing.T) {
				var ctx rest.Context
				if err := rest.ParseHeader(hdr, &ctx); !errors.Is(err, rest.ErrHeaderMalformed) {
					t.Errorf("expected ErrHeaderMalformed, got %v", err)
				}
			})
		}
	})
}
