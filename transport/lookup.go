// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package transport

import (
	"fmt"
	"net"
)

// IPv4AddrLen is the length of a resolved IPv4 address.
const IPv4AddrLen = 4

// IPAddress is a resolved numeric address plus its length tag. Only IPv4 is
// carried today, matching the constrained targets this client supports.
type IPAddress struct {
	Len  int
	Addr [IPv4AddrLen]byte
}

func (ip IPAddress) String() string {
	return net.IP(ip.Addr[:ip.Len]).String()
}

// ParseIP converts the textual form of an IPv4 address into an address
// record.
func ParseIP(s string) (IPAddress, error) {
	v4 := net.ParseIP(s).To4()
	if v4 == nil {
		return IPAddress{}, fmt.Errorf("invalid IPv4 address %q", s)
	}
	rec := IPAddress{Len: IPv4AddrLen}
	copy(rec.Addr[:], v4)
	return rec, nil
}

// Lookup resolves host to at most one IPv4 address. A numeric host is used
// as is, without a DNS query.
func Lookup(host string) ([]IPAddress, error) {
	if rec, err := ParseIP(host); err == nil {
		return []IPAddress{rec}, nil
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup for %q: %w", host, err)
	}
	for _, ip := range ips {
		v4 := ip.To4()
		if v4 == nil {
			continue
		}
		rec := IPAddress{Len: IPv4AddrLen}
		copy(rec.Addr[:], v4)
		return []IPAddress{rec}, nil
	}
	return nil, fmt.Errorf("no IPv4 address found for %q", host)
}
