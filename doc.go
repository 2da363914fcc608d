// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package sdo implements the device side of the Secure Device Onboard
// protocol suite. The entry point is a Session, which steps through the
// numbered messages of the Device Initialize (DI) stage over a framed
// TCP/TLS connection, provisioning the ownership credential that later
// transfer-ownership stages consume.
//
// Supporting packages: transport carries the byte stream, rest frames it
// into discrete protocol messages, epid wraps the anonymous-attestation
// signing engine, and blob persists the resulting device credential.
package sdo
