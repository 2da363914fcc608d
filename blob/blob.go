// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package blob persists the device credential to disk as a CBOR-encoded
// blob, optionally sealed with a platform secret for devices without a
// hardware enclave.
package blob

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	sdo "github.com/secure-device-onboard/go-sdo"
)

// DeviceCredential contains all device state, including the secrets a
// hardware enclave would otherwise hold.
type DeviceCredential struct {
	// Active is set once DI completes and the credential is usable.
	Active           bool
	DeviceCredential sdo.DeviceCredential

	// HmacSecret keys the voucher-header HMAC.
	HmacSecret []byte

	// PrivateKey holds the EPID private key bytes, full or compressed
	// form.
	PrivateKey []byte
}

// Save writes the credential as a plain CBOR blob, readable only by the
// owner.
func Save(path string, dc *DeviceCredential) error {
	raw, err := cbor.Marshal(dc)
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("writing credential blob: %w", err)
	}
	return nil
}

// Load reads a plain CBOR credential blob.
func Load(path string) (*DeviceCredential, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credential blob: %w", err)
	}
	dc := new(DeviceCredential)
	if err := cbor.Unmarshal(raw, dc); err != nil {
		return nil, fmt.Errorf("decoding credential: %w", err)
	}
	return dc, nil
}
