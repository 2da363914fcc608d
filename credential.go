// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package sdo

import "github.com/google/uuid"

// Hash is a typed digest as carried in protocol documents.
type Hash struct {
	Algorithm string `json:"alg"`
	Value     []byte `json:"hash"`
}

// DeviceCredential is the device-held ownership credential collected during
// DI and consumed by later transfer-ownership stages. The GUID identifies
// the device until onboarding replaces it.
type DeviceCredential struct {
	Version        uint16
	GUID           uuid.UUID
	DeviceInfo     string
	RendezvousInfo []string
	PublicKeyHash  Hash
}

// OwnershipHeader is the "oh" document of DI.SetCredentials, the
// manufacturer-assigned identity the credential is built from.
type OwnershipHeader struct {
	Version        uint16    `json:"pv"`
	GUID           uuid.UUID `json:"g"`
	RendezvousInfo []string  `json:"r"`
	DeviceInfo     string    `json:"d"`
	PublicKeyHash  Hash      `json:"pk"`
}
