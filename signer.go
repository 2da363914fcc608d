// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package sdo

import (
	"bytes"

	"github.com/secure-device-onboard/go-sdo/epid"
)

// Signer proves device identity during protocol steps that require it.
type Signer interface {
	Sign(data []byte) ([]byte, error)
}

// EPIDSigner adapts an epid.Engine to the Signer contract, copying the
// signature out of the engine-owned buffer and releasing it.
type EPIDSigner struct {
	Engine *epid.Engine
}

var _ Signer = EPIDSigner{}

// Sign computes a group signature over data.
func (s EPIDSigner) Sign(data []byte) ([]byte, error) {
	sig, err := s.Engine.Sign(data)
	if err != nil {
		return nil, err
	}
	defer sig.Release()
	return bytes.Clone(sig.Bytes), nil
}
