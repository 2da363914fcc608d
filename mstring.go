// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package sdo

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Public key type identifiers carried in the m-string.
const (
	KeyTypeRSA      uint8 = 1
	KeyTypeECDSA256 uint8 = 13
	KeyTypeEPID20   uint8 = 92
)

// mStringSep separates m-string fields, matching the NUL-delimited layout
// the manufacturer parses.
const mStringSep = "\x00"

// mString assembles the device identity blob for DI.AppStart. A configured
// device-resident file is used verbatim (a CSR in most deployments);
// otherwise the blob is built from the key type, serial and model, with a
// test signature over the identity appended when a signer is available.
func (s *Session) mString() (string, error) {
	if s.MStringPath != "" {
		raw, err := os.ReadFile(s.MStringPath)
		if err != nil {
			return "", fmt.Errorf("reading m-string file: %w", err)
		}
		return string(raw), nil
	}

	if s.Serial == "" || s.Model == "" {
		return "", errors.New("device serial and model required to build m-string")
	}

	keyType := KeyTypeECDSA256
	if s.Signer != nil {
		keyType = KeyTypeEPID20
	}
	fields := []string{strconv.Itoa(int(keyType)), s.Serial, s.Model}

	if s.Signer != nil {
		sig, err := s.Signer.Sign([]byte(s.Serial + mStringSep + s.Model))
		if err != nil {
			return "", fmt.Errorf("signing device identity: %w", err)
		}
		fields = append(fields, base64.StdEncoding.EncodeToString(sig))
	}

	return strings.Join(fields, mStringSep), nil
}
