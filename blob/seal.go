// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package blob

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

const (
	sealSaltSize   = 16
	sealIterations = 10000
)

// SaveSealed writes the credential encrypted with a key derived from the
// platform secret. The file layout is salt || nonce || ciphertext.
func SaveSealed(path string, dc *DeviceCredential, secret []byte) error {
	if len(secret) == 0 {
		return errors.New("empty seal secret")
	}
	raw, err := cbor.Marshal(dc)
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}

	salt := make([]byte, sealSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating seal salt: %w", err)
	}
	aead, err := chacha20poly1305.New(sealKey(secret, salt))
	if err != nil {
		return fmt.Errorf("building seal cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating seal nonce: %w", err)
	}

	out := append(append(salt, nonce...), aead.Seal(nil, nonce, raw, nil)...)
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("writing sealed credential blob: %w", err)
	}
	return nil
}

// LoadSealed reads and unseals a credential written by SaveSealed. A wrong
// secret or a tampered blob fails authentication.
func LoadSealed(path string, secret []byte) (*DeviceCredential, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sealed credential blob: %w", err)
	}
	if len(raw) < sealSaltSize+chacha20poly1305.NonceSize {
		return nil, errors.New("sealed credential blob too short")
	}
	salt, rest := raw[:sealSaltSize], raw[sealSaltSize:]
	nonce, ciphertext := rest[:chacha20poly1305.NonceSize], rest[chacha20poly1305.NonceSize:]

	aead, err := chacha20poly1305.New(sealKey(secret, salt))
	if err != nil {
		return nil, fmt.Errorf("building seal cipher: %w", err)
	}
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("unsealing credential: %w", err)
	}

	dc := new(DeviceCredential)
	if err := cbor.Unmarshal(plain, dc); err != nil {
		return nil, fmt.Errorf("decoding credential: %w", err)
	}
	return dc, nil
}

func sealKey(secret, salt []byte) []byte {
	return pbkdf2.Key(secret, salt, sealIterations, chacha20poly1305.KeySize, sha256.New)
}
