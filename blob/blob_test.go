// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package blob_test

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/uuid"

	sdo "github.com/secure-device-onboard/go-sdo"
	"github.com/secure-device-onboard/go-sdo/blob"
)

func testCredential() *blob.DeviceCredential {
	return &blob.DeviceCredential{
		Active: true,
		DeviceCredential: sdo.DeviceCredential{
			Version:        113,
			GUID:           uuid.MustParse("8d28eb55-4bf6-44e7-8a3e-12ad15af415a"),
			DeviceInfo:     "sdo-f32m7",
			RendezvousInfo: []string{"rv.example.com:8040"},
			PublicKeyHash:  sdo.Hash{Algorithm: "SHA256", Value: bytes.Repeat([]byte{0xcc}, 32)},
		},
		HmacSecret: bytes.Repeat([]byte{0x5a}, 32),
		PrivateKey: bytes.Repeat([]byte{0x42}, 68),
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cred.blob")
	want := testCredential()

	if err := blob.Save(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := blob.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("credential mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestSaveLoadSealed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cred.sealed")
	secret := []byte("platform secret")
	want := testCredential()

	if err := blob.SaveSealed(path, want, secret); err != nil {
		t.Fatalf("save sealed: %v", err)
	}

	t.Run("round trip", func(t *testing.T) {
		got, err := blob.LoadSealed(path, secret)
		if err != nil {
			t.Fatalf("load sealed: %v", err)
		}
		if !reflect.DeepEqual(want, got) {
			t.Errorf("credential mismatch:\nwant %+v\ngot  %+v", want, got)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		if _, err := blob.LoadSealed(path, []byte("wrong")); err == nil {
			t.Error("expected unseal failure with wrong secret")
		}
	})

	t.Run("tampered blob", func(t *testing.T) {
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		raw[len(raw)-1] ^= 0xff
		tampered := filepath.Join(t.TempDir(), "tampered")
		if err := os.WriteFile(tampered, raw, 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := blob.LoadSealed(tampered, secret); err == nil {
			t.Error("expected unseal failure on tampered blob")
		}
	})

	t.Run("rejects empty secret", func(t *testing.T) {
		if err := blob.SaveSealed(path, want, nil); err == nil {
			t.Error("expected error for empty secret")
		}
	})
}
