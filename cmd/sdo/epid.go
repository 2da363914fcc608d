// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/secure-device-onboard/go-sdo/epid"
)

// epidBackend supplies the EPID group math. It stays nil in the portable
// build; a platform build assigns its member implementation (SDK binding or
// TEE proxy) from its own init.
var epidBackend epid.Backend

// epidTrust overrides the certificate check for the issuing CA. Nil keeps
// the accept-all default.
var epidTrust epid.TrustPolicy

// newEPIDEngine loads the configured group material into a ready-to-sign
// engine and also returns the raw private key bytes for credential
// persistence.
func newEPIDEngine(cfg *epidConfig) (*epid.Engine, []byte, error) {
	if epidBackend == nil {
		return nil, nil, errors.New("epid configured but no backend linked into this build")
	}

	groupKey, err := os.ReadFile(cfg.GroupKey)
	if err != nil {
		return nil, nil, fmt.Errorf("reading group public key: %w", err)
	}
	privKey, err := os.ReadFile(cfg.PrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("reading private key: %w", err)
	}
	caCert, err := readOptional(cfg.CACert)
	if err != nil {
		return nil, nil, fmt.Errorf("reading ca certificate: %w", err)
	}
	sigRL, err := readOptional(cfg.SigRL)
	if err != nil {
		return nil, nil, fmt.Errorf("reading signature revocation list: %w", err)
	}
	precomp, err := readOptional(cfg.Precomp)
	if err != nil {
		return nil, nil, fmt.Errorf("reading precomputed membership blob: %w", err)
	}

	engine := epid.New(epidBackend, epidTrust)
	if err := engine.Init(groupKey, privKey, caCert, sigRL, precomp); err != nil {
		return nil, nil, err
	}
	return engine, privKey, nil
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}
