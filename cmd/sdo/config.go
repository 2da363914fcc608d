// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

type config struct {
	Device       deviceConfig       `toml:"device"`
	Manufacturer manufacturerConfig `toml:"manufacturer"`
	EPID         epidConfig         `toml:"epid"`
}

type deviceConfig struct {
	Model  string `toml:"model"`
	Serial string `toml:"serial"`

	// Credential is where the device credential blob is persisted.
	Credential string `toml:"credential"`

	// MString optionally points at a device-resident identity blob used
	// verbatim instead of the assembled key-type/serial/model form.
	MString string `toml:"mstring"`

	// SealSecret, when set, encrypts the credential blob at rest.
	SealSecret string `toml:"seal_secret"`
}

type manufacturerConfig struct {
	Host          string   `toml:"host"`
	Port          uint16   `toml:"port"`
	TLS           bool     `toml:"tls"`
	TLSSkipVerify bool     `toml:"tls_skip_verify"`
	Timeout       duration `toml:"timeout"`
}

// epidConfig holds paths to the EPID group material. All fields are
// optional; an empty private key path disables EPID signing.
type epidConfig struct {
	GroupKey   string `toml:"group_key"`
	PrivateKey string `toml:"private_key"`
	CACert     string `toml:"cacert"`
	SigRL      string `toml:"sigrl"`
	Precomp    string `toml:"precomp"`
}

// duration wraps time.Duration for TOML string values like "30s".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func loadConfig(path string) (*config, error) {
	cfg := &config{
		Device: deviceConfig{
			Credential: "sdo.blob",
		},
		Manufacturer: manufacturerConfig{
			Port:    8039,
			Timeout: duration{30 * time.Second},
		},
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	if cfg.Manufacturer.Host == "" {
		return nil, errors.New("config: manufacturer host required")
	}
	if cfg.Device.MString == "" && (cfg.Device.Model == "" || cfg.Device.Serial == "") {
		return nil, errors.New("config: device model and serial required without an mstring file")
	}
	return cfg, nil
}
