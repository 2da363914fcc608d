// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package main

import (
	"crypto/rand"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"

	sdo "github.com/secure-device-onboard/go-sdo"
	"github.com/secure-device-onboard/go-sdo/blob"
	"github.com/secure-device-onboard/go-sdo/rest"
	"github.com/secure-device-onboard/go-sdo/transport"
)

var (
	diFlags   = flag.NewFlagSet("di", flag.ContinueOnError)
	showFlags = flag.NewFlagSet("show", flag.ContinueOnError)
)

var (
	diConfigPath   string
	showConfigPath string
)

func init() {
	diFlags.StringVar(&diConfigPath, "config", "sdo.toml", "Path to TOML configuration file")
	showFlags.StringVar(&showConfigPath, "config", "sdo.toml", "Path to TOML configuration file")
}

// deviceInitialize runs the DI stage against the configured manufacturer and
// persists the resulting credential.
func deviceInitialize() error {
	cfg, err := loadConfig(diConfigPath)
	if err != nil {
		return err
	}

	addrs, err := transport.Lookup(cfg.Manufacturer.Host)
	if err != nil {
		return fmt.Errorf("resolving manufacturer host: %w", err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("no IPv4 address for manufacturer host %s", cfg.Manufacturer.Host)
	}

	var tlsConf *tls.Config
	if cfg.Manufacturer.TLS {
		tlsConf = &tls.Config{
			ServerName:         cfg.Manufacturer.Host,
			InsecureSkipVerify: cfg.Manufacturer.TLSSkipVerify,
		}
	}
	conn, err := transport.Dial(addrs[0], cfg.Manufacturer.Port, tlsConf)
	if err != nil {
		return fmt.Errorf("connecting to manufacturer: %w", err)
	}
	defer func() { _ = conn.Close() }()
	conn.Timeout = cfg.Manufacturer.Timeout.Duration
	slog.Info("connected to manufacturer",
		"addr", addrs[0], "port", cfg.Manufacturer.Port, "tls", cfg.Manufacturer.TLS)

	sess := sdo.NewSession(rest.NewFramer(conn))
	sess.Model = cfg.Device.Model
	sess.Serial = cfg.Device.Serial
	sess.MStringPath = cfg.Device.MString

	// Each DI run establishes a fresh credential under a fresh hmac secret.
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("generating hmac secret: %w", err)
	}
	sess.HmacSecret = secret

	var privKey []byte
	if cfg.EPID.PrivateKey != "" {
		engine, key, err := newEPIDEngine(&cfg.EPID)
		if err != nil {
			return fmt.Errorf("setting up epid signing: %w", err)
		}
		defer engine.Close()
		sess.Signer = sdo.EPIDSigner{Engine: engine}
		privKey = key
	}

	if err := sess.Run(); err != nil {
		return fmt.Errorf("device initialize: %w", err)
	}

	dc := &blob.DeviceCredential{
		Active:           true,
		DeviceCredential: sess.Credential,
		HmacSecret:       secret,
		PrivateKey:       privKey,
	}
	if err := saveCredential(cfg, dc); err != nil {
		return err
	}
	slog.Info("credential persisted", "path", cfg.Device.Credential, "guid", dc.DeviceCredential.GUID)
	return nil
}

// show prints the persisted credential.
func show() error {
	cfg, err := loadConfig(showConfigPath)
	if err != nil {
		return err
	}
	dc, err := loadCredential(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Active:          %t\n", dc.Active)
	fmt.Printf("Version:         %d\n", dc.DeviceCredential.Version)
	fmt.Printf("GUID:            %s\n", dc.DeviceCredential.GUID)
	fmt.Printf("Device info:     %s\n", dc.DeviceCredential.DeviceInfo)
	fmt.Printf("Rendezvous info: %v\n", dc.DeviceCredential.RendezvousInfo)
	fmt.Printf("Public key hash: %s:%x\n",
		dc.DeviceCredential.PublicKeyHash.Algorithm, dc.DeviceCredential.PublicKeyHash.Value)
	return nil
}

func saveCredential(cfg *config, dc *blob.DeviceCredential) error {
	if cfg.Device.SealSecret != "" {
		return blob.SaveSealed(cfg.Device.Credential, dc, []byte(cfg.Device.SealSecret))
	}
	return blob.Save(cfg.Device.Credential, dc)
}

func loadCredential(cfg *config) (*blob.DeviceCredential, error) {
	if cfg.Device.SealSecret != "" {
		return blob.LoadSealed(cfg.Device.Credential, []byte(cfg.Device.SealSecret))
	}
	return blob.Load(cfg.Device.Credential)
}
