// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package epid adapts an EPID anonymous-attestation member implementation
// behind the init/sign/close lifecycle the protocol steps consume. The group
// math itself is an external collaborator supplied through the Backend
// interface; this package owns input validation, key-form dispatch, trust
// checking and teardown.
package epid

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Binary sizes of the EPID 2.0 material accepted by Init.
const (
	// GroupPubKeySize is gid plus h1, h2 and w group elements.
	GroupPubKeySize = 260
	// PrivKeySize is the full private key form, used as is.
	PrivKeySize = 132
	// CompressedPrivKeySize is the compressed form, expanded before use.
	CompressedPrivKeySize = 68
	// CACertSize is the issuing CA certificate with its ECDSA signature.
	CACertSize = 256
)

// Adapter errors.
var (
	ErrNotInitialized = errors.New("epid engine not initialized")
	ErrInvalidKeySize = errors.New("invalid private key size")
	ErrInvalidInput   = errors.New("invalid signing input")
)

// SigningError wraps a failure reported by the member implementation,
// keeping the underlying status for diagnosis.
type SigningError struct {
	Op     string
	Status error
}

func (e *SigningError) Error() string { return fmt.Sprintf("epid %s failed: %v", e.Op, e.Status) }
func (e *SigningError) Unwrap() error { return e.Status }

// Signature is an owned, length-tagged signature buffer. The caller owns it
// once returned and releases it after use; Release zeroes the contents.
type Signature struct {
	Bytes []byte
}

// Len reports the signature length in bytes.
func (s *Signature) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bytes)
}

// Release zeroes and drops the buffer. Safe on a nil or already released
// signature.
func (s *Signature) Release() {
	if s == nil {
		return
	}
	for i := range s.Bytes {
		s.Bytes[i] = 0
	}
	s.Bytes = nil
}

// Member is a signing context over one group membership.
type Member interface {
	// Sign computes a group signature over msg, honoring the signature
	// revocation list.
	Sign(msg, sigRL []byte) ([]byte, error)
	// Close releases per-member resources.
	Close() error
}

// Backend creates members and handles key-form conversion. Implementations
// wrap an EPID SDK, a TEE, or a test double. Two profiles share this
// contract: constrained targets reuse a precomputed membership blob, larger
// targets compute from scratch on every call.
type Backend interface {
	// NewMember builds a signing context. precomp, when non-nil, carries
	// the precomputed membership blob to reuse.
	NewMember(groupKey, privKey, precomp []byte) (Member, error)
	// DecompressPrivateKey expands a compressed private key against the
	// group public key.
	DecompressPrivateKey(groupKey, compressed []byte) ([]byte, error)
}

// TrustPolicy decides whether the issuing CA certificate is authorized by
// the root of trust.
type TrustPolicy interface {
	Authorized(caCert []byte) error
}

// InsecureAcceptAll preserves the historical stub check: every certificate
// passes. Production deployments must supply a real policy.
type InsecureAcceptAll struct{}

// Authorized accepts any certificate.
func (InsecureAcceptAll) Authorized([]byte) error { return nil }

// Engine is the signing service adapter. Lifecycle: Uninitialized →
// Initialized → (repeatable) Sign → Closed.
type Engine struct {
	backend Backend
	trust   TrustPolicy

	mu          sync.Mutex
	initialized bool
	groupKey    []byte
	privKey     []byte
	caCert      []byte
	sigRL       []byte
	precomp     []byte
}

// New builds an engine over the given backend. A nil trust policy falls
// back to InsecureAcceptAll, matching the original stub behavior.
func New(backend Backend, trust TrustPolicy) *Engine {
	if trust == nil {
		trust = InsecureAcceptAll{}
	}
	return &Engine{backend: backend, trust: trust}
}

// Init validates and loads the group material, leaving the engine ready to
// sign. The private key is accepted at exactly two lengths: the full
// 132-byte form is used as is, the 68-byte compressed form is expanded
// through the backend; any other length is ErrInvalidKeySize. Nothing is
// stored until every input has passed validation.
func (e *Engine) Init(groupKey, privKey, caCert, sigRL, precomp []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(groupKey) != GroupPubKeySize {
		return fmt.Errorf("group public key: expected %d bytes, got %d", GroupPubKeySize, len(groupKey))
	}
	if caCert != nil {
		if len(caCert) != CACertSize {
			return fmt.Errorf("ca certificate: expected %d bytes, got %d", CACertSize, len(caCert))
		}
		if err := e.trust.Authorized(caCert); err != nil {
			return fmt.Errorf("ca certificate not authorized: %w", err)
		}
	}

	var key []byte
	switch len(privKey) {
	case PrivKeySize:
		key = bytes.Clone(privKey)
	case CompressedPrivKeySize:
		expanded, err := e.backend.DecompressPrivateKey(groupKey, privKey)
		if err != nil {
			return &SigningError{Op: "key decompression", Status: err}
		}
		if len(expanded) != PrivKeySize {
			return fmt.Errorf("%w: decompressed to %d bytes", ErrInvalidKeySize, len(expanded))
		}
		key = expanded
	default:
		return fmt.Errorf("%w: %d bytes, accepted forms are %d and %d",
			ErrInvalidKeySize, len(privKey), PrivKeySize, CompressedPrivKeySize)
	}

	e.groupKey = bytes.Clone(groupKey)
	e.privKey = key
	e.caCert = bytes.Clone(caCert)
	e.sigRL = bytes.Clone(sigRL)
	e.precomp = bytes.Clone(precomp)
	e.initialized = true
	slog.Debug("epid engine initialized",
		"sig_rl_bytes", len(sigRL), "precomputed", precomp != nil)
	return nil
}

// Sign computes a group signature over msg and returns an owned buffer the
// caller must release. A member context is built per call, reusing the
// precomputed blob when one was provisioned. No retry is attempted here;
// retry policy belongs to the protocol step driving the engine.
func (e *Engine) Sign(msg []byte) (*Signature, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil, ErrNotInitialized
	}
	if len(msg) == 0 {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidInput)
	}

	member, err := e.backend.NewMember(e.groupKey, e.privKey, e.precomp)
	if err != nil {
		return nil, &SigningError{Op: "member setup", Status: err}
	}
	defer func() { _ = member.Close() }()

	raw, err := member.Sign(msg, e.sigRL)
	if err != nil {
		return nil, &SigningError{Op: "sign", Status: err}
	}
	return &Signature{Bytes: raw}, nil
}

// Close zeroes the in-memory private key unconditionally and drops the rest
// of the group state. Safe to call at any point in the lifecycle, any
// number of times.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.privKey {
		e.privKey[i] = 0
	}
	e.privKey = nil
	e.groupKey, e.caCert, e.sigRL, e.precomp = nil, nil, nil, nil
	e.initialized = false
}
