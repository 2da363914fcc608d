// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package sdo

import (
	"errors"
	"fmt"

	"github.com/secure-device-onboard/go-sdo/rest"
)

// Session carries the cumulative protocol state for one onboarding run:
// the current state, the serialization cursors, the device identity, and
// the credential being assembled. A session is driven by exactly one
// goroutine; message steps execute strictly sequentially, each blocking on
// the network until its exchange completes.
type Session struct {
	// State is the current protocol state. It advances only when a step
	// succeeds.
	State State

	// Model and Serial identify the device to the manufacturer.
	Model  string
	Serial string

	// MStringPath optionally points at a device-resident identity blob
	// (a CSR in most deployments) used verbatim as the m-string.
	MStringPath string

	// Signer, when set, embeds a proof of device identity in the
	// m-string.
	Signer Signer

	// HmacSecret keys the voucher-header HMAC sent in DI.SetHMAC.
	HmacSecret []byte

	// Credential accumulates the ownership credential across steps.
	Credential DeviceCredential

	framer *rest.Framer
	w      Writer

	// Raw ownership-header document, hashed in DI.SetHMAC.
	ohBytes []byte
}

// NewSession starts a session at the top of the DI stage.
func NewSession(framer *rest.Framer) *Session {
	return &Session{State: StateDIAppStart, framer: framer}
}

// Run drives the session until a terminal state. On step failure the state
// is left unchanged and the error propagates; the caller tears the
// connection down or retries the whole step, never a partial one. The
// exception is a peer error message, which ends the protocol and parks the
// session in StateError.
func (s *Session) Run() error {
	for s.State != StateDone {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes the single step for the current state, advancing the state
// only on success.
func (s *Session) Step() error {
	switch s.State {
	case StateDIAppStart:
		return s.appStart()
	case StateDISetCredentials:
		return s.setCredentials()
	case StateDISetHmac:
		return s.setHmac()
	case StateDIDone:
		return s.diDone()
	case StateDone:
		return nil
	case StateError:
		return &StepError{State: s.State, Err: errors.New("session terminated by peer error")}
	default:
		return &StepError{State: s.State, Err: errors.New("state not driven by this client")}
	}
}

// receive reads one framed message, surfacing a peer error body as an
// ErrorMessage.
func (s *Session) receive() (uint8, []byte, error) {
	_, msgType, length, err := s.framer.ReceiveHeader()
	if err != nil {
		return 0, nil, err
	}
	body, err := s.framer.ReceiveBody(length)
	if err != nil {
		return 0, nil, err
	}
	if msgType == ErrorMsgType {
		var em ErrorMessage
		if err := NewReader(body).Decode(&em); err != nil {
			return 0, nil, fmt.Errorf("parsing peer error message: %w", err)
		}
		// The protocol is always terminated after an error message.
		s.State = StateError
		return 0, nil, em
	}
	return msgType, body, nil
}
