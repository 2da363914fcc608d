// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package sdo

import "fmt"

// Error codes carried in an ErrorMessage body.
const (
	// Message body is structurally unsound: parse error, or valid JSON
	// that does not map to the expected document.
	MessageBodyErrCode = 100

	// Message structurally sound but failed validation: hash or mac did
	// not verify, unexpected field values.
	InvalidMessageErrCode = 101

	// Something went wrong which could not be classified otherwise.
	InternalServerErrCode = 500
)

// ErrorMessage is the body of message type 255. The protocol is always
// terminated after an error message; it carries just enough context to
// diagnose the failure without exposing security details.
type ErrorMessage struct {
	Code        uint16 `json:"ec"`
	PrevMsgType uint8  `json:"emsg"`
	ErrString   string `json:"em"`
}

// Error implements the standard error interface.
func (e ErrorMessage) Error() string {
	return fmt.Sprintf("sdo error [code=%d,prevMsgType=%d] %s", e.Code, e.PrevMsgType, e.ErrString)
}

// StepError reports a protocol step that failed before any message
// exchange, on a bad local resource such as a missing file or unprovisioned
// secret. The session state is left unchanged; the caller decides whether
// to abort or retry the whole step.
type StepError struct {
	State State
	Err   error
}

func (e *StepError) Error() string { return fmt.Sprintf("step %s: %v", e.State, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }
