// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package sdo

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// AppStart(10) -> SetCredentials(11)
//
// The device opens the ownership-transfer state machine by sending its "m"
// string, the identity blob the manufacturer builds the first ownership
// voucher from:
//
//	{
//	    "m": String
//	}
func (s *Session) appStart() error {
	m, err := s.mString()
	if err != nil {
		return &StepError{State: s.State, Err: err}
	}

	s.w.Reset()
	s.w.BeginObject()
	s.w.Tag("m")
	s.w.WriteString(m)
	s.w.EndObject()
	body, err := s.w.Bytes()
	if err != nil {
		return &StepError{State: s.State, Err: err}
	}

	if _, err := s.framer.SendMessage(ProtocolVersion, DIAppStartMsgType, body); err != nil {
		return fmt.Errorf("sending DI.AppStart: %w", err)
	}

	s.State = StateDISetCredentials
	return nil
}

// SetCredentials(11): the manufacturer answers with the ownership header
// the device credential is built from:
//
//	{
//	    "oh": { "pv": ..., "g": ..., "r": [...], "d": ..., "pk": ... }
//	}
func (s *Session) setCredentials() error {
	msgType, body, err := s.receive()
	if err != nil {
		return fmt.Errorf("receiving DI.SetCredentials: %w", err)
	}
	if msgType != DISetCredentialsMsgType {
		return fmt.Errorf("unexpected message type %d in response to DI.AppStart", msgType)
	}

	var msg struct {
		OH json.RawMessage `json:"oh"`
	}
	if err := NewReader(body).Decode(&msg); err != nil {
		return fmt.Errorf("parsing DI.SetCredentials: %w", err)
	}
	if len(msg.OH) == 0 {
		return errors.New("DI.SetCredentials missing ownership header")
	}
	var oh OwnershipHeader
	if err := json.Unmarshal(msg.OH, &oh); err != nil {
		return fmt.Errorf("parsing ownership header: %w", err)
	}

	s.Credential = DeviceCredential{
		Version:        oh.Version,
		GUID:           oh.GUID,
		DeviceInfo:     oh.DeviceInfo,
		RendezvousInfo: oh.RendezvousInfo,
		PublicKeyHash:  oh.PublicKeyHash,
	}
	// The HMAC in the next step covers the header exactly as received.
	s.ohBytes = bytes.Clone(msg.OH)

	s.State = StateDISetHmac
	return nil
}

// SetHMAC(12) -> Done(13)
//
// The device binds itself to the ownership header by keying a mac over the
// header bytes with its hmac secret:
//
//	{
//	    "hmac": String (base64)
//	}
func (s *Session) setHmac() error {
	if len(s.HmacSecret) == 0 {
		return &StepError{State: s.State, Err: errors.New("hmac secret not provisioned")}
	}

	mac := hmac.New(sha256.New, s.HmacSecret)
	mac.Write(s.ohBytes)

	s.w.Reset()
	s.w.BeginObject()
	s.w.Tag("hmac")
	s.w.WriteBytes(mac.Sum(nil))
	s.w.EndObject()
	body, err := s.w.Bytes()
	if err != nil {
		return &StepError{State: s.State, Err: err}
	}

	if _, err := s.framer.SendMessage(ProtocolVersion, DISetHmacMsgType, body); err != nil {
		return fmt.Errorf("sending DI.SetHMAC: %w", err)
	}

	s.State = StateDIDone
	return nil
}

// Done(13): manufacturer acknowledgment, the credential becomes usable.
func (s *Session) diDone() error {
	msgType, _, err := s.receive()
	if err != nil {
		return fmt.Errorf("receiving DI.Done: %w", err)
	}
	if msgType != DIDoneMsgType {
		return fmt.Errorf("unexpected message type %d in response to DI.SetHMAC", msgType)
	}

	slog.Info("device initialize complete", "guid", s.Credential.GUID)
	s.State = StateDone
	return nil
}
