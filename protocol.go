// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package sdo

// ProtocolVersion is the wire version carried in every message header,
// encoded major*100+minor (1.13).
const ProtocolVersion uint16 = 113

// DI message types.
const (
	DIAppStartMsgType       uint8 = 10
	DISetCredentialsMsgType uint8 = 11
	DISetHmacMsgType        uint8 = 12
	DIDoneMsgType           uint8 = 13
)

// ErrorMsgType is the message type of an ErrorMessage body, sent in place
// of any expected response.
const ErrorMsgType uint8 = 255

// Protocol classifies message types by onboarding stage.
type Protocol uint8

// Protocol stages.
const (
	UnknownProtocol Protocol = iota
	DIProtocol
	TO1Protocol
	TO2Protocol
)

func (p Protocol) String() string {
	switch p {
	case DIProtocol:
		return "DI"
	case TO1Protocol:
		return "TO1"
	case TO2Protocol:
		return "TO2"
	default:
		return "unknown"
	}
}

// ProtocolOf returns the stage a message type belongs to.
func ProtocolOf(msgType uint8) Protocol {
	switch {
	case msgType >= 10 && msgType <= 13:
		return DIProtocol
	case msgType >= 30 && msgType <= 33:
		return TO1Protocol
	case msgType >= 40 && msgType <= 50:
		return TO2Protocol
	default:
		return UnknownProtocol
	}
}

// State enumerates the protocol session states, one per numbered message.
// States advance strictly forward; no state is revisited except by starting
// a fresh session after a fatal error.
type State uint8

// Session states. TO1/TO2 states follow DI in the state table but are not
// driven by this client yet.
const (
	StateDIAppStart State = iota
	StateDISetCredentials
	StateDISetHmac
	StateDIDone
	StateTO1HelloSDO
	StateTO2HelloDevice
	StateDone
	// StateError is terminal, entered when the peer reports a protocol
	// error. Only a fresh session leaves it.
	StateError
)

func (s State) String() string {
	switch s {
	case StateDIAppStart:
		return "DI.AppStart"
	case StateDISetCredentials:
		return "DI.SetCredentials"
	case StateDISetHmac:
		return "DI.SetHMAC"
	case StateDIDone:
		return "DI.Done"
	case StateTO1HelloSDO:
		return "TO1.HelloSDO"
	case StateTO2HelloDevice:
		return "TO2.HelloDevice"
	case StateDone:
		return "Done"
	case StateError:
		return "Error"
	default:
		return "unknown"
	}
}
