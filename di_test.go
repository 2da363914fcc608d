// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package sdo_test

import (
	"bufio"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"

	sdo "github.com/secure-device-onboard/go-sdo"
	"github.com/secure-device-onboard/go-sdo/rest"
	"github.com/secure-device-onboard/go-sdo/transport"
)

// manufacturer scripts one side of a net.Pipe as the DI server. It runs on
// the test goroutine so assertions can fail the test directly; the session
// under test runs in its own goroutine.
type manufacturer struct {
	t *testing.T
	r *bufio.Reader
	w io.Writer
}

func newManufacturer(t *testing.T, conn net.Conn) *manufacturer {
	t.Helper()
	return &manufacturer{t: t, r: bufio.NewReader(conn), w: conn}
}

// readRequest parses one framed device request.
func (m *manufacturer) readRequest() (msgType uint8, body []byte) {
	m.t.Helper()

	contentLength := -1
	sawRequestLine := false
	for {
		line, err := m.r.ReadString('\n')
		if err != nil {
			m.t.Fatalf("reading request header line: %v", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if target, ok := strings.CutPrefix(line, "POST /mp/"); ok {
			parts := strings.Split(strings.TrimSuffix(target, " HTTP/1.1"), "/")
			if len(parts) != 3 || parts[1] != "msg" {
				m.t.Fatalf("malformed request line %q", line)
			}
			if parts[0] != strconv.Itoa(int(sdo.ProtocolVersion)) {
				m.t.Fatalf("expected protocol version %d, got %q", sdo.ProtocolVersion, parts[0])
			}
			n, err := strconv.Atoi(parts[2])
			if err != nil {
				m.t.Fatalf("malformed message type in %q", line)
			}
			msgType = uint8(n)
			sawRequestLine = true
			continue
		}
		if v, ok := strings.CutPrefix(line, "Content-Length:"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				m.t.Fatalf("malformed Content-Length %q", v)
			}
			contentLength = n
		}
	}
	if !sawRequestLine {
		m.t.Fatal("request header missing request line")
	}
	if contentLength < 0 {
		m.t.Fatal("request header missing Content-Length")
	}

	body = make([]byte, contentLength)
	if _, err := io.ReadFull(m.r, body); err != nil {
		m.t.Fatalf("reading request body: %v", err)
	}
	return msgType, body
}

// respond writes one framed response.
func (m *manufacturer) respond(msgType uint8, body []byte) {
	m.t.Helper()
	hdr := fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Length:%d\r\nMessage-Type:%d\r\n\r\n",
		len(body), msgType)
	if _, err := m.w.Write([]byte(hdr)); err != nil {
		m.t.Fatalf("writing response header: %v", err)
	}
	if _, err := m.w.Write(body); err != nil {
		m.t.Fatalf("writing response body: %v", err)
	}
}

func pipeSession(t *testing.T) (*sdo.Session, *manufacturer) {
	t.Helper()
	device, server := net.Pipe()
	t.Cleanup(func() {
		_ = device.Close()
		_ = server.Close()
	})
	sess := sdo.NewSession(rest.NewFramer(transport.New(device)))
	sess.Model = "sdo-f32m7"
	sess.Serial = "f32m7-1234"
	return sess, newManufacturer(t, server)
}

func testOwnershipHeader() sdo.OwnershipHeader {
	return sdo.OwnershipHeader{
		Version:        113,
		GUID:           uuid.MustParse("8d28eb55-4bf6-44e7-8a3e-12ad15af415a"),
		RendezvousInfo: []string{"rv.example.com:8040"},
		DeviceInfo:     "sdo-f32m7",
		PublicKeyHash:  sdo.Hash{Algorithm: "SHA256", Value: []byte{0xcc, 0xdd}},
	}
}

func TestAppStartAdvancesState(t *testing.T) {
	sess, mfg := pipeSession(t)

	errc := make(chan error, 1)
	go func() { errc <- sess.Step() }()

	msgType, body := mfg.readRequest()
	if msgType != sdo.DIAppStartMsgType {
		t.Errorf("expected message type %d, got %d", sdo.DIAppStartMsgType, msgType)
	}
	var msg struct {
		M string `json:"m"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("parsing AppStart body %q: %v", body, err)
	}
	fields := strings.Split(msg.M, "\x00")
	if len(fields) != 3 {
		t.Fatalf("expected 3 m-string fields, got %d in %q", len(fields), msg.M)
	}
	if fields[1] != "f32m7-1234" || fields[2] != "sdo-f32m7" {
		t.Errorf("wrong identity in m-string %q", msg.M)
	}

	if err := <-errc; err != nil {
		t.Fatalf("step: %v", err)
	}
	if sess.State != sdo.StateDISetCredentials {
		t.Errorf("expected state %s, got %s", sdo.StateDISetCredentials, sess.State)
	}
}

func TestDISession(t *testing.T) {
	sess, mfg := pipeSession(t)
	sess.HmacSecret = []byte("0123456789abcdef0123456789abcdef")

	errc := make(chan error, 1)
	go func() { errc <- sess.Run() }()

	// AppStart.
	msgType, _ := mfg.readRequest()
	if msgType != sdo.DIAppStartMsgType {
		t.Errorf("expected message type %d, got %d", sdo.DIAppStartMsgType, msgType)
	}

	// SetCredentials.
	oh := testOwnershipHeader()
	ohRaw, err := json.Marshal(oh)
	if err != nil {
		t.Fatalf("encoding ownership header: %v", err)
	}
	mfg.respond(sdo.DISetCredentialsMsgType, []byte(`{"oh":`+string(ohRaw)+`}`))

	// SetHMAC must cover the header bytes exactly as sent.
	msgType, body := mfg.readRequest()
	if msgType != sdo.DISetHmacMsgType {
		t.Errorf("expected message type %d, got %d", sdo.DISetHmacMsgType, msgType)
	}
	var macMsg struct {
		Hmac string `json:"hmac"`
	}
	if err := json.Unmarshal(body, &macMsg); err != nil {
		t.Fatalf("parsing SetHMAC body %q: %v", body, err)
	}
	got, err := base64.StdEncoding.DecodeString(macMsg.Hmac)
	if err != nil {
		t.Fatalf("decoding hmac %q: %v", macMsg.Hmac, err)
	}
	mac := hmac.New(sha256.New, sess.HmacSecret)
	mac.Write(ohRaw)
	if !hmac.Equal(got, mac.Sum(nil)) {
		t.Error("hmac does not cover the ownership header as sent")
	}

	// Done.
	mfg.respond(sdo.DIDoneMsgType, []byte("{}"))

	if err := <-errc; err != nil {
		t.Fatalf("session: %v", err)
	}
	if sess.State != sdo.StateDone {
		t.Errorf("expected state %s, got %s", sdo.StateDone, sess.State)
	}
	if sess.Credential.GUID != oh.GUID {
		t.Errorf("expected credential GUID %s, got %s", oh.GUID, sess.Credential.GUID)
	}
	if sess.Credential.Version != oh.Version || sess.Credential.DeviceInfo != oh.DeviceInfo {
		t.Errorf("credential does not match ownership header: %+v", sess.Credential)
	}
}

type fakeSigner struct{ sig []byte }

func (f fakeSigner) Sign([]byte) ([]byte, error) { return f.sig, nil }

func TestAppStartWithSigner(t *testing.T) {
	sess, mfg := pipeSession(t)
	sess.Signer = fakeSigner{sig: []byte{0xaa, 0xbb}}

	errc := make(chan error, 1)
	go func() { errc <- sess.Step() }()

	_, body := mfg.readRequest()
	var msg struct {
		M string `json:"m"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("parsing AppStart body %q: %v", body, err)
	}
	fields := strings.Split(msg.M, "\x00")
	if len(fields) != 4 {
		t.Fatalf("expected 4 m-string fields with signer, got %d in %q", len(fields), msg.M)
	}
	if fields[0] != strconv.Itoa(int(sdo.KeyTypeEPID20)) {
		t.Errorf("expected key type %d with signer, got %q", sdo.KeyTypeEPID20, fields[0])
	}
	if fields[3] != base64.StdEncoding.EncodeToString([]byte{0xaa, 0xbb}) {
		t.Errorf("wrong test signature field %q", fields[3])
	}

	if err := <-errc; err != nil {
		t.Fatalf("step: %v", err)
	}
}

func TestAppStartFromFile(t *testing.T) {
	sess, mfg := pipeSession(t)
	path := filepath.Join(t.TempDir(), "mstring")
	if err := os.WriteFile(path, []byte("-----BEGIN CERTIFICATE REQUEST-----"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	sess.MStringPath = path

	errc := make(chan error, 1)
	go func() { errc <- sess.Step() }()

	_, body := mfg.readRequest()
	var msg struct {
		M string `json:"m"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("parsing AppStart body %q: %v", body, err)
	}
	if msg.M != "-----BEGIN CERTIFICATE REQUEST-----" {
		t.Errorf("m-string file not used verbatim: %q", msg.M)
	}

	if err := <-errc; err != nil {
		t.Fatalf("step: %v", err)
	}
}

func TestPeerErrorSurfaces(t *testing.T) {
	sess, mfg := pipeSession(t)

	errc := make(chan error, 1)
	go func() { errc <- sess.Run() }()

	mfg.readRequest()
	mfg.respond(sdo.ErrorMsgType, []byte(`{"ec":500,"emsg":10,"em":"voucher store unavailable"}`))

	err := <-errc
	if err == nil {
		t.Fatal("expected error from peer error message")
	}
	var em sdo.ErrorMessage
	if !errors.As(err, &em) {
		t.Fatalf("expected ErrorMessage, got %v", err)
	}
	if em.Code != sdo.InternalServerErrCode || em.PrevMsgType != sdo.DIAppStartMsgType {
		t.Errorf("wrong error message contents: %+v", em)
	}

	// A peer error ends the protocol: the session parks in the error state
	// and refuses further steps.
	if sess.State != sdo.StateError {
		t.Errorf("expected terminal state %s, got %s", sdo.StateError, sess.State)
	}
	if err := sess.Step(); err == nil {
		t.Error("expected error stepping a terminated session")
	}
}

func TestUnexpectedResponseType(t *testing.T) {
	sess, mfg := pipeSession(t)

	errc := make(chan error, 1)
	go func() { errc <- sess.Run() }()

	mfg.readRequest()
	mfg.respond(sdo.DIDoneMsgType, []byte("{}"))

	if err := <-errc; err == nil {
		t.Fatal("expected error for out-of-order message type")
	}
	if sess.State != sdo.StateDISetCredentials {
		t.Errorf("failed step changed state to %s", sess.State)
	}
}

func TestSetHmacRequiresSecret(t *testing.T) {
	sess, _ := pipeSession(t)
	sess.State = sdo.StateDISetHmac

	err := sess.Step()
	if err == nil {
		t.Fatal("expected error without provisioned hmac secret")
	}
	var se *sdo.StepError
	if !errors.As(err, &se) {
		t.Fatalf("expected StepError, got %v", err)
	}
	if sess.State != sdo.StateDISetHmac {
		t.Errorf("failed step changed state to %s", sess.State)
	}
}

func TestStatesNotDriven(t *testing.T) {
	sess, _ := pipeSession(t)
	for _, state := range []sdo.State{sdo.StateTO1HelloSDO, sdo.StateTO2HelloDevice, sdo.StateError} {
		sess.State = state
		if err := sess.Step(); err == nil {
			t.Errorf("expected error stepping state %s", state)
		}
	}
}
