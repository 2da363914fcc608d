// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package sdo

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Writer builds an outgoing protocol document: a JSON object written
// incrementally as tag/value pairs into a growable buffer. Errors are
// sticky; a single check when the bytes are taken covers the whole
// construction.
type Writer struct {
	buf     bytes.Buffer
	depth   int
	needSep bool
	err     error
}

// Reset discards any partially built document.
func (w *Writer) Reset() {
	w.buf.Reset()
	w.depth = 0
	w.needSep = false
	w.err = nil
}

func (w *Writer) sep() {
	if w.needSep {
		w.buf.WriteByte(',')
	}
}

// BeginObject opens an object value.
func (w *Writer) BeginObject() {
	if w.err != nil {
		return
	}
	w.sep()
	w.buf.WriteByte('{')
	w.depth++
	w.needSep = false
}

// EndObject closes the innermost open object.
func (w *Writer) EndObject() {
	if w.err != nil {
		return
	}
	if w.depth == 0 {
		w.err = errors.New("document writer: end of object without begin")
		return
	}
	w.buf.WriteByte('}')
	w.depth--
	w.needSep = true
}

// Tag writes a field name; the next write supplies its value.
func (w *Writer) Tag(name string) {
	if w.err != nil {
		return
	}
	if w.depth == 0 {
		w.err = fmt.Errorf("document writer: tag %q outside object", name)
		return
	}
	w.sep()
	w.writeQuoted(name)
	w.buf.WriteByte(':')
	w.needSep = false
}

// WriteString writes a string value.
func (w *Writer) WriteString(s string) {
	if w.err != nil {
		return
	}
	w.sep()
	w.writeQuoted(s)
	w.needSep = true
}

// WriteUint writes an unsigned integer value.
func (w *Writer) WriteUint(v uint64) {
	if w.err != nil {
		return
	}
	w.sep()
	w.buf.WriteString(strconv.FormatUint(v, 10))
	w.needSep = true
}

// WriteBytes writes a byte-sequence value in its base64 text form.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteString(base64.StdEncoding.EncodeToString(b))
}

func (w *Writer) writeQuoted(s string) {
	quoted, err := json.Marshal(s)
	if err != nil {
		w.err = err
		return
	}
	w.buf.Write(quoted)
}

// Err reports the first construction error.
func (w *Writer) Err() error { return w.err }

// Bytes returns the finished document. The document must be balanced.
func (w *Writer) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if w.depth != 0 {
		return nil, fmt.Errorf("document writer: %d unclosed object(s)", w.depth)
	}
	return w.buf.Bytes(), nil
}

// Reader decodes one inbound protocol document.
type Reader struct {
	body []byte
}

// NewReader wraps a received message body.
func NewReader(body []byte) *Reader { return &Reader{body: body} }

// Decode parses the document into v.
func (r *Reader) Decode(v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("malformed document: %w", err)
	}
	return nil
}

// Bytes returns the raw document.
func (r *Reader) Bytes() []byte { return r.body }
