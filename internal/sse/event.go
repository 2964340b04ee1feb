// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package sse

import (
	"bytes"
	"io"
	"strconv"
)

// ContentType is the media type of an event stream.
const ContentType = "text/event-stream"

// Event is one Server-Sent Event.
type Event struct {
	ID    string
	Name  string
	Data  []byte
	Retry int // reconnection delay in milliseconds, omitted when zero
}

// Encode appends the wire form of e to buf. Multi-line data is split into
// one "data:" field per line.
func (e Event) Encode(buf []byte) []byte {
	if e.ID != "" {
		buf = append(buf, "id: "...)
		buf = appendField(buf, e.ID)
		buf = append(buf, '\n')
	}
	if e.Name != "" {
		buf = append(buf, "event: "...)
		buf = appendField(buf, e.Name)
		buf = append(buf, '\n')
	}
	if e.Retry > 0 {
		buf = append(buf, "retry: "...)
		buf = strconv.AppendInt(buf, int64(e.Retry), 10)
		buf = append(buf, '\n')
	}

	data := e.Data
	for {
		buf = append(buf, "data: "...)
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			buf = append(buf, data...)
			break
		}
		buf = append(buf, data[:i+1]...)
		data = data[i+1:]
	}
	return append(buf, '\n', '\n')
}

// WriteTo writes the encoded event to w.
func (e Event) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(e.Encode(nil))
	return int64(n), err
}

// appendField drops line breaks, which would end the field early.
func appendField(buf []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			continue
		}
		buf = append(buf, s[i])
	}
	return buf
}

// comment is a keep-alive line ignored by EventSource clients.
var comment = []byte(": ping\n\n")
