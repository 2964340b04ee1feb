// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package bus

import (
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
)

// MetadataChannel is the message metadata key holding the envelope channel.
const MetadataChannel = "channel"

// Envelope is the unit moved across the bus: a channel and its payload.
// Envelopes are never persisted.
type Envelope struct {
	Channel string
	Payload []byte
}

// EnvelopeFromMessage extracts the envelope carried by a bus message.
func EnvelopeFromMessage(msg *message.Message) (Envelope, error) {
	if msg == nil {
		return Envelope{}, fmt.Errorf("nil message: %w", ErrEmptyChannel)
	}
	channel := msg.Metadata.Get(MetadataChannel)
	if channel == "" {
		return Envelope{}, fmt.Errorf("message %s: %w", msg.UUID, ErrEmptyChannel)
	}
	return Envelope{Channel: channel, Payload: msg.Payload}, nil
}

// Domain returns the part of a channel before the first ':'.
// It is used as a low-cardinality metrics label.
func Domain(channel string) string {
	if i := strings.IndexByte(channel, ':'); i > 0 {
		return channel[:i]
	}
	return "unknown"
}
