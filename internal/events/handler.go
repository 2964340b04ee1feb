// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/teamlink/internal/notify"
)

// ErrEmptyIdentifier is returned for a channel that is only a prefix.
var ErrEmptyIdentifier = errors.New("channel has no identifier")

// Sink is the topic broadcast sink (the websocket hub).
type Sink interface {
	SendToTopic(topic string, message interface{}) error
}

// Handler decodes envelopes for one prefix into T and forwards them to the
// sink on "<namespace><identifier>".
type Handler[T any] struct {
	prefix    string
	namespace string
	sink      Sink
}

// NewHandler creates a handler for prefix forwarding under namespace.
func NewHandler[T any](prefix, namespace string, sink Sink) *Handler[T] {
	return &Handler[T]{prefix: prefix, namespace: namespace, sink: sink}
}

// NewChatRoomHandler handles "chatroom:<id>" envelopes.
func NewChatRoomHandler(sink Sink) *Handler[ChatMessage] {
	return NewHandler[ChatMessage](ChatRoomPrefix, ChatRoomTopicPrefix, sink)
}

// NewDirectMessageHandler handles "dm:<a>_<b>" envelopes.
func NewDirectMessageHandler(sink Sink) *Handler[DirectMessage] {
	return NewHandler[DirectMessage](DirectPrefix, DirectTopicPrefix, sink)
}

// NewNotificationHandler handles "notification:<userId>" envelopes.
func NewNotificationHandler(sink Sink) *Handler[notify.View] {
	return NewHandler[notify.View](NotificationPrefix, NotificationTopicPrefix, sink)
}

// Prefix returns the channel prefix this handler owns.
func (h *Handler[T]) Prefix() string { return h.prefix }

// Topic maps a channel to its broadcast topic. It depends on nothing but
// the channel string.
func (h *Handler[T]) Topic(channel string) string {
	return h.namespace + strings.TrimPrefix(channel, h.prefix)
}

// Handle decodes payload and forwards it to the sink.
func (h *Handler[T]) Handle(_ context.Context, channel string, payload []byte) error {
	if !strings.HasPrefix(channel, h.prefix) {
		return fmt.Errorf("channel %q does not start with %q", channel, h.prefix)
	}
	if len(channel) == len(h.prefix) {
		return fmt.Errorf("channel %q: %w", channel, ErrEmptyIdentifier)
	}

	var msg T
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decode %s payload: %w", strings.TrimSuffix(h.prefix, ":"), err)
	}

	if err := h.sink.SendToTopic(h.Topic(channel), msg); err != nil {
		return fmt.Errorf("forward to %s: %w", h.Topic(channel), err)
	}
	return nil
}
