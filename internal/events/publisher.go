// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

// Package events defines the per-domain channel publishers and handlers
// that sit on either side of the bus.
//
// Publishers serialize a domain message and publish it on a channel named
// "<prefix><id>". Handlers own a prefix, decode the payload and forward it
// to the broadcast sink on a topic derived from the channel alone.
package events

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/teamlink/internal/bus"
	"github.com/tomtom215/teamlink/internal/logging"
	"github.com/tomtom215/teamlink/internal/metrics"
	"github.com/tomtom215/teamlink/internal/notify"
	"github.com/tomtom215/teamlink/internal/presence"
)

// Bus is the publishing side of the bus client.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Publisher serializes messages of type T onto bus channels.
type Publisher[T any] struct {
	bus Bus
}

// NewPublisher creates a publisher over b.
func NewPublisher[T any](b Bus) *Publisher[T] {
	return &Publisher[T]{bus: b}
}

// Publish sends msg on channel. It does not retry; failures are returned
// as *bus.PublishError carrying the channel.
func (p *Publisher[T]) Publish(ctx context.Context, channel string, msg T) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		metrics.RecordPublishFailure(bus.Domain(channel), "serialize")
		err = &bus.PublishError{Channel: channel, Err: fmt.Errorf("serialize: %w", err)}
		logging.Ctx(ctx).Warn().Err(err).Str("channel", channel).Msg("Event publish failed")
		return err
	}

	if err := p.bus.Publish(ctx, channel, payload); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("channel", channel).Msg("Event publish failed")
		return err
	}
	return nil
}

// ChatPublisher publishes chat room messages.
type ChatPublisher struct {
	*Publisher[ChatMessage]
}

// NewChatPublisher creates a chat room publisher.
func NewChatPublisher(b Bus) *ChatPublisher {
	return &ChatPublisher{Publisher: NewPublisher[ChatMessage](b)}
}

// PublishMessage publishes msg on its room's channel.
func (p *ChatPublisher) PublishMessage(ctx context.Context, msg ChatMessage) error {
	return p.Publish(ctx, ChatRoomChannel(msg.RoomID), msg)
}

// DirectPublisher publishes direct messages and decides read-on-arrival
// from room presence.
type DirectPublisher struct {
	*Publisher[DirectMessage]
	presence *presence.Registry
}

// NewDirectPublisher creates a direct message publisher.
func NewDirectPublisher(b Bus, reg *presence.Registry) *DirectPublisher {
	return &DirectPublisher{Publisher: NewPublisher[DirectMessage](b), presence: reg}
}

// ReadOnArrival reports whether a message from sender to receiver can be
// created already read: both are present in their shared room.
func (p *DirectPublisher) ReadOnArrival(sender, receiver int64) bool {
	if p.presence == nil {
		return false
	}
	return p.presence.BothPresent(DirectRoomKey(sender, receiver), sender, receiver)
}

// PublishMessage marks msg read when both parties are present and
// publishes it on the conversation channel. The returned message carries
// the final read flag so the caller can persist it.
func (p *DirectPublisher) PublishMessage(ctx context.Context, msg DirectMessage) (DirectMessage, error) {
	if !msg.Read {
		msg.Read = p.ReadOnArrival(msg.SenderID, msg.ReceiverID)
	}
	return msg, p.Publish(ctx, DirectChannel(msg.SenderID, msg.ReceiverID), msg)
}

// NotificationPublisher publishes notifications onto the bus so every
// instance can forward them to websocket subscribers.
type NotificationPublisher struct {
	*Publisher[notify.View]
}

// NewNotificationPublisher creates a notification publisher.
func NewNotificationPublisher(b Bus) *NotificationPublisher {
	return &NotificationPublisher{Publisher: NewPublisher[notify.View](b)}
}

// PublishNotification publishes n on its recipient's channel.
func (p *NotificationPublisher) PublishNotification(ctx context.Context, n notify.Notification) error {
	return p.Publish(ctx, NotificationChannel(n.RecipientID), notify.ViewOf(n))
}
