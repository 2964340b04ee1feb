// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package bus

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Transport is a Watermill publisher/subscriber pair plus the mapping from
// envelope channels to transport topics.
type Transport interface {
	message.Publisher
	message.Subscriber

	// TopicFor returns the transport topic an envelope channel is written to.
	TopicFor(channel string) string

	// AllTopics returns the topic (or pattern) matching every channel.
	AllTopics() string

	// Name identifies the backend in logs and health output.
	Name() string
}

// memoryTopic is the single gochannel topic every envelope travels on.
// gochannel has no wildcard subscriptions, so the channel lives in metadata.
const memoryTopic = "delivery"

// MemoryTransport is an in-process transport backed by Watermill gochannel.
type MemoryTransport struct {
	*gochannel.GoChannel
}

// NewMemoryTransport creates a gochannel transport.
// buffer is the per-subscriber output channel buffer.
//
// Publish blocks until every subscriber acked the message. gochannel fans
// out on one goroutine per message otherwise, which would let two envelopes
// on the same channel overtake each other. The publisher therefore waits on
// the dispatch handlers; this stays bounded only because every handler
// hands off to the websocket hub without blocking (Hub.SendToTopic drops
// on a full queue). A handler that can block must not be routed from this
// transport. With no subscriber, Publish returns at once.
func NewMemoryTransport(buffer int64, logger watermill.LoggerAdapter) *MemoryTransport {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &MemoryTransport{
		GoChannel: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            buffer,
			BlockPublishUntilSubscriberAck: true,
		}, logger),
	}
}

// TopicFor implements Transport.
func (t *MemoryTransport) TopicFor(string) string { return memoryTopic }

// AllTopics implements Transport.
func (t *MemoryTransport) AllTopics() string { return memoryTopic }

// Name implements Transport.
func (t *MemoryTransport) Name() string { return "memory" }
