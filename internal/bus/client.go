// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/teamlink/internal/logging"
	"github.com/tomtom215/teamlink/internal/metrics"
)

// Client is the process-wide handle on the bus. It is safe for concurrent
// use by any number of publishers.
type Client struct {
	transport Transport
	breaker   *gobreaker.CircuitBreaker[interface{}]

	mu     sync.RWMutex
	closed bool
}

// NewClient creates a bus client over transport. breaker may be nil.
func NewClient(transport Transport, breaker *gobreaker.CircuitBreaker[interface{}]) *Client {
	return &Client{
		transport: transport,
		breaker:   breaker,
	}
}

// Publish writes one envelope for channel. It returns as soon as the
// transport accepted the write and never retries. Failures are returned as
// *PublishError.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	if channel == "" {
		return &PublishError{Channel: channel, Err: ErrEmptyChannel}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return &PublishError{Channel: channel, Err: ErrClientClosed}
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set(MetadataChannel, channel)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		middleware.SetCorrelationID(id, msg)
	}
	msg.SetContext(ctx)

	topic := c.transport.TopicFor(channel)
	domain := Domain(channel)
	start := time.Now()

	var err error
	if c.breaker != nil {
		_, err = c.breaker.Execute(func() (interface{}, error) {
			return nil, c.transport.Publish(topic, msg)
		})
	} else {
		err = c.transport.Publish(topic, msg)
	}

	if err != nil {
		reason := "transport"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			reason = "breaker_open"
		}
		metrics.RecordPublishFailure(domain, reason)
		return &PublishError{Channel: channel, Err: err}
	}

	metrics.RecordPublish(domain, time.Since(start))
	return nil
}

// Subscribe returns every message published on any channel.
// The returned channel closes when ctx ends or the transport closes.
func (c *Client) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClientClosed
	}

	msgs, err := c.transport.Subscribe(ctx, c.transport.AllTopics())
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", c.transport.AllTopics(), err)
	}
	return msgs, nil
}

// Subscriber exposes the transport's subscriber side and the all-channels
// topic for registration with a Watermill router.
func (c *Client) Subscriber() (message.Subscriber, string) {
	return c.transport, c.transport.AllTopics()
}

// Backend returns the transport name.
func (c *Client) Backend() string {
	return c.transport.Name()
}

// BreakerState returns the publish circuit breaker state.
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// Close closes the transport. Further publishes fail with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	return c.transport.Close()
}
