// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package bus

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// NATSConfig configures the core NATS transport.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	CloseTimeout  time.Duration
}

// DefaultNATSConfig returns production defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           natsgo.DefaultURL,
		SubjectPrefix: "delivery",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		CloseTimeout:  10 * time.Second,
	}
}

// NATSTransport publishes envelopes as core NATS messages on
// "<prefix>.<channel>" and subscribes to "<prefix>.>".
type NATSTransport struct {
	message.Publisher
	message.Subscriber
	prefix string
}

// NewNATSTransport connects a Watermill NATS publisher and subscriber.
// JetStream is disabled: envelopes are ephemeral and must reach every
// instance, so there is no stream, no durable consumer and no queue group.
func NewNATSTransport(cfg NATSConfig, logger watermill.LoggerAdapter) (*NATSTransport, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "delivery"
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("teamlink"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill NATS publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL: cfg.URL,
		// A single subscriber goroutine keeps per-channel order.
		SubscribersCount: 1,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create watermill NATS subscriber: %w", err)
	}

	return &NATSTransport{Publisher: pub, Subscriber: sub, prefix: cfg.SubjectPrefix}, nil
}

// TopicFor implements Transport.
func (t *NATSTransport) TopicFor(channel string) string {
	return t.prefix + "." + channel
}

// AllTopics implements Transport.
func (t *NATSTransport) AllTopics() string {
	return t.prefix + ".>"
}

// Name implements Transport.
func (t *NATSTransport) Name() string { return "nats" }

// Close closes the subscriber first so in-flight handlers finish before
// the publisher connection goes away.
func (t *NATSTransport) Close() error {
	subErr := t.Subscriber.Close()
	pubErr := t.Publisher.Close()
	if subErr != nil {
		return fmt.Errorf("close NATS subscriber: %w", subErr)
	}
	if pubErr != nil {
		return fmt.Errorf("close NATS publisher: %w", pubErr)
	}
	return nil
}
