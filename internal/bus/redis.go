// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis pub/sub transport.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string
}

// redisWireMessage is the JSON body published on a Redis channel.
type redisWireMessage struct {
	UUID     string            `json:"uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  []byte            `json:"payload"`
}

// RedisTransport carries envelopes over Redis PUBLISH / PSUBSCRIBE.
// Redis pub/sub is fire-and-forget, which matches the bus contract.
type RedisTransport struct {
	client *redis.Client
	prefix string
	logger watermill.LoggerAdapter

	mu      sync.Mutex
	closed  bool
	closing chan struct{}
	wg      sync.WaitGroup
}

// NewRedisTransport connects to Redis and verifies the connection.
func NewRedisTransport(ctx context.Context, cfg RedisConfig, logger watermill.LoggerAdapter) (*RedisTransport, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return NewRedisTransportFromClient(client, cfg.ChannelPrefix, logger), nil
}

// NewRedisTransportFromClient wraps an existing go-redis client.
// The transport owns the client and closes it on Close.
func NewRedisTransportFromClient(client *redis.Client, prefix string, logger watermill.LoggerAdapter) *RedisTransport {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if prefix == "" {
		prefix = "delivery"
	}
	return &RedisTransport{
		client:  client,
		prefix:  prefix,
		logger:  logger,
		closing: make(chan struct{}),
	}
}

// TopicFor implements Transport.
func (t *RedisTransport) TopicFor(channel string) string {
	return t.prefix + ":" + channel
}

// AllTopics implements Transport.
func (t *RedisTransport) AllTopics() string {
	return t.prefix + ":*"
}

// Name implements Transport.
func (t *RedisTransport) Name() string { return "redis" }

// Publish implements message.Publisher.
func (t *RedisTransport) Publish(topic string, messages ...*message.Message) error {
	if t.isClosed() {
		return ErrClientClosed
	}
	for _, msg := range messages {
		body, err := json.Marshal(redisWireMessage{
			UUID:     msg.UUID,
			Metadata: msg.Metadata,
			Payload:  msg.Payload,
		})
		if err != nil {
			return fmt.Errorf("marshal message %s: %w", msg.UUID, err)
		}
		if err := t.client.Publish(msg.Context(), topic, body).Err(); err != nil {
			return fmt.Errorf("redis publish %s: %w", topic, err)
		}
	}
	return nil
}

// Subscribe implements message.Subscriber. Topics containing glob
// characters use PSUBSCRIBE.
//
// Each message waits for Ack or Nack before the next one is emitted.
// A nacked message is dropped because Redis pub/sub cannot redeliver.
func (t *RedisTransport) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClientClosed
	}

	var ps *redis.PubSub
	if strings.ContainsAny(topic, "*?[") {
		ps = t.client.PSubscribe(ctx, topic)
	} else {
		ps = t.client.Subscribe(ctx, topic)
	}
	t.wg.Add(1)
	t.mu.Unlock()

	// Wait for the subscription confirmation so publishes made after
	// Subscribe returns are not missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		t.wg.Done()
		return nil, fmt.Errorf("redis subscribe %s: %w", topic, err)
	}

	out := make(chan *message.Message)
	go t.consume(ctx, ps, topic, out)
	return out, nil
}

func (t *RedisTransport) consume(ctx context.Context, ps *redis.PubSub, topic string, out chan<- *message.Message) {
	defer t.wg.Done()
	defer close(out)
	defer ps.Close()

	incoming := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.closing:
			return
		case raw, ok := <-incoming:
			if !ok {
				return
			}
			var wire redisWireMessage
			if err := json.Unmarshal([]byte(raw.Payload), &wire); err != nil {
				t.logger.Error("Dropping undecodable redis message", err, watermill.LogFields{
					"channel": raw.Channel,
				})
				continue
			}

			msg := message.NewMessage(wire.UUID, wire.Payload)
			for k, v := range wire.Metadata {
				msg.Metadata.Set(k, v)
			}
			msgCtx, cancel := context.WithCancel(ctx)
			msg.SetContext(msgCtx)

			select {
			case out <- msg:
			case <-ctx.Done():
				cancel()
				return
			case <-t.closing:
				cancel()
				return
			}

			select {
			case <-msg.Acked():
			case <-msg.Nacked():
				t.logger.Debug("Redis message nacked, not redelivered", watermill.LogFields{
					"uuid":  msg.UUID,
					"topic": topic,
				})
			case <-ctx.Done():
				cancel()
				return
			case <-t.closing:
				cancel()
				return
			}
			cancel()
		}
	}
}

func (t *RedisTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close stops all subscriptions and closes the Redis client.
func (t *RedisTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.closing)
	t.mu.Unlock()

	t.wg.Wait()

	if err := t.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
