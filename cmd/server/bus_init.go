// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/teamlink/internal/bus"
	"github.com/tomtom215/teamlink/internal/config"
	"github.com/tomtom215/teamlink/internal/logging"
)

// BusComponents holds the bus client and anything it depends on that must
// be stopped after it.
type BusComponents struct {
	Client   *bus.Client
	embedded *bus.EmbeddedServer
}

// InitBus builds the configured transport, wraps it in a circuit breaker
// and returns the client. For the embedded NATS backend the server is
// started first and the transport connects to it.
func InitBus(ctx context.Context, cfg config.BusConfig, closeTimeout time.Duration) (*BusComponents, error) {
	breaker := bus.NewCircuitBreaker(bus.CircuitBreakerConfig{
		Name:             "bus-publish",
		MaxRequests:      cfg.Breaker.MaxRequests,
		Interval:         cfg.Breaker.Interval,
		Timeout:          cfg.Breaker.Timeout,
		FailureThreshold: cfg.Breaker.FailureThreshold,
	})

	switch cfg.Backend {
	case config.BackendMemory:
		transport := bus.NewMemoryTransport(cfg.Memory.Buffer, logging.NewWatermillLogger("bus"))
		return &BusComponents{Client: bus.NewClient(transport, breaker)}, nil

	case config.BackendNATS:
		comps := &BusComponents{}
		url := cfg.NATS.URL
		if cfg.NATS.Embedded {
			srv, err := bus.NewEmbeddedServer(bus.ServerConfig{
				Host:  cfg.NATS.Host,
				Port:  cfg.NATS.Port,
				NoLog: true,
			})
			if err != nil {
				return nil, fmt.Errorf("start embedded NATS server: %w", err)
			}
			comps.embedded = srv
			url = srv.ClientURL()
			logging.Info().Str("url", url).Msg("Embedded NATS server started")
		}

		transport, err := bus.NewNATSTransport(bus.NATSConfig{
			URL:           url,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
			CloseTimeout:  closeTimeout,
		}, logging.NewWatermillLogger("bus"))
		if err != nil {
			_ = comps.shutdownEmbedded(ctx)
			return nil, fmt.Errorf("connect NATS transport: %w", err)
		}
		comps.Client = bus.NewClient(transport, breaker)
		return comps, nil

	case config.BackendRedis:
		transport, err := bus.NewRedisTransport(ctx, bus.RedisConfig{
			Addr:          cfg.Redis.Addr,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			ChannelPrefix: cfg.Redis.ChannelPrefix,
		}, logging.NewWatermillLogger("bus"))
		if err != nil {
			return nil, fmt.Errorf("connect Redis transport: %w", err)
		}
		return &BusComponents{Client: bus.NewClient(transport, breaker)}, nil

	default:
		return nil, fmt.Errorf("%w: unknown bus backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

// Shutdown closes the client and then the embedded server, if any.
func (c *BusComponents) Shutdown(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Client != nil {
		if err := c.Client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close bus client: %w", err))
		}
	}
	if err := c.shutdownEmbedded(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *BusComponents) shutdownEmbedded(ctx context.Context) error {
	if c.embedded == nil {
		return nil
	}
	if err := c.embedded.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown embedded NATS server: %w", err)
	}
	c.embedded = nil
	return nil
}
