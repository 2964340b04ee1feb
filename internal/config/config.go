// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/tomtom215/teamlink/internal/validation"
)

// ErrInvalidConfig is returned by Load and Validate for any rejected setting.
var ErrInvalidConfig = errors.New("invalid configuration")

// Bus backends.
const (
	BackendMemory = "memory"
	BackendNATS   = "nats"
	BackendRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Bus        BusConfig        `koanf:"bus"`
	Delivery   DeliveryConfig   `koanf:"delivery"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig configures the HTTP listener.
//
// There is no write timeout: SSE and websocket responses stay
// open far longer than any sensible request deadline. Stream lifetime is
// bounded by DeliveryConfig.StreamTimeout instead.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" validate:"gt=0"`
	IdleTimeout       time.Duration `koanf:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LoggingConfig configures the zerolog global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// BusConfig selects and configures the bus transport.
type BusConfig struct {
	Backend string        `koanf:"backend" validate:"oneof=memory nats redis"`
	Breaker BreakerConfig `koanf:"breaker"`
	NATS    NATSConfig    `koanf:"nats"`
	Redis   RedisConfig   `koanf:"redis"`
	Memory  MemoryConfig  `koanf:"memory"`
}

// BreakerConfig configures the circuit breaker around bus publishes.
type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests" validate:"gte=1"`
	Interval         time.Duration `koanf:"interval" validate:"gte=0"`
	Timeout          time.Duration `koanf:"timeout" validate:"gt=0"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"gte=1"`
}

// NATSConfig configures the NATS transport. When Embedded is set the process
// starts its own server on Host:Port and URL is ignored.
type NATSConfig struct {
	URL           string        `koanf:"url"`
	Embedded      bool          `koanf:"embedded"`
	Host          string        `koanf:"host"`
	Port          int           `koanf:"port" validate:"gte=-1,lte=65535"`
	SubjectPrefix string        `koanf:"subject_prefix" validate:"required"`
	MaxReconnects int           `koanf:"max_reconnects" validate:"gte=-1"`
	ReconnectWait time.Duration `koanf:"reconnect_wait" validate:"gte=0"`
}

// RedisConfig configures the Redis pub/sub transport.
type RedisConfig struct {
	Addr          string `koanf:"addr"`
	Password      string `koanf:"password"`
	DB            int    `koanf:"db" validate:"gte=0"`
	ChannelPrefix string `koanf:"channel_prefix" validate:"required"`
}

// MemoryConfig configures the in-process transport.
type MemoryConfig struct {
	Buffer int64 `koanf:"buffer" validate:"gte=0"`
}

// DeliveryConfig tunes the dispatch and connection layers.
type DeliveryConfig struct {
	SendTimeout        time.Duration `koanf:"send_timeout" validate:"gt=0"`
	StreamTimeout      time.Duration `koanf:"stream_timeout" validate:"gt=0"`
	HeartbeatInterval  time.Duration `koanf:"heartbeat_interval" validate:"gt=0"`
	RegistryShards     int           `koanf:"registry_shards" validate:"gte=1,lte=4096"`
	PresenceShards     int           `koanf:"presence_shards" validate:"gte=1,lte=4096"`
	BroadcastBuffer    int           `koanf:"broadcast_buffer" validate:"gte=1"`
	RouterCloseTimeout time.Duration `koanf:"router_close_timeout" validate:"gt=0"`
}

// SupervisorConfig mirrors supervisor.TreeConfig.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gt=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Validate checks struct tags and the rules that span sections.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, verr.Error())
	}

	switch c.Bus.Backend {
	case BackendNATS:
		if !c.Bus.NATS.Embedded && c.Bus.NATS.URL == "" {
			return fmt.Errorf("%w: bus.nats.url is required unless bus.nats.embedded is set", ErrInvalidConfig)
		}
	case BackendRedis:
		if c.Bus.Redis.Addr == "" {
			return fmt.Errorf("%w: bus.redis.addr is required for the redis backend", ErrInvalidConfig)
		}
	}

	if c.Delivery.HeartbeatInterval >= c.Delivery.StreamTimeout {
		return fmt.Errorf("%w: delivery.heartbeat_interval (%s) must be shorter than delivery.stream_timeout (%s)",
			ErrInvalidConfig, c.Delivery.HeartbeatInterval, c.Delivery.StreamTimeout)
	}

	if !c.Server.RateLimitDisabled && (c.Server.RateLimitReqs == 0 || c.Server.RateLimitWindow == 0) {
		return fmt.Errorf("%w: server.rate_limit_reqs and server.rate_limit_window must be positive when rate limiting is enabled", ErrInvalidConfig)
	}

	return nil
}
