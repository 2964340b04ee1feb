// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/teamlink/config.yaml",
	"/etc/teamlink/config.yml",
}

// ConfigPathEnvVar names the environment variable holding an explicit config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ShutdownTimeout:   15 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Bus: BusConfig{
			Backend: BackendMemory,
			Breaker: BreakerConfig{
				MaxRequests:      3,
				Interval:         30 * time.Second,
				Timeout:          10 * time.Second,
				FailureThreshold: 5,
			},
			NATS: NATSConfig{
				URL:           "nats://127.0.0.1:4222",
				Host:          "127.0.0.1",
				Port:          4222,
				SubjectPrefix: "delivery",
				MaxReconnects: -1,
				ReconnectWait: 2 * time.Second,
			},
			Redis: RedisConfig{
				Addr:          "127.0.0.1:6379",
				ChannelPrefix: "delivery",
			},
			Memory: MemoryConfig{
				Buffer: 256,
			},
		},
		Delivery: DeliveryConfig{
			SendTimeout:        5 * time.Second,
			StreamTimeout:      time.Hour,
			HeartbeatInterval:  30 * time.Second,
			RegistryShards:     32,
			PresenceShards:     32,
			BroadcastBuffer:    1024,
			RouterCloseTimeout: 10 * time.Second,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Load loads configuration from defaults, the optional config file, and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config file (optional)
//  3. Environment variables (highest priority)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns CONFIG_PATH if it exists, else the first existing
// entry of DefaultConfigPaths, else "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set via env.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_host":                "server.host",
	"http_port":                "server.port",
	"http_read_header_timeout": "server.read_header_timeout",
	"http_idle_timeout":        "server.idle_timeout",
	"http_shutdown_timeout":    "server.shutdown_timeout",
	"cors_origins":             "server.cors_origins",
	"rate_limit_requests":      "server.rate_limit_reqs",
	"rate_limit_window":        "server.rate_limit_window",
	"disable_rate_limit":       "server.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Bus
	"bus_backend":                   "bus.backend",
	"bus_breaker_max_requests":      "bus.breaker.max_requests",
	"bus_breaker_interval":          "bus.breaker.interval",
	"bus_breaker_timeout":           "bus.breaker.timeout",
	"bus_breaker_failure_threshold": "bus.breaker.failure_threshold",
	"bus_memory_buffer":             "bus.memory.buffer",

	// NATS
	"nats_url":            "bus.nats.url",
	"nats_embedded":       "bus.nats.embedded",
	"nats_host":           "bus.nats.host",
	"nats_port":           "bus.nats.port",
	"nats_subject_prefix": "bus.nats.subject_prefix",
	"nats_max_reconnects": "bus.nats.max_reconnects",
	"nats_reconnect_wait": "bus.nats.reconnect_wait",

	// Redis
	"redis_addr":           "bus.redis.addr",
	"redis_password":       "bus.redis.password",
	"redis_db":             "bus.redis.db",
	"redis_channel_prefix": "bus.redis.channel_prefix",

	// Delivery
	"sse_send_timeout":       "delivery.send_timeout",
	"sse_stream_timeout":     "delivery.stream_timeout",
	"sse_heartbeat_interval": "delivery.heartbeat_interval",
	"registry_shards":        "delivery.registry_shards",
	"presence_shards":        "delivery.presence_shards",
	"ws_broadcast_buffer":    "delivery.broadcast_buffer",
	"router_close_timeout":   "delivery.router_close_timeout",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped keys return "" so koanf skips them.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - BUS_BACKEND -> bus.backend
//   - NATS_URL -> bus.nats.url
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
