// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

// Package config loads the delivery server configuration.
//
// Configuration is layered with Koanf v2, later layers overriding earlier ones:
//  1. Built-in defaults (structs provider)
//  2. Optional YAML file (CONFIG_PATH, then DefaultConfigPaths)
//  3. Environment variables, mapped through an explicit table
//
// Unmapped environment variables are ignored so unrelated process state cannot
// leak into the configuration.
//
// # Environment Variables
//
//	HTTP_HOST, HTTP_PORT, CORS_ORIGINS, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW
//	LOG_LEVEL, LOG_FORMAT, LOG_CALLER
//	BUS_BACKEND (memory | nats | redis)
//	NATS_URL, NATS_EMBEDDED, NATS_HOST, NATS_PORT, NATS_SUBJECT_PREFIX
//	REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, REDIS_CHANNEL_PREFIX
//	SSE_SEND_TIMEOUT, SSE_STREAM_TIMEOUT, SSE_HEARTBEAT_INTERVAL
//
// See envMappings in koanf.go for the full table.
//
// # Validation
//
// Load validates the result with go-playground/validator struct tags and a few
// cross-section rules. Any failure wraps ErrInvalidConfig.
//
// Config is immutable after Load and safe for concurrent reads.
package config
