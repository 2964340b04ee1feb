// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

/*
Package main is the entry point for the Teamlink delivery server.

The server moves chat room messages, direct messages and notifications that
other services have already persisted to the people who should see them.
Ingest endpoints publish envelopes on the bus; every instance consumes the
bus and fans envelopes out to its own websocket subscribers. Notifications
are also pushed straight to the recipient's SSE streams on the ingesting
instance.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("teamlink")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket Hub ("websocket-hub")
	│   └── Dispatch Router ("dispatch-router")
	└── APISupervisor ("api-layer")
	    └── HTTP Server ("http-server")

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config file and environment variables
 2. Logging: zerolog with JSON or console output
 3. Bus: memory, NATS (optionally embedded) or Redis transport behind a circuit breaker
 4. Registries: presence and SSE connection registries
 5. WebSocket Hub: topic subscriptions with presence tracking
 6. Dispatch Router: bus consumer routing envelopes to channel handlers
 7. HTTP Server: Chi router with CORS, rate limiting and request IDs
 8. Supervisor Tree: starts everything and restarts failed services

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
  - Environment variables
  - Config file (config.yaml, or the file named by CONFIG_PATH)
  - Built-in defaults

Commonly used variables:
  - HTTP_PORT: listen port (default 8080)
  - BUS_BACKEND: memory, nats or redis (default memory)
  - NATS_URL / NATS_EMBEDDED: external or in-process NATS server
  - REDIS_ADDR: Redis address for the redis backend
  - CORS_ORIGINS: comma-separated allowed origins for browsers
  - LOG_LEVEL / LOG_FORMAT: zerolog level and output format

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:
  - Cancels open SSE streams and stops accepting connections
  - Drains the dispatch router
  - Closes the bus client and any embedded NATS server

# Example Usage

Single instance, in-process bus:

	./teamlink

One instance hosting NATS in-process, others joining it:

	BUS_BACKEND=nats NATS_EMBEDDED=true NATS_HOST=0.0.0.0 ./teamlink
	BUS_BACKEND=nats NATS_URL=nats://bus-host:4222 ./teamlink

Several instances sharing Redis:

	export BUS_BACKEND=redis
	export REDIS_ADDR=redis:6379
	./teamlink
*/
package main
