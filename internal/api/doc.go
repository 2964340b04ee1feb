// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

// Package api is the HTTP surface of the delivery server, routed with chi.
//
// Client endpoints (caller identity in the X-User-ID header, set by the
// authenticating gateway in front of this service):
//
//	GET  /api/v1/notifications/stream   SSE notification stream
//	GET  /ws                            websocket broadcast sink
//
// Ingest endpoints for the collaborators that persist messages and
// notifications:
//
//	POST   /internal/v1/chatrooms/{roomID}/messages
//	POST   /internal/v1/direct-messages
//	POST   /internal/v1/notifications
//	DELETE /internal/v1/users/{userID}/streams
//
// Operational endpoints:
//
//	GET /healthz   router, bus, hub and SSE state (503 when degraded)
//	GET /livez     process liveness
//	GET /metrics   Prometheus exposition
//
// JSON responses use the APIResponse envelope from response.go.
package api
