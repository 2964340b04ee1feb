// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package api

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/teamlink/internal/dispatch"
)

// Health status values.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// HealthStatus is the /healthz body.
type HealthStatus struct {
	Status    string          `json:"status"`
	Uptime    float64         `json:"uptime_seconds"`
	Bus       BusHealth       `json:"bus"`
	Router    RouterHealth    `json:"router"`
	WebSocket WebSocketHealth `json:"websocket"`
	SSE       SSEHealth       `json:"sse"`
	Presence  PresenceHealth  `json:"presence"`
}

// BusHealth describes the bus client.
type BusHealth struct {
	Backend string `json:"backend"`
	Breaker string `json:"breaker"`
}

// RouterHealth describes the dispatch router.
type RouterHealth struct {
	Running  bool           `json:"running"`
	Prefixes []string       `json:"prefixes"`
	Stats    dispatch.Stats `json:"stats"`
}

// WebSocketHealth describes the broadcast sink.
type WebSocketHealth struct {
	Clients int `json:"clients"`
}

// SSEHealth describes the connection registry.
type SSEHealth struct {
	Users       int `json:"users"`
	Connections int `json:"connections"`
}

// PresenceHealth describes the presence registry.
type PresenceHealth struct {
	Rooms int `json:"rooms"`
}

// Health reports component state. It answers 503 while the router is not
// consuming or the publish breaker is open, so load balancers drain the
// instance.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	registry := h.deps.Notifier.Registry()

	status := HealthStatus{
		Status: StatusHealthy,
		Uptime: time.Since(h.startTime).Seconds(),
		Bus: BusHealth{
			Backend: h.deps.Bus.Backend(),
			Breaker: h.deps.Bus.BreakerState(),
		},
		Router: RouterHealth{
			Running:  h.deps.Router.IsRunning(),
			Prefixes: h.deps.Router.Prefixes(),
			Stats:    h.deps.Router.Stats(),
		},
		WebSocket: WebSocketHealth{Clients: h.deps.Hub.GetClientCount()},
		SSE: SSEHealth{
			Users:       registry.Users(),
			Connections: registry.Connections(),
		},
	}
	if h.deps.Presence != nil {
		status.Presence.Rooms = h.deps.Presence.RoomCount()
	}

	code := http.StatusOK
	if !status.Router.Running || status.Bus.Breaker == gobreaker.StateOpen.String() {
		status.Status = StatusDegraded
		code = http.StatusServiceUnavailable
	}

	NewResponseWriter(w, r).WithStatus(code, status)
}

// Live answers 200 while the process can serve HTTP at all.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}
