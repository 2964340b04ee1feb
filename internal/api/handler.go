// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/teamlink/internal/bus"
	"github.com/tomtom215/teamlink/internal/dispatch"
	"github.com/tomtom215/teamlink/internal/events"
	"github.com/tomtom215/teamlink/internal/logging"
	"github.com/tomtom215/teamlink/internal/notify"
	"github.com/tomtom215/teamlink/internal/presence"
	ws "github.com/tomtom215/teamlink/internal/websocket"
)

// maxBodyBytes caps ingest request bodies.
const maxBodyBytes = 64 << 10

// Deps are the components the handlers drive. All are required.
type Deps struct {
	Bus      *bus.Client
	Router   *dispatch.Router
	Hub      *ws.Hub
	Notifier *notify.Dispatcher
	Presence *presence.Registry
	Chat     *events.ChatPublisher
	Direct   *events.DirectPublisher
	Notices  *events.NotificationPublisher
}

// Handler serves the HTTP endpoints.
type Handler struct {
	deps      Deps
	upgrader  websocket.Upgrader
	origins   []string
	startTime time.Time
}

// NewHandler creates a handler. allowedOrigins governs websocket upgrades
// and should match the CORS configuration.
func NewHandler(deps Deps, allowedOrigins []string) (*Handler, error) {
	switch {
	case deps.Bus == nil:
		return nil, errors.New("api: bus client is required")
	case deps.Router == nil:
		return nil, errors.New("api: dispatch router is required")
	case deps.Hub == nil:
		return nil, errors.New("api: websocket hub is required")
	case deps.Notifier == nil:
		return nil, errors.New("api: notification dispatcher is required")
	case deps.Chat == nil || deps.Direct == nil || deps.Notices == nil:
		return nil, errors.New("api: publishers are required")
	}

	h := &Handler{
		deps:      deps,
		origins:   allowedOrigins,
		startTime: time.Now(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkWebSocketOrigin,
	}
	return h, nil
}

// checkWebSocketOrigin admits browsers from a configured origin. A missing
// Origin header is rejected: browsers always send one.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Ctx(r.Context()).Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	for _, allowed := range h.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Ctx(r.Context()).Warn().Str("origin", sanitizeLogValue(origin)).
		Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(r *http.Request, w http.ResponseWriter, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// sanitizeLogValue strips control characters and truncates.
func sanitizeLogValue(s string) string {
	const maxLen = 200
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		out = append(out, r)
		if len(out) == maxLen {
			break
		}
	}
	return string(out)
}
