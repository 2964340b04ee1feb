// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package api

import (
	"net/http"

	"github.com/tomtom215/teamlink/internal/logging"
	"github.com/tomtom215/teamlink/internal/sse"
	ws "github.com/tomtom215/teamlink/internal/websocket"
)

// NotificationStream opens an SSE stream of the caller's notifications and
// holds it until the client goes away, the stream times out or the server
// shuts down.
func (h *Handler) NotificationStream(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	conn, err := sse.NewConn(w)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("SSE stream unavailable")
		NewResponseWriter(w, r).InternalError("Streaming unsupported")
		return
	}

	// Headers are committed; failures from here on are only logged.
	if err := h.deps.Notifier.Subscribe(r.Context(), userID, conn); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Int64("user_id", userID).Msg("SSE subscription ended")
	}
}

// WebSocket upgrades the caller to a broadcast sink client. Topic
// subscriptions are authorized by the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	// The upgrader has already written an HTTP error on failure.
	if err := ws.ServeWS(h.deps.Hub, &h.upgrader, w, r, userID); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Int64("user_id", userID).Msg("WebSocket upgrade failed")
	}
}
