// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/teamlink/internal/middleware"
)

// NewRouter builds the chi route tree.
func NewRouter(h *Handler, mw *ChiMiddleware) http.Handler {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}

	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusNotFound, ErrCodeNotFound, "Not found")
	})

	// Operational endpoints
	r.Group(func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Use(APISecurityHeaders())
		r.Get("/healthz", h.Health)
		r.Get("/livez", h.Live)
	})
	r.Handle("/metrics", promhttp.Handler())

	// Client streams
	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimitCustom(RateLimitStreams))
		r.Use(RequireUser())

		r.Get("/ws", h.WebSocket)
		r.Get("/api/v1/notifications/stream", h.NotificationStream)
	})

	// Ingest from persisting collaborators
	r.Route("/internal/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Use(mw.RateLimit())
		r.Use(APISecurityHeaders())

		r.Post("/chatrooms/{roomID}/messages", h.PublishChatMessage)
		r.Post("/direct-messages", h.PublishDirectMessage)
		r.Post("/notifications", h.DeliverNotification)
		r.Delete("/users/{userID}/streams", h.DisconnectUser)
	})

	return r
}
