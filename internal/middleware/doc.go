// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

// Package middleware provides HTTP instrumentation shared by the API routes.
//
// PrometheusMetrics records request counts, durations and in-flight requests
// labeled by the matched chi route pattern, so path parameters such as room
// or user IDs never become label values:
//
//	r.Route("/internal/v1", func(r chi.Router) {
//	    r.Use(middleware.PrometheusMetrics)
//	    r.Post("/chatrooms/{roomID}/messages", h.PublishChatMessage)
//	})
//
// Long-lived streams (SSE, websocket) should not be wrapped: their duration
// is the connection lifetime, which belongs in the connection gauges.
package middleware
