// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

// Package metrics exposes Prometheus instrumentation for the delivery core.
//
// Collectors are registered on the default registry through promauto and are
// served by the /metrics endpoint. Components call the Record* helpers rather
// than touching collectors directly so label cardinality stays bounded
// (labels are domains and outcomes, never channel or user identifiers).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Bus / publisher metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamlink_events_published_total",
			Help: "Total number of events published to the bus",
		},
		[]string{"domain"},
	)

	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamlink_publish_failures_total",
			Help: "Total number of publish attempts that failed",
		},
		[]string{"domain", "reason"}, // reason: serialize, transport, breaker_open
	)

	PublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "teamlink_publish_duration_seconds",
			Help:    "Time spent writing one envelope to the bus transport",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	// Dispatch router metrics
	EnvelopesDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamlink_envelopes_dispatched_total",
			Help: "Total number of envelopes handled by the dispatch router",
		},
		[]string{"prefix", "outcome"}, // outcome: ok, error
	)

	EnvelopesUnroutable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamlink_envelopes_unroutable_total",
			Help: "Total number of envelopes whose channel matched no handler prefix",
		},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teamlink_dispatch_duration_seconds",
			Help:    "Handler execution time per envelope",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"prefix"},
	)

	// Broadcast sink (websocket hub) metrics
	SinkMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamlink_sink_messages_total",
			Help: "Messages offered to the websocket topic hub",
		},
		[]string{"outcome"}, // outcome: queued, dropped
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "teamlink_websocket_clients",
			Help: "Current number of connected websocket clients",
		},
	)

	// Live connection (SSE) metrics
	SSEConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "teamlink_sse_connections",
			Help: "Current number of registered SSE connections",
		},
	)

	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamlink_notifications_delivered_total",
			Help: "Notification events written to live connections",
		},
		[]string{"event"},
	)

	NotificationsWithoutListener = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamlink_notifications_without_listener_total",
			Help: "Notifications whose recipient had no live connection in this process",
		},
	)

	DeadConnectionsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamlink_dead_connections_pruned_total",
			Help: "Connections removed from the registry after a failed send",
		},
	)

	// Presence metrics
	PresenceRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "teamlink_presence_rooms",
			Help: "Current number of rooms with at least one present user",
		},
	)

	// HTTP metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamlink_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teamlink_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "teamlink_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)
)

// RecordPublish records a successful bus publish.
func RecordPublish(domain string, duration time.Duration) {
	EventsPublished.WithLabelValues(domain).Inc()
	PublishDuration.Observe(duration.Seconds())
}

// RecordPublishFailure records a failed publish.
func RecordPublishFailure(domain, reason string) {
	PublishFailures.WithLabelValues(domain, reason).Inc()
}

// RecordDispatch records one handler invocation.
func RecordDispatch(prefix string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	EnvelopesDispatched.WithLabelValues(prefix, outcome).Inc()
	DispatchDuration.WithLabelValues(prefix).Observe(duration.Seconds())
}

// RecordUnroutable records an envelope that matched no handler.
func RecordUnroutable() {
	EnvelopesUnroutable.Inc()
}

// RecordSinkMessage records a message offered to the websocket hub.
func RecordSinkMessage(queued bool) {
	if queued {
		SinkMessages.WithLabelValues("queued").Inc()
		return
	}
	SinkMessages.WithLabelValues("dropped").Inc()
}

// RecordNotificationDelivered records one successful per-connection send.
func RecordNotificationDelivered(event string) {
	NotificationsDelivered.WithLabelValues(event).Inc()
}

// RecordNoListener records a notification with no live connection.
func RecordNoListener() {
	NotificationsWithoutListener.Inc()
}

// RecordDeadConnection records a connection pruned after a failed send.
func RecordDeadConnection() {
	DeadConnectionsPruned.Inc()
}

// RecordAPIRequest records a finished API request. route is the matched
// route pattern, not the raw path.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
