// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/teamlink/internal/events"
	"github.com/tomtom215/teamlink/internal/logging"
	"github.com/tomtom215/teamlink/internal/notify"
	"github.com/tomtom215/teamlink/internal/validation"
)

// NotificationResult reports what happened to an ingested notification.
type NotificationResult struct {
	notify.Result
	Published bool `json:"published"`
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// PublishChatMessage fans a persisted chat room message out to the room.
func (h *Handler) PublishChatMessage(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	roomID, ok := pathID(r, "roomID")
	if !ok {
		rw.BadRequest("roomID must be a positive integer")
		return
	}

	var msg events.ChatMessage
	if err := decodeJSON(r, w, &msg); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	msg.RoomID = roomID
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	if verr := validation.ValidateStruct(&msg); verr != nil {
		rw.ValidationError(verr)
		return
	}

	if err := h.deps.Chat.PublishMessage(r.Context(), msg); err != nil {
		rw.BusError(err, nil)
		return
	}
	rw.Accepted(msg)
}

// PublishDirectMessage fans a persisted direct message out to the
// conversation and returns it with its final read flag, which the caller
// stores.
func (h *Handler) PublishDirectMessage(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var msg events.DirectMessage
	if err := decodeJSON(r, w, &msg); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	if verr := validation.ValidateStruct(&msg); verr != nil {
		rw.ValidationError(verr)
		return
	}

	out, err := h.deps.Direct.PublishMessage(r.Context(), msg)
	if err != nil {
		rw.BusError(err, out)
		return
	}
	rw.Accepted(out)
}

// DeliverNotification pushes a persisted notification to the recipient's
// SSE streams on this instance and publishes it on the bus for websocket
// subscribers everywhere.
func (h *Handler) DeliverNotification(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var n notify.Notification
	if err := decodeJSON(r, w, &n); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	if verr := validation.ValidateStruct(&n); verr != nil {
		rw.ValidationError(verr)
		return
	}

	result := NotificationResult{Result: h.deps.Notifier.Deliver(r.Context(), n)}

	if err := h.deps.Notices.PublishNotification(r.Context(), n); err != nil {
		rw.BusError(err, result)
		return
	}
	result.Published = true

	logging.Ctx(r.Context()).Debug().
		Int64("recipient_id", n.RecipientID).
		Int("delivered", result.Delivered).
		Int("pruned", result.Pruned).
		Msg("Notification ingested")
	rw.Accepted(result)
}

// DisconnectUser closes every SSE stream of a user on this instance, e.g.
// on sign-out.
func (h *Handler) DisconnectUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, ok := pathID(r, "userID")
	if !ok {
		rw.BadRequest("userID must be a positive integer")
		return
	}

	closed := h.deps.Notifier.DisconnectAll(userID)
	rw.Success(map[string]int{"closed": closed})
}
