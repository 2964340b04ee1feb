// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package notify

import (
	"strings"
	"time"
)

// Type discriminates what a notification is about.
type Type string

// Notification types.
const (
	TypeApplication Type = "APPLICATION"
	TypeInvitation  Type = "INVITATION"
	TypeAccepted    Type = "ACCEPTED"
	TypeRejected    Type = "REJECTED"
	TypeMessage     Type = "MESSAGE"
	TypeSystem      Type = "SYSTEM"
)

// EventName returns the SSE event name for notifications of this type.
// Unknown or empty types use the generic "notification" event.
func (t Type) EventName() string {
	switch t {
	case TypeApplication, TypeInvitation, TypeAccepted, TypeRejected, TypeMessage, TypeSystem:
		return strings.ToLower(string(t))
	default:
		return "notification"
	}
}

// Notification is a persisted notification handed over by the collaborator
// that stored it. Only the fields needed to route and render are read.
type Notification struct {
	ID          int64     `json:"id"`
	RecipientID int64     `json:"recipientId" validate:"required,gt=0"`
	Type        Type      `json:"type" validate:"required"`
	Message     string    `json:"message" validate:"required,notblank,max=2000"`
	RelatedID   int64     `json:"relatedId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// View is the payload pushed to clients.
type View struct {
	ID        int64     `json:"id"`
	Type      Type      `json:"type"`
	Message   string    `json:"message"`
	RelatedID int64     `json:"relatedId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
}

// ViewOf renders n for delivery. New notifications are always unread.
func ViewOf(n Notification) View {
	return View{
		ID:        n.ID,
		Type:      n.Type,
		Message:   n.Message,
		RelatedID: n.RelatedID,
		CreatedAt: n.CreatedAt,
	}
}
