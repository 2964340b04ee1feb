// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package events

import "time"

// ChatMessage is a message posted to a chat room.
type ChatMessage struct {
	ID         int64     `json:"id"`
	RoomID     int64     `json:"roomId" validate:"required,gt=0"`
	SenderID   int64     `json:"senderId" validate:"required,gt=0"`
	SenderName string    `json:"senderName,omitempty" validate:"max=100"`
	Content    string    `json:"content" validate:"required,notblank,max=4000"`
	SentAt     time.Time `json:"sentAt"`
}

// DirectMessage is a one-to-one message.
type DirectMessage struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"senderId" validate:"required,gt=0"`
	ReceiverID int64     `json:"receiverId" validate:"required,gt=0,nefield=SenderID"`
	Content    string    `json:"content" validate:"required,notblank,max=4000"`
	Read       bool      `json:"read"`
	SentAt     time.Time `json:"sentAt"`
}
