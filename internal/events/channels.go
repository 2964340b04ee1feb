// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package events

import (
	"strconv"
	"strings"
)

// Bus channel prefixes. They must stay mutually non-overlapping.
const (
	ChatRoomPrefix     = "chatroom:"
	DirectPrefix       = "dm:"
	NotificationPrefix = "notification:"
)

// Broadcast topic namespaces.
const (
	ChatRoomTopicPrefix     = "/topic/chatroom/"
	DirectTopicPrefix       = "/topic/dm/"
	NotificationTopicPrefix = "/topic/notification/"
)

// ChatRoomChannel returns the bus channel for a chat room.
func ChatRoomChannel(roomID int64) string {
	return ChatRoomPrefix + strconv.FormatInt(roomID, 10)
}

// DirectRoomKey returns the canonical room key for a pair of users,
// "<smaller>_<larger>", so both directions share one room.
func DirectRoomKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return strconv.FormatInt(a, 10) + "_" + strconv.FormatInt(b, 10)
}

// DirectChannel returns the bus channel for a conversation between a and b.
func DirectChannel(a, b int64) string {
	return DirectPrefix + DirectRoomKey(a, b)
}

// NotificationChannel returns the bus channel for a user's notifications.
func NotificationChannel(userID int64) string {
	return NotificationPrefix + strconv.FormatInt(userID, 10)
}

// parseRoomKey splits a direct room key into its two user IDs.
func parseRoomKey(key string) (int64, int64, bool) {
	left, right, ok := strings.Cut(key, "_")
	if !ok {
		return 0, 0, false
	}
	a, err := strconv.ParseInt(left, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.ParseInt(right, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// CanSubscribe reports whether userID may subscribe to topic. Direct
// message topics are limited to their two participants and notification
// topics to their recipient. Chat room membership is checked upstream.
func CanSubscribe(userID int64, topic string) bool {
	switch {
	case strings.HasPrefix(topic, ChatRoomTopicPrefix):
		return len(topic) > len(ChatRoomTopicPrefix)
	case strings.HasPrefix(topic, DirectTopicPrefix):
		a, b, ok := parseRoomKey(strings.TrimPrefix(topic, DirectTopicPrefix))
		return ok && (userID == a || userID == b)
	case strings.HasPrefix(topic, NotificationTopicPrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(topic, NotificationTopicPrefix), 10, 64)
		return err == nil && id == userID
	default:
		return false
	}
}
