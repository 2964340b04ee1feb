// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package events

import (
	"strings"
	"sync"

	"github.com/tomtom215/teamlink/internal/presence"
)

// PresenceTracker feeds direct-message topic subscriptions into the
// presence registry: subscribing to "/topic/dm/<room>" enters the room,
// unsubscribing or disconnecting leaves it.
//
// A user may hold the same room open from several connections. The user
// leaves the room only when the last of those subscriptions goes.
type PresenceTracker struct {
	registry *presence.Registry

	mu   sync.Mutex
	subs map[roomMember]int
}

type roomMember struct {
	room   string
	userID int64
}

// NewPresenceTracker creates a tracker over registry.
func NewPresenceTracker(registry *presence.Registry) *PresenceTracker {
	return &PresenceTracker{registry: registry, subs: make(map[roomMember]int)}
}

// OnSubscribe implements websocket.SubscriptionListener.
func (t *PresenceTracker) OnSubscribe(userID int64, topic string) {
	room, ok := directRoom(topic)
	if !ok {
		return
	}
	key := roomMember{room: room, userID: userID}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs[key]++
	if t.subs[key] == 1 {
		t.registry.Enter(room, userID)
	}
}

// OnUnsubscribe implements websocket.SubscriptionListener.
func (t *PresenceTracker) OnUnsubscribe(userID int64, topic string) {
	room, ok := directRoom(topic)
	if !ok {
		return
	}
	key := roomMember{room: room, userID: userID}

	t.mu.Lock()
	defer t.mu.Unlock()
	n, held := t.subs[key]
	if !held {
		return
	}
	if n > 1 {
		t.subs[key] = n - 1
		return
	}
	delete(t.subs, key)
	t.registry.Leave(room, userID)
}

func directRoom(topic string) (string, bool) {
	room, ok := strings.CutPrefix(topic, DirectTopicPrefix)
	return room, ok && room != ""
}
