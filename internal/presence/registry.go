// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

// Package presence tracks which users are currently active in each room.
//
// The registry is an estimate used to mark a new direct message read at
// creation time. It is not read-state storage and may lag the real
// connection state briefly during reconnects. A user present through two
// tabs who closes one is treated as having left.
package presence

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/tomtom215/teamlink/internal/metrics"
)

// DefaultShards is the shard count used when none is configured.
const DefaultShards = 32

type shard struct {
	mu    sync.RWMutex
	rooms map[string]map[int64]struct{}
}

// Registry maps room IDs to the set of present user IDs. Rooms are
// spread over independently locked shards; a room entry exists only while
// its member set is non-empty.
type Registry struct {
	shards []*shard
	rooms  atomic.Int64
}

// NewRegistry creates a registry with n shards (DefaultShards if n <= 0).
func NewRegistry(n int) *Registry {
	if n <= 0 {
		n = DefaultShards
	}
	r := &Registry{shards: make([]*shard, n)}
	for i := range r.shards {
		r.shards[i] = &shard{rooms: make(map[string]map[int64]struct{})}
	}
	return r
}

func (r *Registry) shardFor(roomID string) *shard {
	return r.shards[xxhash.Sum64String(roomID)%uint64(len(r.shards))]
}

// Enter marks userID present in roomID. Entering twice is a no-op.
func (r *Registry) Enter(roomID string, userID int64) {
	s := r.shardFor(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.rooms[roomID]
	if !ok {
		members = make(map[int64]struct{}, 2)
		s.rooms[roomID] = members
		r.rooms.Add(1)
		metrics.PresenceRooms.Inc()
	}
	members[userID] = struct{}{}
}

// Leave removes userID from roomID, deleting the room when it empties.
// Leaving a room the user is not in is a no-op.
func (r *Registry) Leave(roomID string, userID int64) {
	s := r.shardFor(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.rooms[roomID]
	if !ok {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(s.rooms, roomID)
		r.rooms.Add(-1)
		metrics.PresenceRooms.Dec()
	}
}

// BothPresent reports whether userA and userB are both in roomID.
func (r *Registry) BothPresent(roomID string, userA, userB int64) bool {
	s := r.shardFor(roomID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	members, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	_, a := members[userA]
	_, b := members[userB]
	return a && b
}

// IsPresent reports whether userID is in roomID.
func (r *Registry) IsPresent(roomID string, userID int64) bool {
	s := r.shardFor(roomID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.rooms[roomID][userID]
	return ok
}

// Members returns the sorted user IDs present in roomID, or nil.
func (r *Registry) Members(roomID string) []int64 {
	s := r.shardFor(roomID)
	s.mu.RLock()
	members, ok := s.rooms[roomID]
	if !ok {
		s.mu.RUnlock()
		return nil
	}
	out := make([]int64, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RoomCount returns the number of non-empty rooms.
func (r *Registry) RoomCount() int {
	return int(r.rooms.Load())
}
