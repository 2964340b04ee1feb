// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

// Package sse holds the live-connection registry and the Server-Sent Events
// stream handle used to push notifications to browsers.
package sse

import (
	"sync"
	"sync/atomic"

	"github.com/tomtom215/teamlink/internal/metrics"
)

// DefaultShards is the shard count used when none is configured.
const DefaultShards = 64

type registryShard[H comparable] struct {
	mu    sync.RWMutex
	users map[int64]map[H]struct{}
}

// Registry maps user IDs to their live connection handles. Users are
// spread over independently locked shards so different users never contend
// on one lock. A user entry exists only while it holds at least one handle.
//
// Callers never hold a registry lock while writing to a connection:
// Snapshot copies the handle set and releases the lock before returning.
type Registry[H comparable] struct {
	shards []*registryShard[H]
	users  atomic.Int64
	conns  atomic.Int64
}

// NewRegistry creates a registry with n shards (DefaultShards if n <= 0).
func NewRegistry[H comparable](n int) *Registry[H] {
	if n <= 0 {
		n = DefaultShards
	}
	r := &Registry[H]{shards: make([]*registryShard[H], n)}
	for i := range r.shards {
		r.shards[i] = &registryShard[H]{users: make(map[int64]map[H]struct{})}
	}
	return r
}

func (r *Registry[H]) shardFor(userID int64) *registryShard[H] {
	return r.shards[uint64(userID)%uint64(len(r.shards))]
}

// Add registers handle for userID. It reports false if the handle was
// already registered.
func (r *Registry[H]) Add(userID int64, handle H) bool {
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.users[userID]
	if !ok {
		set = make(map[H]struct{}, 1)
		s.users[userID] = set
		r.users.Add(1)
	}
	if _, dup := set[handle]; dup {
		return false
	}
	set[handle] = struct{}{}
	r.conns.Add(1)
	metrics.SSEConnections.Inc()
	return true
}

// Remove drops one handle. Removing the last handle deletes the user entry.
// A second Remove of the same handle is a no-op and reports false.
func (r *Registry[H]) Remove(userID int64, handle H) bool {
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.users[userID]
	if !ok {
		return false
	}
	if _, present := set[handle]; !present {
		return false
	}
	delete(set, handle)
	r.conns.Add(-1)
	metrics.SSEConnections.Dec()
	if len(set) == 0 {
		delete(s.users, userID)
		r.users.Add(-1)
	}
	return true
}

// RemoveAll drops every handle for userID and returns them.
func (r *Registry[H]) RemoveAll(userID int64) []H {
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.users[userID]
	if !ok {
		return nil
	}
	out := make([]H, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	delete(s.users, userID)
	r.users.Add(-1)
	r.conns.Add(-int64(len(out)))
	metrics.SSEConnections.Sub(float64(len(out)))
	return out
}

// Snapshot returns a copy of the handles registered for userID.
// The copy is safe to iterate while the registry changes.
func (r *Registry[H]) Snapshot(userID int64) []H {
	s := r.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.users[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]H, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	return out
}

// Has reports whether userID has an entry.
func (r *Registry[H]) Has(userID int64) bool {
	s := r.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok
}

// Count returns the number of handles registered for userID.
func (r *Registry[H]) Count(userID int64) int {
	s := r.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[userID])
}

// Users returns the number of users with at least one handle.
func (r *Registry[H]) Users() int {
	return int(r.users.Load())
}

// Connections returns the total number of registered handles.
func (r *Registry[H]) Connections() int {
	return int(r.conns.Load())
}
