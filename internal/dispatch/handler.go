// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package dispatch

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnroutableChannel is returned when no handler prefix matches.
	ErrUnroutableChannel = errors.New("no handler for channel")

	// ErrHandlerDispatchFailed is matched by every *DispatchError.
	ErrHandlerDispatchFailed = errors.New("handler dispatch failed")

	// ErrOverlappingPrefix is returned by NewRouter for empty, duplicate or
	// overlapping handler prefixes.
	ErrOverlappingPrefix = errors.New("overlapping handler prefix")

	// ErrNilHandler is returned by NewRouter for a nil handler, including a
	// nil pointer stored in the interface.
	ErrNilHandler = errors.New("nil handler")
)

// Handler owns one channel prefix and turns envelopes on it into
// broadcast-sink sends.
type Handler interface {
	Prefix() string
	Handle(ctx context.Context, channel string, payload []byte) error
}

// HandlerFunc is the function form of Handler.Handle.
type HandlerFunc func(ctx context.Context, channel string, payload []byte) error

type funcHandler struct {
	prefix string
	fn     HandlerFunc
}

// NewHandler pairs a prefix with a handle function.
func NewHandler(prefix string, fn HandlerFunc) Handler {
	return funcHandler{prefix: prefix, fn: fn}
}

func (h funcHandler) Prefix() string { return h.prefix }

func (h funcHandler) Handle(ctx context.Context, channel string, payload []byte) error {
	return h.fn(ctx, channel, payload)
}

// DispatchError reports a handler failure (returned error or panic).
type DispatchError struct {
	Channel string
	Prefix  string
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("handler %q failed on channel %q: %v", e.Prefix, e.Channel, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrHandlerDispatchFailed) match any DispatchError.
func (e *DispatchError) Is(target error) bool {
	return target == ErrHandlerDispatchFailed
}
