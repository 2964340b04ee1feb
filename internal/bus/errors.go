// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package bus

import (
	"errors"
	"fmt"
)

var (
	// ErrPublishFailed is matched by every *PublishError.
	ErrPublishFailed = errors.New("publish failed")

	// ErrEmptyChannel is returned when a publish or envelope has no channel.
	ErrEmptyChannel = errors.New("channel name is empty")

	// ErrClientClosed is returned by operations on a closed Client.
	ErrClientClosed = errors.New("bus client is closed")

	// ErrUnknownBackend is returned for an unsupported transport backend name.
	ErrUnknownBackend = errors.New("unknown bus backend")
)

// PublishError reports a failed publish on a specific channel.
// The triggering business write is unaffected; only the fan-out is lost.
type PublishError struct {
	Channel string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to channel %q: %v", e.Channel, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrPublishFailed) match any PublishError.
func (e *PublishError) Is(target error) bool {
	return target == ErrPublishFailed
}
