// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package sse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrDeadConnection wraps any failed write to a connection.
	ErrDeadConnection = errors.New("dead connection")

	// ErrStreamClosed is returned when writing to a closed stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrStreamingUnsupported is returned when the response cannot flush.
	ErrStreamingUnsupported = errors.New("response writer does not support streaming")
)

// Stream is a single-subscriber push connection.
type Stream interface {
	// Send writes one event, bounded by ctx.
	Send(ctx context.Context, ev Event) error
	// Close ends the stream. It is safe to call more than once.
	Close() error
}

var connSeq atomic.Uint64

// Conn is a Stream over an HTTP response. Writes are serialized; the
// request handler that created the Conn keeps the response open until
// Done is closed.
type Conn struct {
	id uint64
	w  http.ResponseWriter
	rc *http.ResponseController

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// NewConn writes the event-stream headers and flushes them.
func NewConn(w http.ResponseWriter) (*Conn, error) {
	if _, ok := w.(http.Flusher); !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", ContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	c := &Conn{
		id:   connSeq.Add(1),
		w:    w,
		rc:   http.NewResponseController(w),
		done: make(chan struct{}),
	}
	if err := c.rc.Flush(); err != nil {
		return nil, fmt.Errorf("flush headers: %w", err)
	}
	return c, nil
}

// ID returns the process-unique connection number.
func (c *Conn) ID() uint64 { return c.id }

// Send writes ev and flushes. A write that does not complete before ctx's
// deadline fails, and any failure wraps ErrDeadConnection.
func (c *Conn) Send(ctx context.Context, ev Event) error {
	return c.write(ctx, ev.Encode(nil))
}

// Heartbeat writes a comment line to keep intermediaries from timing out.
func (c *Conn) Heartbeat(ctx context.Context) error {
	return c.write(ctx, comment)
}

func (c *Conn) write(ctx context.Context, frame []byte) error {
	select {
	case <-c.done:
		return ErrStreamClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeadConnection, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	// Close may have won the race for the lock.
	select {
	case <-c.done:
		return ErrStreamClosed
	default:
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.rc.SetWriteDeadline(deadline); err == nil {
			defer func() { _ = c.rc.SetWriteDeadline(time.Time{}) }()
		}
	}

	if _, err := c.w.Write(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrDeadConnection, err)
	}
	if err := c.rc.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeadConnection, err)
	}
	return nil
}

// Close marks the stream finished and waits for any write in progress.
// No write touches the response after Close returns, so the owning request
// handler may return once Close does. Close must not be called from inside
// a write.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	c.writeMu.Lock()
	c.writeMu.Unlock() //nolint:staticcheck // empty critical section waits out the writer
	return nil
}

// Done is closed by Close.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}
