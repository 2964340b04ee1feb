// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

// Package notify pushes persisted notifications to every live SSE
// connection of their recipient held by this process.
//
// Delivery is best-effort. A user with no connection simply misses the live
// update; a connection whose send fails is removed and closed, and the
// remaining connections still receive the event. Nothing is retried or
// buffered.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/teamlink/internal/logging"
	"github.com/tomtom215/teamlink/internal/metrics"
	"github.com/tomtom215/teamlink/internal/sse"
)

// Config holds dispatcher timeouts.
type Config struct {
	// SendTimeout bounds each per-connection write.
	SendTimeout time.Duration
	// HeartbeatInterval is the keep-alive comment period; zero disables it.
	HeartbeatInterval time.Duration
	// StreamTimeout ends a subscription after this long; zero means never.
	StreamTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		SendTimeout:       5 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		StreamTimeout:     time.Hour,
	}
}

// LiveStream is a stream a subscriber holds open.
type LiveStream interface {
	sse.Stream
	Heartbeat(ctx context.Context) error
	Done() <-chan struct{}
}

// Result summarizes one Deliver call.
type Result struct {
	Delivered int `json:"delivered"`
	Pruned    int `json:"pruned"`
}

// Dispatcher delivers notifications through a connection registry.
type Dispatcher struct {
	registry *sse.Registry[sse.Stream]
	cfg      Config
	seq      atomic.Uint64
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *sse.Registry[sse.Stream], cfg Config) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultConfig().SendTimeout
	}
	d := &Dispatcher{registry: registry, cfg: cfg}
	// Event IDs stay increasing across restarts.
	d.seq.Store(uint64(time.Now().UnixNano()))
	return d
}

// Registry returns the connection registry.
func (d *Dispatcher) Registry() *sse.Registry[sse.Stream] {
	return d.registry
}

func (d *Dispatcher) nextID() string {
	return strconv.FormatUint(d.seq.Add(1), 10)
}

// Deliver sends n to every connection of its recipient. It never fails:
// an absent recipient is normal and dead connections are pruned. Sends are
// bounded by SendTimeout only; ctx ending does not mark any connection dead.
func (d *Dispatcher) Deliver(ctx context.Context, n Notification) Result {
	var res Result
	sendCtx := context.WithoutCancel(ctx)

	streams := d.registry.Snapshot(n.RecipientID)
	if len(streams) == 0 {
		metrics.RecordNoListener()
		return res
	}

	data, err := json.Marshal(ViewOf(n))
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Int64("notification_id", n.ID).Msg("Failed to encode notification")
		return res
	}
	ev := sse.Event{ID: d.nextID(), Name: n.Type.EventName(), Data: data}

	for _, stream := range streams {
		if err := d.send(sendCtx, stream, ev); err != nil {
			d.prune(ctx, n.RecipientID, stream, err)
			res.Pruned++
			continue
		}
		res.Delivered++
		metrics.RecordNotificationDelivered(ev.Name)
	}
	return res
}

func (d *Dispatcher) send(ctx context.Context, stream sse.Stream, ev sse.Event) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()
	return stream.Send(sendCtx, ev)
}

func (d *Dispatcher) prune(ctx context.Context, userID int64, stream sse.Stream, cause error) {
	if !d.registry.Remove(userID, stream) {
		return
	}
	_ = stream.Close()
	metrics.RecordDeadConnection()
	logging.Ctx(ctx).Debug().Err(cause).Int64("user_id", userID).Msg("Removed dead connection")
}

// Subscribe registers stream for userID, sends a "connect" event and holds
// the subscription open until ctx ends, the stream is closed, the stream
// timeout passes or a heartbeat fails. The stream is always removed and
// closed on return.
func (d *Dispatcher) Subscribe(ctx context.Context, userID int64, stream LiveStream) error {
	d.registry.Add(userID, stream)
	defer func() {
		d.registry.Remove(userID, stream)
		_ = stream.Close()
	}()

	hello := sse.Event{ID: d.nextID(), Name: "connect", Data: []byte("connected")}
	if err := d.send(ctx, stream, hello); err != nil {
		return fmt.Errorf("send connect event: %w", err)
	}
	logging.Ctx(ctx).Debug().Int64("user_id", userID).Msg("SSE subscription opened")

	var timeout <-chan time.Time
	if d.cfg.StreamTimeout > 0 {
		timer := time.NewTimer(d.cfg.StreamTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	var heartbeat <-chan time.Time
	if d.cfg.HeartbeatInterval > 0 {
		ticker := time.NewTicker(d.cfg.HeartbeatInterval)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stream.Done():
			return nil
		case <-timeout:
			logging.Ctx(ctx).Debug().Int64("user_id", userID).Msg("SSE subscription timed out")
			return nil
		case <-heartbeat:
			hbCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
			err := stream.Heartbeat(hbCtx)
			cancel()
			if err != nil {
				metrics.RecordDeadConnection()
				logging.Ctx(ctx).Debug().Err(err).Int64("user_id", userID).Msg("SSE heartbeat failed")
				return nil
			}
		}
	}
}

// DisconnectAll closes every stream of userID and returns how many there were.
func (d *Dispatcher) DisconnectAll(userID int64) int {
	streams := d.registry.RemoveAll(userID)
	for _, s := range streams {
		_ = s.Close()
	}
	return len(streams)
}
