// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

// Package dispatch demultiplexes bus envelopes to per-domain handlers by
// channel prefix.
//
// A process runs one Router. It subscribes to every channel on the bus and,
// for each envelope, invokes the first registered handler whose prefix is a
// string prefix of the channel. Handler errors and panics are logged and
// swallowed; envelopes with no matching handler are logged and dropped.
// Neither ever stops the subscription.
//
// Handlers run synchronously on the transport's delivery goroutine, so a
// slow handler delays the envelopes behind it. The handlers in this module
// only decode and enqueue onto the websocket hub, which never blocks.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/teamlink/internal/bus"
	"github.com/tomtom215/teamlink/internal/logging"
	"github.com/tomtom215/teamlink/internal/metrics"
)

// Source supplies the subscriber and all-channels topic to consume.
// *bus.Client implements it.
type Source interface {
	Subscriber() (message.Subscriber, string)
}

// Config holds router settings.
type Config struct {
	// CloseTimeout bounds how long Run waits for an in-flight envelope on shutdown.
	CloseTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{CloseTimeout: 10 * time.Second}
}

// Stats is a point-in-time copy of router counters.
type Stats struct {
	Received   int64 `json:"received"`
	Dispatched int64 `json:"dispatched"`
	Failed     int64 `json:"failed"`
	Unroutable int64 `json:"unroutable"`
	Malformed  int64 `json:"malformed"`
}

// Router is the process-wide dispatch router.
type Router struct {
	handlers []Handler
	source   Source
	config   Config
	logger   watermill.LoggerAdapter

	running     chan struct{}
	runningOnce sync.Once
	active      atomic.Bool

	received   atomic.Int64
	dispatched atomic.Int64
	failed     atomic.Int64
	unroutable atomic.Int64
	malformed  atomic.Int64
}

// NewRouter creates a router over source with an immutable handler list.
// Handlers are matched in the order given. Empty or overlapping prefixes
// are rejected because they would make the match order significant.
func NewRouter(source Source, cfg Config, handlers ...Handler) (*Router, error) {
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = DefaultConfig().CloseTimeout
	}

	for i, h := range handlers {
		if isNil(h) {
			return nil, fmt.Errorf("handler %d: %w", i, ErrNilHandler)
		}
		if h.Prefix() == "" {
			return nil, fmt.Errorf("handler %d: empty prefix: %w", i, ErrOverlappingPrefix)
		}
		for _, prev := range handlers[:i] {
			a, b := prev.Prefix(), h.Prefix()
			if strings.HasPrefix(a, b) || strings.HasPrefix(b, a) {
				return nil, fmt.Errorf("%q and %q: %w", a, b, ErrOverlappingPrefix)
			}
		}
	}

	list := make([]Handler, len(handlers))
	copy(list, handlers)

	return &Router{
		handlers: list,
		source:   source,
		config:   cfg,
		logger:   logging.NewWatermillLogger("dispatch-router"),
		running:  make(chan struct{}),
	}, nil
}

func isNil(h Handler) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// Dispatch routes one envelope. It returns ErrUnroutableChannel when no
// prefix matches and a *DispatchError when the handler fails or panics.
func (r *Router) Dispatch(ctx context.Context, env bus.Envelope) (err error) {
	var h Handler
	for _, candidate := range r.handlers {
		if strings.HasPrefix(env.Channel, candidate.Prefix()) {
			h = candidate
			break
		}
	}
	if h == nil {
		return fmt.Errorf("channel %q: %w", env.Channel, ErrUnroutableChannel)
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = &DispatchError{
				Channel: env.Channel,
				Prefix:  h.Prefix(),
				Err:     fmt.Errorf("panic: %v\n%s", p, debug.Stack()),
			}
		}
		metrics.RecordDispatch(h.Prefix(), time.Since(start), err)
	}()

	if herr := h.Handle(ctx, env.Channel, env.Payload); herr != nil {
		return &DispatchError{Channel: env.Channel, Prefix: h.Prefix(), Err: herr}
	}
	return nil
}

// handleMessage is the Watermill consumer. It always returns nil so the
// message is acked: a failed envelope is never redelivered.
func (r *Router) handleMessage(msg *message.Message) error {
	r.received.Add(1)

	ctx := msg.Context()
	if id := middleware.MessageCorrelationID(msg); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}

	env, err := bus.EnvelopeFromMessage(msg)
	if err != nil {
		r.malformed.Add(1)
		logging.Ctx(ctx).Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping message without channel")
		return nil
	}

	err = r.Dispatch(ctx, env)
	switch {
	case err == nil:
		r.dispatched.Add(1)
	case errors.Is(err, ErrUnroutableChannel):
		r.unroutable.Add(1)
		metrics.RecordUnroutable()
		logging.Ctx(ctx).Warn().Str("channel", env.Channel).Msg("Dropping unroutable envelope")
	default:
		r.failed.Add(1)
		logging.Ctx(ctx).Error().Err(err).Str("channel", env.Channel).Msg("Envelope dispatch failed")
	}
	return nil
}

// Run subscribes to all channels and dispatches until ctx is canceled.
// Each call builds a fresh Watermill router, so a supervisor may call Run
// again after it returns.
func (r *Router) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("dispatch router has no source")
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: r.config.CloseTimeout,
	}, r.logger)
	if err != nil {
		return fmt.Errorf("create watermill router: %w", err)
	}

	subscriber, topic := r.source.Subscriber()
	wmRouter.AddConsumerHandler("dispatch", topic, sharedSubscriber{subscriber}, r.handleMessage)

	stopped := make(chan struct{})
	watcherDone := make(chan struct{})

	go func() {
		defer close(watcherDone)
		select {
		case <-wmRouter.Running():
			r.active.Store(true)
			r.runningOnce.Do(func() { close(r.running) })
			logging.Info().
				Str("topic", topic).
				Int("handlers", len(r.handlers)).
				Msg("Dispatch router running")
		case <-stopped:
		}
	}()

	err = wmRouter.Run(ctx)
	close(stopped)
	<-watcherDone
	r.active.Store(false)
	if err != nil {
		return fmt.Errorf("dispatch router: %w", err)
	}
	return nil
}

// sharedSubscriber keeps the Watermill router from closing the bus
// transport on shutdown. The bus client owns the transport; the router's
// subscription ends through its context.
type sharedSubscriber struct {
	message.Subscriber
}

func (sharedSubscriber) Close() error { return nil }

// Running returns a channel closed the first time the router is subscribed.
func (r *Router) Running() <-chan struct{} {
	return r.running
}

// IsRunning reports whether Run is currently consuming.
func (r *Router) IsRunning() bool {
	return r.active.Load()
}

// Prefixes returns the registered prefixes in match order.
func (r *Router) Prefixes() []string {
	out := make([]string, len(r.handlers))
	for i, h := range r.handlers {
		out[i] = h.Prefix()
	}
	return out
}

// Stats returns the current counters.
func (r *Router) Stats() Stats {
	return Stats{
		Received:   r.received.Load(),
		Dispatched: r.dispatched.Load(),
		Failed:     r.failed.Load(),
		Unroutable: r.unroutable.Load(),
		Malformed:  r.malformed.Load(),
	}
}
