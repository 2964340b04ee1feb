// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig tunes restart behavior. Zero fields take the values from
// DefaultTreeConfig; negative fields are rejected.
type TreeConfig struct {
	// FailureThreshold is how many decayed failures trigger backoff.
	FailureThreshold float64

	// FailureDecay is the failure half-life in seconds.
	FailureDecay float64

	FailureBackoff time.Duration

	// ShutdownTimeout bounds how long each service gets to stop.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig mirrors suture's own defaults, except for a 10s stop budget.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

var errNegativeTreeConfig = errors.New("supervisor: tree config values must not be negative")

func (c TreeConfig) resolve() (TreeConfig, error) {
	if c.FailureThreshold < 0 || c.FailureDecay < 0 || c.FailureBackoff < 0 || c.ShutdownTimeout < 0 {
		return c, errNegativeTreeConfig
	}
	d := DefaultTreeConfig()
	orFloat := func(v, def float64) float64 {
		if v == 0 {
			return def
		}
		return v
	}
	orDur := func(v, def time.Duration) time.Duration {
		if v == 0 {
			return def
		}
		return v
	}
	return TreeConfig{
		FailureThreshold: orFloat(c.FailureThreshold, d.FailureThreshold),
		FailureDecay:     orFloat(c.FailureDecay, d.FailureDecay),
		FailureBackoff:   orDur(c.FailureBackoff, d.FailureBackoff),
		ShutdownTimeout:  orDur(c.ShutdownTimeout, d.ShutdownTimeout),
	}, nil
}

func (c TreeConfig) spec() suture.Spec {
	return suture.Spec{
		FailureThreshold: c.FailureThreshold,
		FailureDecay:     c.FailureDecay,
		FailureBackoff:   c.FailureBackoff,
		Timeout:          c.ShutdownTimeout,
	}
}

// SupervisorTree is a root supervisor over two layers. The messaging layer
// runs the dispatch router and websocket hub; the api layer runs the HTTP
// server. A crash loop in one layer backs off without restarting the other.
type SupervisorTree struct {
	root      *suture.Supervisor
	messaging *suture.Supervisor
	api       *suture.Supervisor
	config    TreeConfig
}

// NewSupervisorTree builds the tree and routes supervisor events to logger.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	config, err := config.resolve()
	if err != nil {
		return nil, err
	}

	rootSpec := config.spec()
	// MustHook has a pointer receiver; children inherit the hook on Add.
	rootSpec.EventHook = (&sutureslog.Handler{Logger: logger}).MustHook()

	t := &SupervisorTree{
		root:      suture.New("teamlink", rootSpec),
		messaging: suture.New("messaging-layer", config.spec()),
		api:       suture.New("api-layer", config.spec()),
		config:    config,
	}
	t.root.Add(t.messaging)
	t.root.Add(t.api)
	return t, nil
}

// Root returns the top supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor { return t.root }

// Config returns the configuration after defaults were applied.
func (t *SupervisorTree) Config() TreeConfig { return t.config }

// AddMessagingService supervises svc in the messaging layer.
func (t *SupervisorTree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.Add(svc)
}

// RemoveMessagingService stops and removes a messaging service.
func (t *SupervisorTree) RemoveMessagingService(token suture.ServiceToken) error {
	return t.messaging.Remove(token)
}

// AddAPIService supervises svc in the api layer.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve blocks until ctx is canceled and every service has stopped.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree in a goroutine. The channel receives the
// single result of Serve and is never closed.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services still running after their
// ShutdownTimeout. It is only meaningful once Serve has returned.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
