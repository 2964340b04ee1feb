// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package services

import (
	"context"
	"errors"
	"fmt"
)

// ErrRouterStopped is returned when the router exits while its context is
// still live, e.g. the bus subscription was closed underneath it.
var ErrRouterStopped = errors.New("dispatch router stopped unexpectedly")

// RouterRunner is satisfied by *dispatch.Router. Run must be callable again
// after it returns.
type RouterRunner interface {
	Run(ctx context.Context) error
}

// RouterService runs the dispatch router's bus subscription under supervision.
type RouterService struct {
	router RouterRunner
	name   string
}

// NewRouterService creates a dispatch router service wrapper.
func NewRouterService(router RouterRunner) *RouterService {
	return &RouterService{
		router: router,
		name:   "dispatch-router",
	}
}

// Serve implements suture.Service.
func (s *RouterService) Serve(ctx context.Context) error {
	err := s.router.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRouterStopped, err)
	}
	return ErrRouterStopped
}

// String implements fmt.Stringer.
func (s *RouterService) String() string {
	return s.name
}
