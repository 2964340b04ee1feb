// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/teamlink/internal/logging"
)

const defaultHTTPShutdownTimeout = 10 * time.Second

// errHTTPServerExited means ListenAndServe returned while the service was
// still supposed to be running.
var errHTTPServerExited = errors.New("http server exited unexpectedly")

// HTTPServer is the part of *http.Server the service needs.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
	Close() error
}

// HTTPServerService supervises an HTTP server.
//
// SSE and websocket connections never go idle, so a plain Shutdown waits out
// the whole timeout. Wire the server's BaseContext to a context canceled from
// RegisterOnShutdown so stream handlers return. Connections still open when
// the timeout expires are closed.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps server. shutdownTimeout <= 0 means 10s.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultHTTPShutdownTimeout
	}
	return &HTTPServerService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service. It returns ctx.Err() after a clean drain.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	exited := make(chan error, 1)
	go func() { exited <- h.server.ListenAndServe() }()

	select {
	case err := <-exited:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return errHTTPServerExited
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.shutdownTimeout)
	defer cancel()

	shutdownErr := h.server.Shutdown(drainCtx)
	if shutdownErr != nil {
		logging.Warn().Err(shutdownErr).Dur("timeout", h.shutdownTimeout).
			Msg("HTTP server did not drain in time, closing remaining connections")
		if err := h.server.Close(); err != nil {
			logging.Debug().Err(err).Msg("HTTP server close")
		}
	}
	<-exited

	if shutdownErr != nil {
		return fmt.Errorf("http server shutdown: %w", shutdownErr)
	}
	return ctx.Err()
}

func (h *HTTPServerService) String() string { return "http-server" }
