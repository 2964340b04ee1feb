// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package services

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// fakeServer stands in for *http.Server. ListenAndServe returns startErr
// at once, or blocks until Shutdown or Close when hold is set.
type fakeServer struct {
	startErr    error
	shutdownErr error
	hold        bool

	serves, shutdowns, closes atomic.Int32

	started  chan struct{}
	released chan struct{}
	release  sync.Once
}

func newFakeServer() *fakeServer {
	return &fakeServer{started: make(chan struct{}, 1), released: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	f.serves.Add(1)
	select {
	case f.started <- struct{}{}:
	default:
	}
	if f.startErr != nil {
		return f.startErr
	}
	if f.hold {
		<-f.released
	}
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	if f.shutdownErr != nil {
		return f.shutdownErr
	}
	f.release.Do(func() { close(f.released) })
	return nil
}

func (f *fakeServer) Close() error {
	f.closes.Add(1)
	f.release.Do(func() { close(f.released) })
	return nil
}

func TestHTTPServerService_Interface(t *testing.T) {
	var _ suture.Service = (*HTTPServerService)(nil)
	var _ HTTPServer = (*http.Server)(nil)
}

func TestNewHTTPServerService_DefaultTimeout(t *testing.T) {
	server := newFakeServer()

	for _, d := range []time.Duration{0, -5 * time.Second} {
		svc := NewHTTPServerService(server, d)
		if svc.shutdownTimeout != 10*time.Second {
			t.Errorf("NewHTTPServerService(%v): timeout = %v, want 10s", d, svc.shutdownTimeout)
		}
	}

	if svc := NewHTTPServerService(server, 3*time.Second); svc.shutdownTimeout != 3*time.Second {
		t.Errorf("explicit timeout not kept: %v", svc.shutdownTimeout)
	}
}

func TestHTTPServerService_Serve(t *testing.T) {
	t.Run("shuts down gracefully on context cancellation", func(t *testing.T) {
		server := newFakeServer()
		server.hold = true
		svc := NewHTTPServerService(server, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		<-server.started
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return after context cancellation")
		}

		if server.shutdowns.Load() != 1 {
			t.Errorf("expected 1 Shutdown call, got %d", server.shutdowns.Load())
		}
		if server.closes.Load() != 0 {
			t.Errorf("Close should not be called after a clean shutdown")
		}
	})

	t.Run("returns error on startup failure", func(t *testing.T) {
		expectedErr := errors.New("bind: address already in use")
		server := newFakeServer()
		server.startErr = expectedErr

		err := NewHTTPServerService(server, time.Second).Serve(context.Background())
		if !errors.Is(err, expectedErr) {
			t.Errorf("expected %v, got %v", expectedErr, err)
		}
	})

	t.Run("unexpected close is a failure", func(t *testing.T) {
		server := newFakeServer()

		err := NewHTTPServerService(server, time.Second).Serve(context.Background())
		if !errors.Is(err, errHTTPServerExited) {
			t.Errorf("expected errHTTPServerExited, got %v", err)
		}
	})

	t.Run("forces close when shutdown times out", func(t *testing.T) {
		shutdownErr := context.DeadlineExceeded
		server := newFakeServer()
		server.hold = true
		server.shutdownErr = shutdownErr
		svc := NewHTTPServerService(server, 50*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		<-server.started
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, shutdownErr) {
				t.Errorf("expected shutdown error, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return")
		}
		if server.closes.Load() != 1 {
			t.Errorf("expected 1 Close call, got %d", server.closes.Load())
		}
	})
}

func TestHTTPServerService_String(t *testing.T) {
	if got := NewHTTPServerService(newFakeServer(), time.Second).String(); got != "http-server" {
		t.Errorf("expected 'http-server', got %q", got)
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

// A streaming handler blocks Shutdown until its request context ends, so the
// base context must be canceled when shutdown starts.
func TestHTTPServerService_DrainsStreams(t *testing.T) {
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	streaming := make(chan struct{})
	handlerDone := make(chan struct{})

	server := &http.Server{
		Addr:              freeAddr(t),
		ReadHeaderTimeout: time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer close(handlerDone)
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(": open\n\n"))
			w.(http.Flusher).Flush()
			close(streaming)
			<-r.Context().Done()
		}),
	}
	server.RegisterOnShutdown(cancelBase)

	svc := NewHTTPServerService(server, 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + server.Addr + "/stream")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never accepted connections: %v", err)
	}
	defer resp.Body.Close()

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil || line != ": open\n" {
		t.Fatalf("unexpected first line %q (err %v)", line, err)
	}
	<-streaming

	start := time.Now()
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return; stream kept the server open")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("shutdown took %v, streams should end promptly", elapsed)
	}

	select {
	case <-handlerDone:
	case <-time.After(time.Second):
		t.Error("stream handler did not return")
	}
}

func TestHTTPServerService_WithSupervisor(t *testing.T) {
	server := newFakeServer()
	server.hold = true
	svc := NewHTTPServerService(server, time.Second)

	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 3,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          2 * time.Second,
	})
	sup.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	select {
	case <-server.started:
	case <-time.After(time.Second):
		t.Fatal("server did not start")
	}

	cancel()
	<-errCh

	if server.shutdowns.Load() < 1 {
		t.Error("server Shutdown was not called")
	}
}
