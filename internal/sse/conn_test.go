// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package sse

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEvent_Encode(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "full",
			event: Event{ID: "17", Name: "invitation", Data: []byte(`{"a":1}`)},
			want:  "id: 17\nevent: invitation\ndata: {\"a\":1}\n\n",
		},
		{
			name:  "multiline data",
			event: Event{Data: []byte("one\ntwo")},
			want:  "data: one\ndata: two\n\n",
		},
		{
			name:  "retry and newline in name",
			event: Event{Name: "con\nnect", Retry: 3000, Data: []byte("ok")},
			want:  "event: connect\nretry: 3000\ndata: ok\n\n",
		},
		{
			name:  "empty",
			event: Event{},
			want:  "data: \n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := tt.event.WriteTo(&buf)
			if err != nil {
				t.Fatalf("WriteTo() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("WriteTo() = %q, want %q", buf.String(), tt.want)
			}
			if int(n) != len(tt.want) {
				t.Errorf("WriteTo() n = %d, want %d", n, len(tt.want))
			}
		})
	}
}

func TestConn_SendAndHeartbeat(t *testing.T) {
	rec := httptest.NewRecorder()
	conn, err := NewConn(rec)
	if err != nil {
		t.Fatalf("NewConn() error = %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != ContentType {
		t.Errorf("Content-Type = %q", ct)
	}

	ctx := context.Background()
	if err := conn.Send(ctx, Event{ID: "1", Name: "connect", Data: []byte("connected")}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := conn.Heartbeat(ctx); err != nil {
		t.Fatalf("Heartbeat() error = %v", err)
	}

	want := "id: 1\nevent: connect\ndata: connected\n\n: ping\n\n"
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
	if !rec.Flushed {
		t.Error("response not flushed")
	}
}

func TestConn_SendAfterClose(t *testing.T) {
	conn, err := NewConn(httptest.NewRecorder())
	if err != nil {
		t.Fatalf("NewConn() error = %v", err)
	}
	_ = conn.Close()
	_ = conn.Close()

	select {
	case <-conn.Done():
	default:
		t.Fatal("Done() not closed after Close()")
	}
	if err := conn.Send(context.Background(), Event{}); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("Send() after close = %v, want ErrStreamClosed", err)
	}
}

func TestConn_SendExpiredContext(t *testing.T) {
	conn, err := NewConn(httptest.NewRecorder())
	if err != nil {
		t.Fatalf("NewConn() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := conn.Send(ctx, Event{}); !errors.Is(err, ErrDeadConnection) {
		t.Errorf("Send() = %v, want ErrDeadConnection", err)
	}
}

type failingWriter struct {
	http.ResponseWriter
}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }
func (failingWriter) Flush()                    {}

func TestConn_WriteFailure(t *testing.T) {
	conn, err := NewConn(failingWriter{httptest.NewRecorder()})
	if err != nil {
		t.Fatalf("NewConn() error = %v", err)
	}
	if err := conn.Send(context.Background(), Event{Data: []byte("x")}); !errors.Is(err, ErrDeadConnection) {
		t.Errorf("Send() = %v, want ErrDeadConnection", err)
	}
}

type plainWriter struct {
	header http.Header
}

func (w *plainWriter) Header() http.Header         { return w.header }
func (w *plainWriter) Write(b []byte) (int, error) { return len(b), nil }
func (w *plainWriter) WriteHeader(int)             {}

func TestNewConn_RequiresFlusher(t *testing.T) {
	if _, err := NewConn(&plainWriter{header: http.Header{}}); !errors.Is(err, ErrStreamingUnsupported) {
		t.Errorf("NewConn() = %v, want ErrStreamingUnsupported", err)
	}
}

// stallWriter blocks every Write while stall is set until release closes.
type stallWriter struct {
	header  http.Header
	stall   atomic.Bool
	writes  atomic.Int32
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newStallWriter() *stallWriter {
	return &stallWriter{header: http.Header{}, entered: make(chan struct{}), release: make(chan struct{})}
}

func (w *stallWriter) Header() http.Header { return w.header }
func (w *stallWriter) WriteHeader(int)     {}
func (w *stallWriter) Flush()              {}

func (w *stallWriter) Write(b []byte) (int, error) {
	if w.stall.Load() {
		w.once.Do(func() { close(w.entered) })
		<-w.release
	}
	w.writes.Add(1)
	return len(b), nil
}

func TestConn_CloseWaitsForWriteInFlight(t *testing.T) {
	w := newStallWriter()
	conn, err := NewConn(w)
	if err != nil {
		t.Fatalf("NewConn() error = %v", err)
	}
	w.stall.Store(true)

	sendErr := make(chan error, 1)
	go func() { sendErr <- conn.Send(context.Background(), Event{Data: []byte("late")}) }()
	<-w.entered

	closed := make(chan struct{})
	go func() {
		_ = conn.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close() returned while a write was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(w.release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() did not return after the write finished")
	}
	if err := <-sendErr; err != nil {
		t.Errorf("in-flight Send() = %v, want nil", err)
	}

	before := w.writes.Load()
	if err := conn.Send(context.Background(), Event{Data: []byte("x")}); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("Send() after Close() = %v, want ErrStreamClosed", err)
	}
	if got := w.writes.Load(); got != before {
		t.Errorf("response written %d more times after Close()", got-before)
	}
}
