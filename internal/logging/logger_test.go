// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("channel", "chatroom:42").Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("expected output to contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, `"channel":"chatroom:42"`) {
		t.Errorf("expected structured field, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCtx_AddsCorrelationAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithCorrelationID(ctx, "abc12345")
	ctx = ContextWithRequestID(ctx, "req-1")

	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"correlation_id":"abc12345"`) {
		t.Errorf("missing correlation_id in %s", out)
	}
	if !strings.Contains(out, `"request_id":"req-1"`) {
		t.Errorf("missing request_id in %s", out)
	}
}

func TestCorrelationIDFromContext_Missing(t *testing.T) {
	if id := CorrelationIDFromContext(context.Background()); id != "" {
		t.Errorf("expected empty correlation id, got %q", id)
	}
	if id := GenerateCorrelationID(); len(id) != 8 {
		t.Errorf("expected 8 char correlation id, got %q", id)
	}
}

func TestSlogHandler_WritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&SlogHandler{logger: NewTestLogger(&buf)})

	logger.WithGroup("svc").Warn("service restarted", "name", "dispatch-router", "attempt", 2)

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("expected warn level, got %s", out)
	}
	if !strings.Contains(out, `"svc.name":"dispatch-router"`) {
		t.Errorf("expected grouped key, got %s", out)
	}
	if !strings.Contains(out, `"svc.attempt":2`) {
		t.Errorf("expected int attr, got %s", out)
	}
}

func TestWatermillAdapter(t *testing.T) {
	var buf bytes.Buffer
	var adapter watermill.LoggerAdapter = NewWatermillLoggerWith(NewTestLogger(&buf))

	adapter.With(watermill.LogFields{"handler": "dispatch"}).
		Error("handler failed", errors.New("boom"), watermill.LogFields{"topic": "delivery.>"})

	out := buf.String()
	for _, want := range []string{`"handler":"dispatch"`, `"topic":"delivery.>"`, `"error":"boom"`, "handler failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestSlogHandler_BoundAttrsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&SlogHandler{logger: NewTestLogger(&buf)}).
		With("service", "hub").
		WithGroup("restart")

	logger.Error("gave up", slog.Group("backoff", "seconds", 15))

	out := buf.String()
	for _, want := range []string{`"level":"error"`, `"service":"hub"`, `"restart.backoff.seconds":15`, "gave up"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}

	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn + 1, zerolog.WarnLevel},
		{slog.LevelError + 4, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := zerologLevel(tt.in); got != tt.want {
			t.Errorf("zerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetLogger_ReplacesGlobal(t *testing.T) {
	prev := Logger()
	defer SetLogger(prev)

	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	Warn().Str("subscriber", "7").Msg("slow consumer")

	if !strings.Contains(buf.String(), `"subscriber":"7"`) {
		t.Errorf("global logger not replaced: %s", buf.String())
	}
}
