// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

// Package logging provides the zerolog-based global logger used across Teamlink.
//
// Every component logs through this package so that the delivery path, the
// supervisor (via the slog bridge) and the watermill router (via the
// watermill bridge) all emit the same structured JSON lines.
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("channel", ch).Msg("envelope dispatched")
//	logging.Ctx(ctx).Warn().Err(err).Msg("publish failed")
//
// Environment variables (read by internal/config):
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is trace, debug, info, warn, error, fatal, panic or disabled.
	// Unknown values fall back to info.
	Level string

	// Format is json or console.
	Format string

	// Caller adds the file:line of the log call.
	Caller bool

	Timestamp bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns info-level JSON with timestamps on stderr.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Timestamp: true, Output: os.Stderr}
}

var global atomic.Pointer[zerolog.Logger]

//nolint:gochecknoinits // logging must work before Init is called from main
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	Init(DefaultConfig())
}

// Init replaces the global logger. It may be called more than once.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	ctx := zerolog.New(out).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	SetLogger(ctx.Logger())
}

// parseLevel accepts zerolog level names plus "warning". Anything it cannot
// read, including the empty string, is info.
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	return *global.Load()
}

// SetLogger replaces the global logger without touching the global level.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func SetLogger(l zerolog.Logger) {
	global.Store(&l)
}

// With starts a child logger context from the global logger.
func With() zerolog.Context {
	return global.Load().With()
}

// Debug starts a debug level event on the global logger.
func Debug() *zerolog.Event { return global.Load().Debug() }

// Info starts an info level event on the global logger.
func Info() *zerolog.Event { return global.Load().Info() }

// Warn starts a warn level event on the global logger.
func Warn() *zerolog.Event { return global.Load().Warn() }

// Error starts an error level event on the global logger.
func Error() *zerolog.Event { return global.Load().Error() }

// Fatal starts a fatal level event. The process exits after Msg.
func Fatal() *zerolog.Event { return global.Load().Fatal() }

// NewTestLogger returns a timestamped JSON logger writing to w.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
