// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package logging is the structured logger every component takes a
// dependency on (spec.md §6: "--log-format=text|json"). Grounded on the
// teacher's engine/bft/logger_wrapper.go, which wraps its own
// github.com/luxfi/log around zap.Field-typed calls (Fatal/Error/Warn/
// Info/Debug/Trace) — we import zap directly rather than luxfi/log (an
// unpublishable private wrapper), but keep the same method surface and
// zap.Field argument style.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is an alias for zap.Field so callers write logging.String(...),
// logging.Uint64(...) etc. without importing zap directly.
type Field = zap.Field

var (
	String = zap.String
	Uint64 = zap.Uint64
	Uint32 = zap.Uint32
	Int    = zap.Int
	Int64  = zap.Int64
	Bool   = zap.Bool
	Err    = zap.Error
	Binary = zap.Binary
	Any    = zap.Any
)

// Format selects the log encoder (spec.md §6 --log-format).
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Level mirrors the teacher's level set, minus the bespoke Verbo (folded
// into Debug — zap has no analogous level and nothing in this domain
// reaches for trace-below-debug granularity).
type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
	LevelFatal = zapcore.FatalLevel
)

// Logger is the structured logging surface every package depends on.
type Logger struct {
	z *zap.Logger
}

// New builds a Logger at the given format and level. format defaults to
// text (console encoder) for anything other than FormatJSON.
func New(format Format, level Level) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if format != FormatJSON {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z}, nil
}

// NewNop builds a Logger that discards everything — for tests.
func NewNop() *Logger { return &Logger{z: zap.NewNop()} }

func (l *Logger) Debug(msg string, fields ...Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.z.Error(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...Field) { l.z.Fatal(msg, fields...) }

// With returns a child Logger carrying fields on every subsequent call,
// the same pattern the teacher's per-shard/per-component loggers use
// (one logger per actor, tagged with its shard index).
func (l *Logger) With(fields ...Field) *Logger { return &Logger{z: l.z.With(fields...)} }

// Sync flushes buffered log entries; callers defer this at process exit.
func (l *Logger) Sync() error { return l.z.Sync() }
