package logger

import (
	"context"
	"log/slog"
	"strings"
)

type ContextKey string

// Business context keys, following the OpenTelemetry attribute naming style.
const (
	RunIDKey    ContextKey = "recsys.run.id"
	ClientIDKey ContextKey = "recsys.client.id"
	StageKey    ContextKey = "recsys.stage"
)

var contextKeys = []ContextKey{RunIDKey, ClientIDKey, StageKey}

// WithRunID adds the pipeline run id to ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithClientID adds the client id to ctx.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, ClientIDKey, clientID)
}

// WithStage adds the current pipeline stage to ctx.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}

// FromContext returns base with the business fields found in ctx attached.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	var fields []any
	for _, key := range contextKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			fields = append(fields, string(key), v)
		}
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ParseLevel maps a LOG_LEVEL value to an slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
