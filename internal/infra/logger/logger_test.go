package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestFromContext_AttachesBusinessFields(t *testing.T) {
	var buf bytes.Buffer
	base := build(&buf, slog.LevelInfo, false)

	ctx := WithStage(WithClientID(WithRunID(context.Background(), "run-1"), "client-9"), "recall")
	FromContext(ctx, base).Info("recall_completed")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "run-1", rec["recsys.run.id"])
	assert.Equal(t, "client-9", rec["recsys.client.id"])
	assert.Equal(t, "recall", rec["recsys.stage"])
}

func TestFromContext_NoFieldsReturnsBase(t *testing.T) {
	base := slog.Default()
	assert.Same(t, base, FromContext(context.Background(), base))
}

func TestTraceContextHandler_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewTraceContextHandler(slog.NewJSONHandler(&buf, nil)))

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	log.InfoContext(ctx, "inside_span")
	span.End()

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, span.SpanContext().TraceID().String(), rec["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), rec["span_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
