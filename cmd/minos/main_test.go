package main

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

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		minos    string
		fallback string
		want     slog.Level
	}{
		{name: "unset", want: slog.LevelWarn},
		{name: "prefixed_debug", minos: "debug", want: slog.LevelDebug},
		{name: "prefixed_wins", minos: "error", fallback: "debug", want: slog.LevelError},
		{name: "fallback", fallback: "INFO", want: slog.LevelInfo},
		{name: "invalid", minos: "loud", want: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MINOS_LOG_LEVEL", tt.minos)
			t.Setenv("LOG_LEVEL", tt.fallback)
			assert.Equal(t, tt.want, getLogLevel())
		})
	}
}

func TestTraceHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(&traceHandler{Handler: slog.NewJSONHandler(&buf, nil)}).With("component", "test")

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "Inside span")
	span.End()

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, span.SpanContext().TraceID().String(), record["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), record["span_id"])
	assert.Equal(t, "test", record["component"])

	buf.Reset()
	logger.InfoContext(context.Background(), "Outside span")
	var plain map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &plain))
	assert.NotContains(t, plain, "trace_id")
}
