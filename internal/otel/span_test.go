package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/minos/internal/syncerr"
)

// newTestTracerProvider creates a tracer provider with an in-memory exporter
func newTestTracerProvider(t *testing.T) (*tracetest.InMemoryExporter, trace.TracerProvider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter, tp
}

func TestStartSpan_NilTracer(t *testing.T) {
	t.Parallel()

	ctx, span := StartSpan(context.Background(), nil, "rulesync.Sync")
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	assert.False(t, span.SpanContext().IsValid())
	assert.NotPanics(t, func() { span.End() })
}

func TestStartSpan_ValidTracer(t *testing.T) {
	t.Parallel()

	exporter, tp := newTestTracerProvider(t)

	_, span := StartSpan(context.Background(), tp.Tracer("test"), "rulesync.Sync",
		trace.WithAttributes(AttrRegulation.String("gdpr"), AttrVersion.String("v1.0.0")),
	)
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "rulesync.Sync", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, AttrRegulation.String("gdpr"))
	assert.Contains(t, spans[0].Attributes, AttrVersion.String("v1.0.0"))
}

func TestRecordError(t *testing.T) {
	t.Parallel()

	t.Run("nil safety", func(t *testing.T) {
		t.Parallel()
		assert.NotPanics(t, func() { RecordError(nil, errors.New("boom")) })
		assert.NotPanics(t, func() { RecordError(nil, nil) })
	})

	tests := []struct {
		name     string
		err      error
		wantKind string
	}{
		{
			name:     "classified error",
			err:      syncerr.Newf(syncerr.KindChecksumMismatch, "verify", "bad digest"),
			wantKind: "ChecksumMismatch",
		},
		{
			name:     "plain error",
			err:      errors.New("disk full"),
			wantKind: "SyncError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exporter, tp := newTestTracerProvider(t)
			_, span := StartSpan(context.Background(), tp.Tracer("test"), "op")
			RecordError(span, tt.err)
			span.End()

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, codes.Error, spans[0].Status.Code)
			assert.Equal(t, "operation failed", spans[0].Status.Description)
			assert.Contains(t, spans[0].Attributes, AttrErrorKind.String(tt.wantKind))
			require.Len(t, spans[0].Events, 1)
			assert.Equal(t, "exception", spans[0].Events[0].Name)
		})
	}

	t.Run("nil error leaves span untouched", func(t *testing.T) {
		t.Parallel()

		exporter, tp := newTestTracerProvider(t)
		_, span := StartSpan(context.Background(), tp.Tracer("test"), "op")
		RecordError(span, nil)
		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Unset, spans[0].Status.Code)
		assert.Empty(t, spans[0].Events)
	})
}
