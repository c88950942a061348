// Package otel provides OpenTelemetry tracing helpers for rule synchronisation.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/minos/internal/syncerr"
)

// Attribute keys shared by the orchestrator and coordinator spans
const (
	AttrRegulation = attribute.Key("rulesync.regulation")
	AttrVersion    = attribute.Key("rulesync.version")
	AttrSourceType = attribute.Key("rulesync.source.type")
	AttrOffline    = attribute.Key("rulesync.offline")
	AttrAttempt    = attribute.Key("rulesync.attempt")
	AttrErrorKind  = attribute.Key("rulesync.error.kind")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records err on span, tags it with its error kind and marks the span failed.
// Nil spans and nil errors are ignored. The status description stays generic; details
// are kept in the recorded event.
func RecordError(span trace.Span, err error) {
	if err == nil || span == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(AttrErrorKind.String(string(syncerr.KindOf(err))))
	span.SetStatus(codes.Error, "operation failed")
}
