package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncMetricsMeterName is the name used for the sync metrics meter
const SyncMetricsMeterName = "github.com/stacklok/minos/rulesync"

// SyncMetrics holds the instruments for per-regulation sync metrics.
// A nil *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	syncDuration metric.Float64Histogram
	retries      metric.Int64Counter
	pruned       metric.Int64Counter
}

// NewSyncMetrics creates SyncMetrics from provider. A nil provider returns nil metrics.
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	syncDuration, err := meter.Float64Histogram(
		"minos_rulesync_duration_seconds",
		metric.WithDescription("Duration of regulation rule syncs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter(
		"minos_rulesync_retries_total",
		metric.WithDescription("Number of retried regulation sync attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	pruned, err := meter.Int64Counter(
		"minos_rulesync_pruned_versions_total",
		metric.WithDescription("Number of cached versions removed by retention cleanup"),
		metric.WithUnit("{version}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		syncDuration: syncDuration,
		retries:      retries,
		pruned:       pruned,
	}, nil
}

// RecordSyncDuration records the duration of one regulation sync
func (m *SyncMetrics) RecordSyncDuration(ctx context.Context, regulation string, duration time.Duration, success bool) {
	if m == nil || m.syncDuration == nil {
		return
	}
	m.syncDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("regulation", regulation),
		attribute.Bool("success", success),
	))
}

// RecordRetry counts one retried attempt, tagged with the kind of failure that caused it
func (m *SyncMetrics) RecordRetry(ctx context.Context, regulation, errorKind string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("regulation", regulation),
		attribute.String("error_kind", errorKind),
	))
}

// RecordPruned counts versions removed by cleanup
func (m *SyncMetrics) RecordPruned(ctx context.Context, regulation string, n int) {
	if m == nil || m.pruned == nil || n <= 0 {
		return
	}
	m.pruned.Add(ctx, int64(n), metric.WithAttributes(attribute.String("regulation", regulation)))
}
