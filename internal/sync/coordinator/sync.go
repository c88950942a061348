package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/minos/internal/otel"
	"github.com/stacklok/minos/internal/status"
	"github.com/stacklok/minos/internal/syncerr"
)

// regulationRun syncs one regulation namespace and records its status
type regulationRun struct {
	coordinator *defaultCoordinator
	req         *Request
	regulation  string
	dir         string
	runID       string
	statusStore status.Store
}

func (r *regulationRun) execute(ctx context.Context) (_ *Result, retErr error) {
	c := r.coordinator
	ctx, span := otel.StartSpan(ctx, c.tracer, "rulesync.SyncRegulation",
		trace.WithAttributes(
			otel.AttrRegulation.String(r.regulation),
			otel.AttrVersion.String(r.req.Version),
			otel.AttrOffline.Bool(r.req.Offline),
		),
	)
	defer func() {
		otel.RecordError(span, retErr)
		span.End()
	}()

	syncStatus := r.loadStatus(ctx)
	startTime := c.now()
	syncStatus.Phase = status.SyncPhaseSyncing
	syncStatus.Message = "Sync in progress"
	syncStatus.LastAttempt = &startTime
	syncStatus.AttemptCount = 0
	syncStatus.RunID = r.runID
	syncStatus.Offline = r.req.Offline
	r.saveStatus(ctx, syncStatus)

	slog.Info("Starting regulation sync",
		"run_id", r.runID,
		"regulation", r.regulation,
		"version", r.req.Version,
		"offline", r.req.Offline)

	var (
		result *Result
		err    error
	)
	if r.req.Offline {
		result, err = r.syncOffline(ctx)
	} else {
		result, err = r.syncOnline(ctx)
	}

	duration := c.now().Sub(startTime)
	c.syncMetrics.RecordSyncDuration(ctx, r.regulation, duration, err == nil)

	if err != nil {
		syncStatus.Phase = status.SyncPhaseFailed
		syncStatus.Message = err.Error()
		syncStatus.ErrorKind = string(syncerr.KindOf(err))
		if result != nil {
			syncStatus.AttemptCount = result.Attempts
		}
		r.saveStatus(ctx, syncStatus)
		slog.Error("Regulation sync failed",
			"run_id", r.runID,
			"regulation", r.regulation,
			"version", r.req.Version,
			"error_kind", syncStatus.ErrorKind,
			"error", err)
		return nil, err
	}

	if !r.req.Offline && r.req.CleanupKeep > 0 {
		pruned, cleanupErr := c.manager.Cleanup(ctx, r.dir, r.req.CleanupKeep)
		if cleanupErr != nil {
			syncStatus.Phase = status.SyncPhaseFailed
			syncStatus.Message = cleanupErr.Error()
			syncStatus.ErrorKind = string(syncerr.KindOf(cleanupErr))
			r.saveStatus(ctx, syncStatus)
			return nil, cleanupErr
		}
		result.Pruned = pruned
		c.syncMetrics.RecordPruned(ctx, r.regulation, len(pruned))
	}

	now := c.now()
	syncStatus.Phase = status.SyncPhaseComplete
	syncStatus.Message = "Sync completed successfully"
	syncStatus.ErrorKind = ""
	syncStatus.AttemptCount = result.Attempts
	syncStatus.LastSyncTime = &now
	syncStatus.LastVersion = result.Version
	if result.Digest != "" {
		syncStatus.LastDigest = result.Digest
	}
	r.saveStatus(ctx, syncStatus)

	slog.Info("Regulation sync completed",
		"run_id", r.runID,
		"regulation", r.regulation,
		"version", result.Version,
		"attempts", result.Attempts,
		"pruned", len(result.Pruned),
		"duration", duration)
	return result, nil
}

// syncOnline runs the downloader with bounded retries
func (r *regulationRun) syncOnline(ctx context.Context) (*Result, error) {
	c := r.coordinator
	if r.req.Downloader == nil {
		return nil, syncerr.Newf(syncerr.KindInvalidSource, "sync "+r.regulation,
			"a downloader is required for online sync")
	}

	result := &Result{Regulation: r.regulation, Version: r.req.Version}
	operation := func() (string, error) {
		result.Attempts++
		return r.req.Downloader(ctx, r.regulation, r.req.Version, r.dir)
	}
	notify := func(err error, _ time.Duration) {
		kind := string(syncerr.KindOf(err))
		c.syncMetrics.RecordRetry(ctx, r.regulation, kind)
		slog.Warn("Regulation download failed, retrying",
			"run_id", r.runID,
			"regulation", r.regulation,
			"attempt", result.Attempts,
			"error_kind", kind,
			"error", err)
	}

	digest, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(&backoff.ZeroBackOff{}),
		backoff.WithMaxTries(uint(r.req.Retries+1)),
		backoff.WithNotify(notify),
	)
	if err != nil {
		return result, syncerr.Classify(syncerr.KindSync, "sync "+r.regulation, err)
	}
	result.Digest = digest

	path, ok, err := c.manager.ActivePath(ctx, r.dir)
	if err != nil {
		return result, err
	}
	if ok {
		result.Path = path
	}
	return result, nil
}

// syncOffline activates the requested version if cached, otherwise accepts the active one
func (r *regulationRun) syncOffline(ctx context.Context) (*Result, error) {
	c := r.coordinator
	result := &Result{Regulation: r.regulation, Version: r.req.Version, Offline: true}

	cached, err := c.manager.ListVersions(ctx, r.dir)
	if err != nil {
		return nil, err
	}
	if slices.Contains(cached, r.req.Version) {
		path, err := c.manager.Activate(ctx, r.dir, r.req.Version)
		if err != nil {
			return nil, err
		}
		result.Path = path
		r.fillDigest(ctx, result)
		return result, nil
	}

	path, ok, err := c.manager.ActivePath(ctx, r.dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, syncerr.Newf(syncerr.KindOfflineCacheMiss, "sync "+r.regulation,
			"no cached rules for %s in %s", r.regulation, r.dir)
	}

	slog.Warn("Requested version not cached, using active version",
		"regulation", r.regulation,
		"requested", r.req.Version,
		"path", path)
	result.Path = path
	for _, v := range cached {
		if meta, err := c.manager.Metadata(ctx, r.dir, v); err == nil && meta.Active {
			result.Version = v
			result.Digest = meta.SHA256
			break
		}
	}
	return result, nil
}

func (r *regulationRun) fillDigest(ctx context.Context, result *Result) {
	meta, err := r.coordinator.manager.Metadata(ctx, r.dir, result.Version)
	if err != nil {
		slog.Debug("Cached version has no readable metadata", "regulation", r.regulation, "error", err)
		return
	}
	result.Digest = meta.SHA256
}

func (r *regulationRun) loadStatus(ctx context.Context) *status.SyncStatus {
	syncStatus, err := r.statusStore.Load(ctx, r.regulation)
	if err != nil {
		slog.Warn("Failed to load regulation status, starting fresh",
			"regulation", r.regulation,
			"error", err)
		return &status.SyncStatus{}
	}
	return syncStatus
}

// saveStatus persists the status; failures are logged only
func (r *regulationRun) saveStatus(ctx context.Context, syncStatus *status.SyncStatus) {
	if err := r.statusStore.Save(ctx, r.regulation, syncStatus); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("Failed to persist regulation status",
			"regulation", r.regulation,
			"phase", syncStatus.Phase,
			"error", err)
	}
}
