package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/minos/internal/config"
	"github.com/stacklok/minos/internal/status"
	pkgsync "github.com/stacklok/minos/internal/sync"
	"github.com/stacklok/minos/internal/telemetry"
)

// Downloader installs version of regulation into targetDir, which is that regulation's
// cache directory, and returns the digest of the installed package.
type Downloader func(ctx context.Context, regulation, version, targetDir string) (string, error)

// Request describes one multi-regulation sync
type Request struct {
	// Regulations to sync; empty means the default set
	Regulations []string

	Version   string
	CacheRoot string

	// Downloader may be nil when Offline is set
	Downloader Downloader

	// CleanupKeep versions are retained per regulation after a successful sync; 0 disables cleanup
	CleanupKeep int

	Offline bool

	// Retries is the number of extra Downloader attempts per regulation
	Retries int
}

// Result is the outcome of one regulation
type Result struct {
	Regulation string
	Version    string

	// Path is the active version directory after the sync
	Path   string
	Digest string

	Attempts int
	Offline  bool
	Pruned   []string
}

// Coordinator syncs a set of regulations, each in its own namespace under the cache root
type Coordinator interface {
	// SyncAll processes regulations in order and stops at the first failure.
	// Results of the regulations completed before the failure are returned with the error.
	SyncAll(ctx context.Context, req Request) ([]Result, error)
}

type defaultCoordinator struct {
	manager     pkgsync.Manager
	defaults    []string
	syncMetrics *telemetry.SyncMetrics
	tracer      trace.Tracer
	newStatus   func(cacheRoot string) status.Store
	now         func() time.Time
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithSyncMetrics sets the sync metrics for the coordinator
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(c *defaultCoordinator) {
		c.syncMetrics = metrics
	}
}

// WithDefaultRegulations replaces the regulation set used for empty requests
func WithDefaultRegulations(regulations []string) Option {
	return func(c *defaultCoordinator) {
		if len(regulations) > 0 {
			c.defaults = append([]string(nil), regulations...)
		}
	}
}

// WithTracer sets the tracer used for per-regulation spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *defaultCoordinator) {
		c.tracer = tracer
	}
}

// WithStatusStore overrides where per-regulation status is persisted
func WithStatusStore(store status.Store) Option {
	return func(c *defaultCoordinator) {
		c.newStatus = func(string) status.Store { return store }
	}
}

// New creates a new coordinator over manager
func New(manager pkgsync.Manager, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		manager:   manager,
		defaults:  append([]string(nil), config.DefaultRegulations...),
		newStatus: status.ForCacheRoot,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SyncAll syncs every requested regulation sequentially
func (c *defaultCoordinator) SyncAll(ctx context.Context, req Request) ([]Result, error) {
	regulations := req.Regulations
	if len(regulations) == 0 {
		regulations = c.defaults
	}
	for _, reg := range regulations {
		if err := config.ValidateRegulation(reg); err != nil {
			return nil, err
		}
	}
	if req.Retries < 0 {
		return nil, fmt.Errorf("retries must not be negative, got %d", req.Retries)
	}

	runID := uuid.NewString()
	statusStore := c.newStatus(req.CacheRoot)

	slog.Info("Starting multi-regulation sync",
		"run_id", runID,
		"regulations", regulations,
		"version", req.Version,
		"offline", req.Offline)

	results := make([]Result, 0, len(regulations))
	for _, reg := range regulations {
		run := &regulationRun{
			coordinator: c,
			req:         &req,
			regulation:  reg,
			dir:         filepath.Join(req.CacheRoot, reg),
			runID:       runID,
			statusStore: statusStore,
		}
		result, err := run.execute(ctx)
		if err != nil {
			slog.Error("Multi-regulation sync stopped",
				"run_id", runID,
				"regulation", reg,
				"completed", len(results),
				"error", err)
			return results, err
		}
		results = append(results, *result)
	}

	slog.Info("Multi-regulation sync completed", "run_id", runID, "regulations", len(results))
	return results, nil
}

// DownloaderFromTemplate returns a Downloader that resolves each regulation's source from regs
// and syncs it with manager, gating on the configured digest when there is one.
func DownloaderFromTemplate(manager pkgsync.Manager, regs *config.RegulationsConfig, gpgKey string) Downloader {
	return func(ctx context.Context, regulation, version, targetDir string) (string, error) {
		raw, err := regs.SourceFor(regulation, version)
		if err != nil {
			return "", err
		}

		if _, err := manager.Sync(ctx, raw, version, targetDir, pkgsync.Options{
			ExpectedSHA256: regs.ExpectedSHA256(regulation),
			GPGKey:         gpgKey,
		}); err != nil {
			return "", err
		}

		meta, err := manager.Metadata(ctx, targetDir, version)
		if err != nil {
			return "", err
		}
		return meta.SHA256, nil
	}
}
