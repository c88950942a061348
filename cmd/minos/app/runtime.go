package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/stacklok/minos/internal/cache"
	"github.com/stacklok/minos/internal/config"
	"github.com/stacklok/minos/internal/fetch"
	"github.com/stacklok/minos/internal/oci"
	pkgsync "github.com/stacklok/minos/internal/sync"
	"github.com/stacklok/minos/internal/telemetry"
)

// runtime holds the components shared by the rule commands
type runtime struct {
	cfg       *config.Config
	manager   pkgsync.Manager
	telemetry *telemetry.Telemetry
	metrics   *telemetry.SyncMetrics
}

// newRuntime loads configuration and wires the fetcher, store and telemetry.
// The --cache-dir flag and MINOS_CACHE_DIR override the configured cache root.
func newRuntime(ctx context.Context, v *viper.Viper) (*runtime, error) {
	var opts []config.Option
	if path := v.GetString(flagConfig); path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}
	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if dir := v.GetString(flagCacheDir); dir != "" {
		cfg.CacheDir = config.ExpandHome(dir)
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	metrics, err := telemetry.NewSyncMetrics(tel.MeterProvider())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}

	fetcher := fetch.New(
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithMaxArchiveBytes(cfg.Fetch.MaxArchiveBytes),
		fetch.WithGitAuth(cfg.Fetch.Git.Username, cfg.Fetch.Git.Password()),
		fetch.WithPuller(oci.NewRemotePuller(oci.WithInsecure(cfg.Fetch.OCIInsecure))),
	)
	store := cache.NewFileStore(cache.WithOrdering(cfg.Ordering()))

	slog.Debug("Rule runtime initialized",
		"cache_dir", cfg.CacheDir,
		"version_ordering", cfg.VersionOrdering,
		"fetch_timeout", cfg.Fetch.Timeout)

	return &runtime{
		cfg:       cfg,
		manager:   pkgsync.NewManager(fetcher, store, pkgsync.WithTracer(tel.Tracer())),
		telemetry: tel,
		metrics:   metrics,
	}, nil
}

// Close flushes telemetry
func (r *runtime) Close(ctx context.Context) {
	if err := r.telemetry.Shutdown(ctx); err != nil {
		slog.Warn("Failed to shut down telemetry", "error", err)
	}
}
