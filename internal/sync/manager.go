package sync

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/minos/internal/cache"
	"github.com/stacklok/minos/internal/fetch"
	"github.com/stacklok/minos/internal/integrity"
	"github.com/stacklok/minos/internal/otel"
	"github.com/stacklok/minos/internal/source"
	"github.com/stacklok/minos/internal/syncerr"
)

// Options tunes a single Sync call
type Options struct {
	// ExpectedSHA256 gates publication when set
	ExpectedSHA256 string

	// GPGKey is recorded in metadata; signatures are not verified
	GPGKey string

	// Offline activates an already cached copy of the version without fetching
	Offline bool
}

//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks -source=manager.go Manager

// Manager drives the lifecycle of rule package versions in a cache directory.
// It holds no state of its own; the cache Store owns everything on disk.
type Manager interface {
	// Sync fetches, verifies, publishes and activates version and returns the active path
	Sync(ctx context.Context, rawSource, version, cacheDir string, opts Options) (string, error)

	// Rollback activates target, or the predecessor of current when target is empty
	Rollback(ctx context.Context, cacheDir, current, target string) (string, error)

	// Activate makes version the active one
	Activate(ctx context.Context, cacheDir, version string) (string, error)

	// ListVersions returns cached versions, oldest first
	ListVersions(ctx context.Context, cacheDir string) ([]string, error)

	// ActivePath returns the active version directory, if any
	ActivePath(ctx context.Context, cacheDir string) (string, bool, error)

	// Metadata returns the record of a cached version
	Metadata(ctx context.Context, cacheDir, version string) (*cache.Metadata, error)

	// Cleanup keeps the newest keep versions; keep <= 0 is a no-op
	Cleanup(ctx context.Context, cacheDir string, keep int) ([]string, error)
}

type defaultManager struct {
	fetcher fetch.Fetcher
	store   cache.Store
	tracer  trace.Tracer
}

// Option configures the manager
type Option func(*defaultManager)

// WithTracer sets the tracer used for lifecycle spans
func WithTracer(tracer trace.Tracer) Option {
	return func(m *defaultManager) {
		m.tracer = tracer
	}
}

// NewManager creates a Manager over the given fetcher and store
func NewManager(fetcher fetch.Fetcher, store cache.Store, opts ...Option) Manager {
	m := &defaultManager{
		fetcher: fetcher,
		store:   store,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *defaultManager) Sync(ctx context.Context, rawSource, version, cacheDir string, opts Options) (_ string, retErr error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "rulesync.Sync",
		trace.WithAttributes(otel.AttrVersion.String(version), otel.AttrOffline.Bool(opts.Offline)),
	)
	defer func() {
		otel.RecordError(span, retErr)
		span.End()
	}()

	if err := cache.ValidateVersion(version); err != nil {
		return "", err
	}

	if opts.Offline {
		return m.activateCached(ctx, cacheDir, version)
	}

	src, err := source.Parse(rawSource)
	if err != nil {
		return "", err
	}
	span.SetAttributes(otel.AttrSourceType.String(string(src.Type)))

	start := time.Now()
	slog.Info("Starting rule sync", "source", src.String(), "version", version, "cache_dir", cacheDir)

	artifact, err := m.fetcher.Materialize(ctx, src)
	if err != nil {
		return "", syncerr.Classify(syncerr.KindFetch, "fetch", err)
	}
	defer func() {
		if cerr := artifact.Close(); cerr != nil {
			slog.Warn("Failed to remove fetch temporary files", "error", cerr)
		}
	}()

	digest, err := integrity.Digest(artifact.Path)
	if err != nil {
		return "", syncerr.Classify(syncerr.KindSync, "digest", err)
	}
	span.AddEvent("digest computed", trace.WithAttributes(attribute.String("sha256", digest)))

	if err := integrity.Verify(digest, opts.ExpectedSHA256); err != nil {
		slog.Error("Rule package checksum mismatch", "source", src.String(), "version", version, "sha256", digest)
		return "", err
	}
	if err := integrity.VerifySignature(artifact.Path, opts.GPGKey); err != nil {
		return "", syncerr.Classify(syncerr.KindSync, "verify signature", err)
	}

	if _, err := m.store.Publish(ctx, cacheDir, cache.PublishRequest{
		Version:     version,
		ArchivePath: artifact.Path,
		SHA256:      digest,
		Source:      src.String(),
		GPGKey:      opts.GPGKey,
	}); err != nil {
		return "", syncerr.Classify(syncerr.KindSync, "publish", err)
	}

	path, err := m.store.SetActive(ctx, cacheDir, version)
	if err != nil {
		return "", syncerr.Classify(syncerr.KindSync, "activate", err)
	}

	slog.Info("Rule sync completed",
		"version", version,
		"sha256", digest,
		"path", path,
		"duration", time.Since(start))
	return path, nil
}

// activateCached serves an offline sync from the cache
func (m *defaultManager) activateCached(ctx context.Context, cacheDir, version string) (string, error) {
	ok, err := m.store.HasVersion(ctx, cacheDir, version)
	if err != nil {
		return "", syncerr.Classify(syncerr.KindSync, "offline lookup", err)
	}
	if !ok {
		return "", syncerr.Newf(syncerr.KindOfflineCacheMiss, "offline sync",
			"version %s is not cached in %s", version, cacheDir)
	}

	path, err := m.store.SetActive(ctx, cacheDir, version)
	if err != nil {
		return "", syncerr.Classify(syncerr.KindSync, "activate", err)
	}
	slog.Info("Activated cached rule version", "version", version, "path", path, "offline", true)
	return path, nil
}

func (m *defaultManager) Rollback(ctx context.Context, cacheDir, current, target string) (_ string, retErr error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "rulesync.Rollback",
		trace.WithAttributes(otel.AttrVersion.String(current)),
	)
	defer func() {
		otel.RecordError(span, retErr)
		span.End()
	}()

	if target == "" {
		all, err := m.store.ListVersions(ctx, cacheDir)
		if err != nil {
			return "", syncerr.Classify(syncerr.KindSync, "rollback", err)
		}
		prev, found, ok := m.store.Ordering().Predecessor(all, current)
		switch {
		case !found:
			return "", syncerr.Newf(syncerr.KindVersionNotFound, "rollback",
				"version %s is not cached in %s", current, cacheDir)
		case !ok:
			return "", syncerr.Newf(syncerr.KindNoEarlierVersion, "rollback",
				"version %s is the earliest cached version", current)
		}
		target = prev
	}

	path, err := m.store.SetActive(ctx, cacheDir, target)
	if err != nil {
		return "", err
	}
	slog.Info("Rolled back rule version", "from", current, "to", target, "path", path)
	return path, nil
}

func (m *defaultManager) Activate(ctx context.Context, cacheDir, version string) (string, error) {
	return m.store.SetActive(ctx, cacheDir, version)
}

func (m *defaultManager) ListVersions(ctx context.Context, cacheDir string) ([]string, error) {
	return m.store.ListVersions(ctx, cacheDir)
}

func (m *defaultManager) ActivePath(ctx context.Context, cacheDir string) (string, bool, error) {
	return m.store.ActivePath(ctx, cacheDir)
}

func (m *defaultManager) Metadata(ctx context.Context, cacheDir, version string) (*cache.Metadata, error) {
	return m.store.Metadata(ctx, cacheDir, version)
}

func (m *defaultManager) Cleanup(ctx context.Context, cacheDir string, keep int) ([]string, error) {
	return m.store.Cleanup(ctx, cacheDir, keep)
}
