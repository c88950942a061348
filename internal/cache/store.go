// Package cache implements the on-disk rule package version cache.
//
// A cache directory holds one subdirectory per version identifier:
//
//	<cacheDir>/<version>/metadata.json
//	<cacheDir>/<version>/<extracted rule package contents>
//
// Exactly one version may be marked active at a time. Directories whose name starts with
// a dot are reserved for staging and bookkeeping and are never reported as versions.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stacklok/minos/internal/archive"
	"github.com/stacklok/minos/internal/syncerr"
	"github.com/stacklok/minos/internal/versions"
)

const (
	// MetadataFileName is the name of the per-version metadata record
	MetadataFileName = "metadata.json"

	stagingPrefix = ".staging-"
)

// Metadata is the persisted record describing one cached version
type Metadata struct {
	Version     string    `json:"version"`
	Source      string    `json:"source"`
	SHA256      string    `json:"sha256"`
	GPGKey      *string   `json:"gpg"`
	InstalledAt time.Time `json:"installed_at"`
	Active      bool      `json:"active"`
}

// PublishRequest describes an archive to install as a cached version
type PublishRequest struct {
	Version     string
	ArchivePath string
	SHA256      string
	Source      string
	// GPGKey is recorded only; an empty value is stored as null
	GPGKey string
}

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store

// Store owns the version directories of cache directories and their active pointer
type Store interface {
	// Publish extracts an archive as the given version, replacing any existing copy.
	// The new version is recorded inactive.
	Publish(ctx context.Context, cacheDir string, req PublishRequest) (string, error)

	// SetActive marks version as the only active version under cacheDir
	SetActive(ctx context.Context, cacheDir, version string) (string, error)

	// ActivePath returns the directory of the active version, if any
	ActivePath(ctx context.Context, cacheDir string) (string, bool, error)

	// ListVersions returns cached version identifiers, oldest first
	ListVersions(ctx context.Context, cacheDir string) ([]string, error)

	// HasVersion reports whether version has a directory under cacheDir
	HasVersion(ctx context.Context, cacheDir, version string) (bool, error)

	// Metadata loads the metadata record of version
	Metadata(ctx context.Context, cacheDir, version string) (*Metadata, error)

	// Cleanup keeps the newest keep versions and removes the rest. keep <= 0 is a no-op.
	Cleanup(ctx context.Context, cacheDir string, keep int) ([]string, error)

	// Ordering returns the version ordering used by the store
	Ordering() versions.Ordering
}

// fileStore implements Store on the local filesystem
type fileStore struct {
	ordering versions.Ordering
	now      func() time.Time
}

// Option configures a file store
type Option func(*fileStore)

// WithOrdering sets the version ordering used for listing, cleanup and rollback
func WithOrdering(o versions.Ordering) Option {
	return func(s *fileStore) {
		s.ordering = o
	}
}

// WithClock overrides the clock used for installed_at timestamps
func WithClock(now func() time.Time) Option {
	return func(s *fileStore) {
		s.now = now
	}
}

// NewFileStore creates a filesystem-backed Store
func NewFileStore(opts ...Option) Store {
	s := &fileStore{
		ordering: versions.OrderingLexical,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *fileStore) Ordering() versions.Ordering {
	return s.ordering
}

// ValidateVersion rejects identifiers that are not a single, visible path segment
func ValidateVersion(version string) error {
	switch {
	case version == "":
		return syncerr.Newf(syncerr.KindInvalidSource, "validate version", "version cannot be empty")
	case version == "." || version == "..":
		return syncerr.Newf(syncerr.KindInvalidSource, "validate version", "invalid version %q", version)
	case strings.ContainsAny(version, `/\`):
		return syncerr.Newf(syncerr.KindInvalidSource, "validate version", "version %q must not contain path separators", version)
	case strings.HasPrefix(version, "."):
		return syncerr.Newf(syncerr.KindInvalidSource, "validate version", "version %q must not start with a dot", version)
	}
	return nil
}

func (s *fileStore) Publish(_ context.Context, cacheDir string, req PublishRequest) (string, error) {
	if err := ValidateVersion(req.Version); err != nil {
		return "", err
	}

	if err := os.MkdirAll(cacheDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	staging, err := os.MkdirTemp(cacheDir, stagingPrefix+req.Version+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		// No-op once the staging directory has been renamed into place
		_ = os.RemoveAll(staging)
	}()

	if err := archive.Extract(req.ArchivePath, staging); err != nil {
		return "", err
	}

	meta := &Metadata{
		Version:     req.Version,
		Source:      req.Source,
		SHA256:      req.SHA256,
		InstalledAt: s.now().UTC(),
		Active:      false,
	}
	if req.GPGKey != "" {
		key := req.GPGKey
		meta.GPGKey = &key
	}
	if err := writeMetadata(staging, meta); err != nil {
		return "", err
	}

	versionDir := filepath.Join(cacheDir, req.Version)
	if err := os.RemoveAll(versionDir); err != nil {
		return "", fmt.Errorf("failed to remove existing version %s: %w", req.Version, err)
	}
	if err := os.Rename(staging, versionDir); err != nil {
		return "", fmt.Errorf("failed to install version %s: %w", req.Version, err)
	}

	slog.Debug("Published rule package version", "cache_dir", cacheDir, "version", req.Version)
	return versionDir, nil
}

func (s *fileStore) SetActive(ctx context.Context, cacheDir, version string) (string, error) {
	if err := ValidateVersion(version); err != nil {
		return "", err
	}

	ok, err := s.HasVersion(ctx, cacheDir, version)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", syncerr.Newf(syncerr.KindVersionNotFound, "activate", "version %s is not cached in %s", version, cacheDir)
	}

	versionDir := filepath.Join(cacheDir, version)
	target, err := readMetadata(versionDir)
	if err != nil {
		return "", fmt.Errorf("failed to load metadata for version %s: %w", version, err)
	}

	all, err := s.ListVersions(ctx, cacheDir)
	if err != nil {
		return "", err
	}

	// Clear every other record first so no write ever leaves two versions active
	for _, v := range all {
		if v == version {
			continue
		}
		dir := filepath.Join(cacheDir, v)
		meta, err := readMetadata(dir)
		if err != nil {
			slog.Warn("Skipping version with unreadable metadata", "version", v, "error", err)
			continue
		}
		if !meta.Active {
			continue
		}
		meta.Active = false
		if err := writeMetadata(dir, meta); err != nil {
			return "", err
		}
	}

	target.Active = true
	if err := writeMetadata(versionDir, target); err != nil {
		return "", err
	}

	return versionDir, nil
}

func (s *fileStore) ActivePath(ctx context.Context, cacheDir string) (string, bool, error) {
	all, err := s.ListVersions(ctx, cacheDir)
	if err != nil {
		return "", false, err
	}
	for _, v := range all {
		dir := filepath.Join(cacheDir, v)
		meta, err := readMetadata(dir)
		if err != nil {
			continue
		}
		if meta.Active {
			return dir, true, nil
		}
	}
	return "", false, nil
}

func (s *fileStore) ListVersions(_ context.Context, cacheDir string) ([]string, error) {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	result := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		result = append(result, entry.Name())
	}
	s.ordering.Sort(result)
	return result, nil
}

func (*fileStore) HasVersion(_ context.Context, cacheDir, version string) (bool, error) {
	if ValidateVersion(version) != nil {
		return false, nil
	}
	info, err := os.Stat(filepath.Join(cacheDir, version))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat version %s: %w", version, err)
	}
	return info.IsDir(), nil
}

func (s *fileStore) Metadata(ctx context.Context, cacheDir, version string) (*Metadata, error) {
	ok, err := s.HasVersion(ctx, cacheDir, version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, syncerr.Newf(syncerr.KindVersionNotFound, "metadata", "version %s is not cached in %s", version, cacheDir)
	}
	return readMetadata(filepath.Join(cacheDir, version))
}

func (s *fileStore) Cleanup(ctx context.Context, cacheDir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}

	all, err := s.ListVersions(ctx, cacheDir)
	if err != nil {
		return nil, err
	}
	if len(all) <= keep {
		return nil, nil
	}

	stale := all[:len(all)-keep]
	removed := make([]string, 0, len(stale))
	for _, v := range stale {
		if err := os.RemoveAll(filepath.Join(cacheDir, v)); err != nil {
			return removed, fmt.Errorf("failed to remove version %s: %w", v, err)
		}
		removed = append(removed, v)
	}

	slog.Info("Pruned cached rule versions", "cache_dir", cacheDir, "removed", removed, "kept", keep)
	return removed, nil
}

func readMetadata(versionDir string) (*Metadata, error) {
	path := filepath.Join(versionDir, MetadataFileName)
	//nolint:gosec // Path is built from the cache directory and a validated version
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("metadata file not found: %w", err)
		}
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &meta, nil
}

func writeMetadata(versionDir string, meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	filePath := filepath.Join(versionDir, MetadataFileName)

	// Write to temporary file first for atomic operation
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary metadata file: %w", err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename metadata file: %w", err)
	}
	return nil
}
