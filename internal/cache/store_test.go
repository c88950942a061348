package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/stacklok/minos/internal/archive"
	"github.com/stacklok/minos/internal/syncerr"
	"github.com/stacklok/minos/internal/versions"
)

func publishVersion(t *testing.T, store Store, cacheDir, version string) string {
	t.Helper()

	pkg, sha := archive.CreateTestPackage(t, t.TempDir(), archive.TestPackageConfig{
		Name:  "rules-" + version,
		Files: map[string]string{"rules.txt": "rule " + version},
	})
	dir, err := store.Publish(context.Background(), cacheDir, PublishRequest{
		Version:     version,
		ArchivePath: pkg,
		SHA256:      sha,
		Source:      pkg,
	})
	require.NoError(t, err)
	return dir
}

func readRecord(t *testing.T, cacheDir, version string) map[string]any {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(cacheDir, version, MetadataFileName))
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal(data, &record))
	return record
}

func countActive(t *testing.T, store Store, cacheDir string) int {
	t.Helper()

	all, err := store.ListVersions(context.Background(), cacheDir)
	require.NoError(t, err)
	active := 0
	for _, v := range all {
		meta, err := store.Metadata(context.Background(), cacheDir, v)
		require.NoError(t, err)
		if meta.Active {
			active++
		}
	}
	return active
}

func TestFileStore_Publish(t *testing.T) {
	t.Parallel()

	cacheDir := filepath.Join(t.TempDir(), "cache")
	installedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewFileStore(WithClock(func() time.Time { return installedAt }))

	pkg, sha := archive.CreateTestPackage(t, t.TempDir(), archive.TestPackageConfig{Name: "rules-v1.0.0"})
	dir, err := store.Publish(context.Background(), cacheDir, PublishRequest{
		Version:     "v1.0.0",
		ArchivePath: pkg,
		SHA256:      sha,
		Source:      pkg,
		GPGKey:      "dummy-key",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cacheDir, "v1.0.0"), dir)
	assert.FileExists(t, filepath.Join(dir, "rules", "rules.txt"))

	record := readRecord(t, cacheDir, "v1.0.0")
	assert.Equal(t, "v1.0.0", record["version"])
	assert.Equal(t, pkg, record["source"])
	assert.Equal(t, sha, record["sha256"])
	assert.Equal(t, "dummy-key", record["gpg"])
	assert.Equal(t, false, record["active"])

	parsed, err := time.Parse(time.RFC3339, record["installed_at"].(string))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(installedAt))
}

func TestFileStore_Publish_NullGPGKey(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	store := NewFileStore()
	publishVersion(t, store, cacheDir, "v1.0.0")

	record := readRecord(t, cacheDir, "v1.0.0")
	value, present := record["gpg"]
	assert.True(t, present)
	assert.Nil(t, value)
}

func TestFileStore_Publish_OverwritesExistingVersion(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	calls := 0
	store := NewFileStore(WithClock(func() time.Time {
		calls++
		return time.Date(2026, 1, calls, 0, 0, 0, 0, time.UTC)
	}))

	dir := publishVersion(t, store, cacheDir, "v1.0.0")
	// Leftover nested file from the first install must not survive
	stray := filepath.Join(dir, "rules", "nested", "stray.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stray), 0750))
	require.NoError(t, os.WriteFile(stray, []byte("stale"), 0600))

	pkg, sha := archive.CreateTestPackage(t, t.TempDir(), archive.TestPackageConfig{
		Name:  "second",
		Files: map[string]string{"other.txt": "second"},
	})
	_, err := store.Publish(context.Background(), cacheDir, PublishRequest{
		Version: "v1.0.0", ArchivePath: pkg, SHA256: sha, Source: pkg,
	})
	require.NoError(t, err)

	versionsList, err := store.ListVersions(context.Background(), cacheDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1.0.0"}, versionsList)
	assert.NoFileExists(t, stray)
	assert.NoFileExists(t, filepath.Join(dir, "rules", "rules.txt"))
	assert.FileExists(t, filepath.Join(dir, "rules", "other.txt"))

	meta, err := store.Metadata(context.Background(), cacheDir, "v1.0.0")
	require.NoError(t, err)
	assert.Equal(t, sha, meta.SHA256)
	assert.Equal(t, 2, meta.InstalledAt.Day())
}

func TestFileStore_Publish_InvalidArchiveKeepsPreviousCopy(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	store := NewFileStore()
	publishVersion(t, store, cacheDir, "v1.0.0")
	_, err := store.SetActive(context.Background(), cacheDir, "v1.0.0")
	require.NoError(t, err)

	broken := filepath.Join(t.TempDir(), "broken.tar.gz")
	require.NoError(t, os.WriteFile(broken, []byte("not an archive"), 0600))

	_, err = store.Publish(context.Background(), cacheDir, PublishRequest{Version: "v1.0.0", ArchivePath: broken})
	require.Error(t, err)
	assert.True(t, errors.Is(err, syncerr.ErrExtract))

	meta, err := store.Metadata(context.Background(), cacheDir, "v1.0.0")
	require.NoError(t, err)
	assert.True(t, meta.Active)

	// No staging leftovers
	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_Publish_InvalidVersion(t *testing.T) {
	t.Parallel()

	store := NewFileStore()
	for _, version := range []string{"", "..", "a/b", ".hidden"} {
		_, err := store.Publish(context.Background(), t.TempDir(), PublishRequest{Version: version})
		require.Error(t, err, version)
		assert.True(t, errors.Is(err, syncerr.ErrInvalidSource), version)
	}
}

func TestFileStore_SetActive(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	store := NewFileStore()
	publishVersion(t, store, cacheDir, "v1.0.0")
	publishVersion(t, store, cacheDir, "v1.1.0")

	path, err := store.SetActive(context.Background(), cacheDir, "v1.1.0")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cacheDir, "v1.1.0"), path)

	path, err = store.SetActive(context.Background(), cacheDir, "v1.0.0")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cacheDir, "v1.0.0"), path)

	assert.Equal(t, true, readRecord(t, cacheDir, "v1.0.0")["active"])
	assert.Equal(t, false, readRecord(t, cacheDir, "v1.1.0")["active"])
	assert.Equal(t, 1, countActive(t, store, cacheDir))

	active, ok, err := store.ActivePath(context.Background(), cacheDir)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(cacheDir, "v1.0.0"), active)
}

func TestFileStore_SetActive_VersionNotFound(t *testing.T) {
	t.Parallel()

	store := NewFileStore()
	_, err := store.SetActive(context.Background(), t.TempDir(), "v9.9.9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, syncerr.ErrVersionNotFound))
}

func TestFileStore_ActivePath_Empty(t *testing.T) {
	t.Parallel()

	store := NewFileStore()

	t.Run("missing cache dir", func(t *testing.T) {
		t.Parallel()

		missing := filepath.Join(t.TempDir(), "missing")
		_, ok, err := store.ActivePath(context.Background(), missing)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoDirExists(t, missing)
	})

	t.Run("nothing active", func(t *testing.T) {
		t.Parallel()

		cacheDir := t.TempDir()
		publishVersion(t, store, cacheDir, "v1.0.0")
		_, ok, err := store.ActivePath(context.Background(), cacheDir)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestFileStore_ListVersions(t *testing.T) {
	t.Parallel()

	t.Run("missing cache dir is empty and not created", func(t *testing.T) {
		t.Parallel()

		missing := filepath.Join(t.TempDir(), "missing")
		got, err := NewFileStore().ListVersions(context.Background(), missing)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoDirExists(t, missing)
	})

	t.Run("sorted and ignores hidden entries and files", func(t *testing.T) {
		t.Parallel()

		cacheDir := t.TempDir()
		store := NewFileStore()
		publishVersion(t, store, cacheDir, "v1.1.0")
		publishVersion(t, store, cacheDir, "v1.0.0")
		require.NoError(t, os.MkdirAll(filepath.Join(cacheDir, ".staging-v2-123"), 0750))
		require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "README"), []byte("x"), 0600))

		got, err := store.ListVersions(context.Background(), cacheDir)
		require.NoError(t, err)
		assert.Equal(t, []string{"v1.0.0", "v1.1.0"}, got)
	})

	t.Run("semver ordering", func(t *testing.T) {
		t.Parallel()

		cacheDir := t.TempDir()
		store := NewFileStore(WithOrdering(versions.OrderingSemver))
		for _, v := range []string{"v1.10.0", "v1.9.0"} {
			require.NoError(t, os.MkdirAll(filepath.Join(cacheDir, v), 0750))
		}

		got, err := store.ListVersions(context.Background(), cacheDir)
		require.NoError(t, err)
		assert.Equal(t, []string{"v1.9.0", "v1.10.0"}, got)
		assert.Equal(t, versions.OrderingSemver, store.Ordering())
	})
}

func TestFileStore_Cleanup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		keep        int
		wantLeft    []string
		wantRemoved []string
	}{
		{
			name:        "keep two",
			keep:        2,
			wantLeft:    []string{"v1.1.0", "v1.2.0"},
			wantRemoved: []string{"v1.0.0"},
		},
		{
			name:        "keep more than cached",
			keep:        10,
			wantLeft:    []string{"v1.0.0", "v1.1.0", "v1.2.0"},
			wantRemoved: nil,
		},
		{
			name:        "zero is a no-op",
			keep:        0,
			wantLeft:    []string{"v1.0.0", "v1.1.0", "v1.2.0"},
			wantRemoved: nil,
		},
		{
			name:        "negative is a no-op",
			keep:        -1,
			wantLeft:    []string{"v1.0.0", "v1.1.0", "v1.2.0"},
			wantRemoved: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cacheDir := t.TempDir()
			store := NewFileStore()
			for _, v := range []string{"v1.0.0", "v1.1.0", "v1.2.0"} {
				publishVersion(t, store, cacheDir, v)
			}

			removed, err := store.Cleanup(context.Background(), cacheDir, tt.keep)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRemoved, removed)

			left, err := store.ListVersions(context.Background(), cacheDir)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLeft, left)
		})
	}
}

func TestFileStore_ActivePointerUniqueness(t *testing.T) {
	t.Parallel()

	pool := []string{"v1.0.0", "v1.1.0", "v1.2.0", "v2.0.0"}

	rapid.Check(t, func(rt *rapid.T) {
		cacheDir := t.TempDir()
		store := NewFileStore()
		ctx := context.Background()

		steps := rapid.IntRange(1, 12).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			version := rapid.SampledFrom(pool).Draw(rt, "version")
			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0:
				publishVersion(t, store, cacheDir, version)
			case 1:
				_, err := store.SetActive(ctx, cacheDir, version)
				if err != nil && !errors.Is(err, syncerr.ErrVersionNotFound) {
					rt.Fatalf("unexpected activate error: %v", err)
				}
			case 2:
				_, err := store.Cleanup(ctx, cacheDir, rapid.IntRange(1, 3).Draw(rt, "keep"))
				if err != nil {
					rt.Fatalf("unexpected cleanup error: %v", err)
				}
			}

			if n := countActive(t, store, cacheDir); n > 1 {
				rt.Fatalf("found %d active versions after step %d", n, i)
			}
		}
	})
}
