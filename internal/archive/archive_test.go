package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/minos/internal/syncerr"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
}

func TestPackDirAndExtract_RoundTrip(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"rules.yaml":        "rules: []",
		"nested/deep/a.txt": "alpha",
	})

	archivePath := filepath.Join(t.TempDir(), "rules.tar.gz")
	require.NoError(t, PackDirToFile(src, "rules", archivePath))

	dest := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Extract(archivePath, dest))

	data, err := os.ReadFile(filepath.Join(dest, "rules", "rules.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "rules: []", string(data))

	data, err = os.ReadFile(filepath.Join(dest, "rules", "nested", "deep", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))
}

func TestPackDir_Deterministic(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{"b.txt": "b", "a.txt": "a"})

	var first, second bytes.Buffer
	require.NoError(t, PackDir(src, "", &first))
	require.NoError(t, PackDir(src, "", &second))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestPackDir_SkipsGitDirectory(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{"rules.yaml": "x", ".git/HEAD": "ref: refs/heads/main"})

	archivePath := filepath.Join(t.TempDir(), "rules.tar.gz")
	require.NoError(t, PackDirToFile(src, "", archivePath))

	dest := t.TempDir()
	require.NoError(t, Extract(archivePath, dest))
	assert.FileExists(t, filepath.Join(dest, "rules.yaml"))
	assert.NoDirExists(t, filepath.Join(dest, ".git"))
}

func TestExtract_NotGzip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("definitely not gzip"), 0600))

	err := Extract(path, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, syncerr.ErrExtract))
}

func TestExtract_MissingArchive(t *testing.T) {
	t.Parallel()

	err := Extract(filepath.Join(t.TempDir(), "missing.tar.gz"), t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, syncerr.ErrSourceNotFound))
}

func TestExtract_RejectsTraversal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	content := []byte("evil")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     "../escape.txt",
		Size:     int64(len(content)),
		Mode:     0644,
		ModTime:  time.Unix(0, 0),
	}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())

	dir := t.TempDir()
	path := filepath.Join(dir, "evil.tar.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))

	dest := filepath.Join(dir, "dest")
	err = Extract(path, dest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, syncerr.ErrExtract))
	assert.NoFileExists(t, filepath.Join(dir, "escape.txt"))
}
