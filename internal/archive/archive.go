// Package archive extracts and builds gzip-compressed tar rule packages.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/stacklok/minos/internal/syncerr"
)

// Extract unpacks the tar.gz archive at archivePath into destDir, creating destDir if needed.
// Entries that would land outside destDir are rejected. Symlinks and other special entries
// are skipped. Any malformed input surfaces as an Extract error.
func Extract(archivePath, destDir string) error {
	//nolint:gosec // Archive path is produced by the fetcher or supplied by the operator
	f, err := os.Open(archivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return syncerr.Newf(syncerr.KindSourceNotFound, "extract", "archive not found: %s", archivePath)
		}
		return syncerr.New(syncerr.KindExtract, "extract", err)
	}
	defer func() {
		_ = f.Close()
	}()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return syncerr.Newf(syncerr.KindExtract, "extract", "%s is not a gzip archive: %w", archivePath, err)
	}
	defer func() {
		_ = gr.Close()
	}()

	if err := os.MkdirAll(destDir, 0750); err != nil {
		return fmt.Errorf("failed to create extraction directory: %w", err)
	}

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return syncerr.Newf(syncerr.KindExtract, "extract", "invalid tar stream in %s: %w", archivePath, err)
		}

		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return syncerr.New(syncerr.KindExtract, "extract", err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		default:
			slog.Debug("Skipping unsupported archive entry", "name", hdr.Name, "type", string(hdr.Typeflag))
		}
	}
}

// safeJoin resolves name under root and rejects traversal outside of it
func safeJoin(root, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes the destination directory", name)
	}
	return filepath.Join(root, clean), nil
}

func writeFile(target string, r io.Reader, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", target, err)
	}
	if perm == 0 {
		perm = 0600
	}
	//nolint:gosec // Target is confined to the extraction directory by safeJoin
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	//nolint:gosec // Rule packages are size-bounded by the fetcher
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return syncerr.Newf(syncerr.KindExtract, "extract", "failed to write %s: %w", target, err)
	}
	return out.Close()
}

// PackDir writes srcDir as a deterministic tar.gz to w. Entries are stored under prefix
// (or at the archive root when prefix is empty), sorted by path with a fixed mtime.
func PackDir(srcDir, prefix string, w io.Writer) error {
	var paths []string
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == srcDir {
			return nil
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if d.IsDir() || d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", srcDir, err)
	}
	sort.Strings(paths)

	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)

	if prefix != "" {
		if err := tw.WriteHeader(dirHeader(prefix)); err != nil {
			return fmt.Errorf("failed to write header %s: %w", prefix, err)
		}
	}

	for _, path := range paths {
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if prefix != "" {
			name = prefix + "/" + name
		}
		if err := addEntry(tw, path, name); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finalise tar stream: %w", err)
	}
	return gw.Close()
}

// PackDirToFile writes srcDir as a tar.gz archive at dst
func PackDirToFile(srcDir, prefix, dst string) error {
	//nolint:gosec // Destination lives in a scoped temporary directory
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", dst, err)
	}
	if err := PackDir(srcDir, prefix, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func dirHeader(name string) *tar.Header {
	return &tar.Header{
		Typeflag: tar.TypeDir,
		Name:     strings.TrimSuffix(name, "/") + "/",
		Mode:     0755,
		ModTime:  time.Unix(0, 0),
	}
}

func addEntry(tw *tar.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		if err := tw.WriteHeader(dirHeader(name)); err != nil {
			return fmt.Errorf("failed to write header %s: %w", name, err)
		}
		return nil
	}

	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     info.Size(),
		Mode:     0644,
		ModTime:  time.Unix(0, 0),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write header %s: %w", name, err)
	}

	//nolint:gosec // Path comes from walking the source directory
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to write data %s: %w", name, err)
	}
	return nil
}
