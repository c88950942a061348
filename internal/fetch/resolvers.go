package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/stacklok/minos/internal/archive"
	"github.com/stacklok/minos/internal/git"
	"github.com/stacklok/minos/internal/httpclient"
	"github.com/stacklok/minos/internal/oci"
	"github.com/stacklok/minos/internal/source"
	"github.com/stacklok/minos/internal/syncerr"
)

const (
	// DefaultGitInnerPath is looked up in a clone when the source names no path
	DefaultGitInnerPath = "rules.tar.gz"

	archiveSuffix   = ".tar.gz"
	archiveName     = "package.tar.gz"
	copyPrefix      = "artifact-"
	checkoutDirName = "repo"
	ociDirName      = "oci"
)

// Resolver materialises one source type. workDir is a private temporary directory
// for remote sources and empty for local ones.
type Resolver interface {
	Resolve(ctx context.Context, src source.Source, workDir string) (string, error)
}

type localResolver struct{}

func (localResolver) Resolve(_ context.Context, src source.Source, _ string) (string, error) {
	return src.Location, nil
}

type httpResolver struct {
	client httpclient.Client
}

func (r *httpResolver) Resolve(ctx context.Context, src source.Source, workDir string) (string, error) {
	name := archiveName
	if u, err := url.Parse(src.Location); err == nil {
		if base := path.Base(u.Path); strings.HasSuffix(base, archiveSuffix) {
			name = base
		}
	}
	dst := filepath.Join(workDir, name)

	//nolint:gosec // Destination is inside the fetch work directory
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create download file: %w", err)
	}
	if _, err := r.client.Download(ctx, src.Location, f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to download %s: %w", src.Location, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to finish download: %w", err)
	}
	return dst, nil
}

type gitResolver struct {
	client git.Client
	auth   *git.BasicAuth
}

func (r *gitResolver) Resolve(ctx context.Context, src source.Source, workDir string) (string, error) {
	inner := src.InnerPath
	if inner == "" {
		inner = DefaultGitInnerPath
	}

	checkout := filepath.Join(workDir, checkoutDirName)
	info, err := r.client.Clone(ctx, &git.CloneConfig{URL: src.Location, Dir: checkout, Auth: r.auth})
	if err != nil {
		return "", err
	}
	defer func() {
		_ = r.client.Cleanup(ctx, info)
	}()

	target, err := within(checkout, inner)
	if err != nil {
		return "", err
	}
	stat, err := os.Stat(target)
	if err != nil {
		return "", fmt.Errorf("path %q not found in repository %s", inner, src.Location)
	}

	if stat.IsDir() {
		prefix := ""
		if target != checkout {
			prefix = filepath.Base(target)
		}
		dst := filepath.Join(workDir, archiveName)
		if err := archive.PackDirToFile(target, prefix, dst); err != nil {
			return "", fmt.Errorf("failed to pack %q: %w", inner, err)
		}
		return dst, nil
	}

	dst := filepath.Join(workDir, copyPrefix+filepath.Base(target))
	if err := copyFile(target, dst); err != nil {
		return "", err
	}
	return dst, nil
}

type ociResolver struct {
	puller oci.Puller
}

func (r *ociResolver) Resolve(ctx context.Context, src source.Source, workDir string) (string, error) {
	outDir := filepath.Join(workDir, ociDirName)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	files, err := r.puller.Pull(ctx, src.Location, outDir)
	if err != nil {
		return "", err
	}

	if src.InnerPath != "" {
		target, err := within(outDir, src.InnerPath)
		if err != nil {
			return "", err
		}
		if stat, err := os.Stat(target); err != nil || stat.IsDir() {
			return "", fmt.Errorf("file %q not found in artifact %s", src.InnerPath, src.Location)
		}
		return target, nil
	}

	var archives []string
	for _, f := range files {
		if strings.HasSuffix(f, archiveSuffix) {
			archives = append(archives, f)
		}
	}
	switch len(archives) {
	case 1:
		return filepath.Join(outDir, filepath.FromSlash(archives[0])), nil
	case 0:
		return "", fmt.Errorf("artifact %s contains no *%s file", src.Location, archiveSuffix)
	default:
		return "", fmt.Errorf("artifact %s contains %d *%s files %v, select one with #path=",
			src.Location, len(archives), archiveSuffix, archives)
	}
}

// within joins rel onto root and rejects results outside root
func within(root, rel string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(rel))
	relToRoot, err := filepath.Rel(root, target)
	if err != nil || relToRoot == ".." || strings.HasPrefix(relToRoot, ".."+string(filepath.Separator)) {
		return "", syncerr.Newf(syncerr.KindInvalidSource, "resolve path", "path %q escapes the source root", rel)
	}
	return target, nil
}

func copyFile(src, dst string) error {
	//nolint:gosec // Source is inside the fetch work directory
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() {
		_ = in.Close()
	}()

	//nolint:gosec // Destination is inside the fetch work directory
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
