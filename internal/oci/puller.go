// Package oci pulls rule package artifacts from OCI registries.
//
// An artifact is expected to carry its files as layers annotated with
// org.opencontainers.image.title, which is how oras and similar tools push plain files.
package oci

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// TitleAnnotation names the file a layer should be written to
const TitleAnnotation = "org.opencontainers.image.title"

//go:generate mockgen -destination=mocks/mock_puller.go -package=mocks -source=puller.go Puller

// Puller downloads the files of an OCI artifact
type Puller interface {
	// Pull writes every titled layer of reference into outDir and returns the file names written
	Pull(ctx context.Context, reference, outDir string) ([]string, error)
}

type remotePuller struct {
	insecure bool
	keychain authn.Keychain
}

// Option configures the remote puller
type Option func(*remotePuller)

// WithInsecure allows plain HTTP registries
func WithInsecure(insecure bool) Option {
	return func(p *remotePuller) {
		p.insecure = insecure
	}
}

// WithKeychain overrides the credential source, authn.DefaultKeychain by default
func WithKeychain(kc authn.Keychain) Option {
	return func(p *remotePuller) {
		p.keychain = kc
	}
}

// NewRemotePuller creates a Puller backed by go-containerregistry
func NewRemotePuller(opts ...Option) Puller {
	p := &remotePuller{keychain: authn.DefaultKeychain}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *remotePuller) Pull(ctx context.Context, reference, outDir string) ([]string, error) {
	var nameOpts []name.Option
	if p.insecure {
		nameOpts = append(nameOpts, name.Insecure)
	}
	ref, err := name.ParseReference(reference, nameOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reference %q: %w", reference, err)
	}

	img, err := remote.Image(ref, remote.WithContext(ctx), remote.WithAuthFromKeychain(p.keychain))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artifact %s: %w", ref.String(), err)
	}

	manifest, err := img.Manifest()
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest of %s: %w", ref.String(), err)
	}

	written := make([]string, 0, len(manifest.Layers))
	for _, desc := range manifest.Layers {
		title := desc.Annotations[TitleAnnotation]
		if title == "" {
			slog.Debug("Skipping untitled layer", "reference", ref.String(), "digest", desc.Digest.String())
			continue
		}
		if err := validateTitle(title); err != nil {
			return nil, err
		}

		layer, err := img.LayerByDigest(desc.Digest)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve layer %s: %w", desc.Digest, err)
		}
		rc, err := layer.Compressed()
		if err != nil {
			return nil, fmt.Errorf("failed to open layer %s: %w", desc.Digest, err)
		}
		err = writeFile(filepath.Join(outDir, filepath.FromSlash(title)), rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		written = append(written, title)
	}

	slog.Debug("Pulled OCI artifact", "reference", ref.String(), "files", written)
	return written, nil
}

func validateTitle(title string) error {
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(title)))
	if filepath.IsAbs(title) || strings.HasPrefix(title, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("layer title %q escapes the output directory", title)
	}
	return nil
}

func writeFile(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	//nolint:gosec // Path is validated against the output directory
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
