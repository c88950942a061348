// Package fetch materialises rule package sources as local archive files.
//
// Each source type has its own Resolver. Remote resolvers work inside a per-call
// temporary directory that is removed when the returned Artifact is closed.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/stacklok/minos/internal/git"
	"github.com/stacklok/minos/internal/httpclient"
	"github.com/stacklok/minos/internal/oci"
	"github.com/stacklok/minos/internal/source"
	"github.com/stacklok/minos/internal/syncerr"
)

// DefaultTimeout bounds a single remote fetch
const DefaultTimeout = 60 * time.Second

// Artifact is a materialised archive. Close releases any temporary files backing it.
type Artifact struct {
	// Path is the local archive file
	Path string

	cleanup func() error
}

// NewArtifact creates an Artifact; cleanup may be nil
func NewArtifact(path string, cleanup func() error) *Artifact {
	return &Artifact{Path: path, cleanup: cleanup}
}

// Close removes temporary files; it is safe to call more than once
func (a *Artifact) Close() error {
	if a == nil || a.cleanup == nil {
		return nil
	}
	fn := a.cleanup
	a.cleanup = nil
	return fn()
}

//go:generate mockgen -destination=mocks/mock_fetcher.go -package=mocks -source=fetcher.go Fetcher

// Fetcher resolves a source into a local archive
type Fetcher interface {
	// Materialize returns a local archive for src. Local sources are passed through
	// untouched; their existence is not checked here.
	Materialize(ctx context.Context, src source.Source) (*Artifact, error)
}

type fetcher struct {
	timeout    time.Duration
	tempRoot   string
	maxBytes   int64
	httpClient httpclient.Client
	gitClient  git.Client
	gitAuth    *git.BasicAuth
	puller     oci.Puller
	resolvers  map[source.Type]Resolver
}

// Option configures the fetcher
type Option func(*fetcher)

// WithTimeout bounds each remote fetch
func WithTimeout(d time.Duration) Option {
	return func(f *fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithTempRoot sets the parent directory for per-fetch temporary directories
func WithTempRoot(dir string) Option {
	return func(f *fetcher) {
		f.tempRoot = dir
	}
}

// WithMaxArchiveBytes bounds HTTP downloads made by the default HTTP client
func WithMaxArchiveBytes(n int64) Option {
	return func(f *fetcher) {
		f.maxBytes = n
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c httpclient.Client) Option {
	return func(f *fetcher) {
		f.httpClient = c
	}
}

// WithGitClient replaces the git client
func WithGitClient(c git.Client) Option {
	return func(f *fetcher) {
		f.gitClient = c
	}
}

// WithGitAuth sets HTTP basic credentials used for git clones
func WithGitAuth(username, password string) Option {
	return func(f *fetcher) {
		if username != "" || password != "" {
			f.gitAuth = &git.BasicAuth{Username: username, Password: password}
		}
	}
}

// WithPuller replaces the OCI puller
func WithPuller(p oci.Puller) Option {
	return func(f *fetcher) {
		f.puller = p
	}
}

// WithResolver overrides the resolver used for one source type
func WithResolver(t source.Type, r Resolver) Option {
	return func(f *fetcher) {
		f.resolvers[t] = r
	}
}

// New creates a Fetcher with resolvers for every source type
func New(opts ...Option) Fetcher {
	f := &fetcher{
		timeout:   DefaultTimeout,
		resolvers: make(map[source.Type]Resolver),
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.httpClient == nil {
		f.httpClient = httpclient.NewDefaultClient(f.timeout, httpclient.WithMaxSize(f.maxBytes))
	}
	if f.gitClient == nil {
		f.gitClient = git.NewDefaultGitClient()
	}
	if f.puller == nil {
		f.puller = oci.NewRemotePuller()
	}

	defaults := map[source.Type]Resolver{
		source.TypeLocal: localResolver{},
		source.TypeHTTP:  &httpResolver{client: f.httpClient},
		source.TypeGit:   &gitResolver{client: f.gitClient, auth: f.gitAuth},
		source.TypeOCI:   &ociResolver{puller: f.puller},
	}
	for t, r := range defaults {
		if _, ok := f.resolvers[t]; !ok {
			f.resolvers[t] = r
		}
	}
	return f
}

func (f *fetcher) Materialize(ctx context.Context, src source.Source) (*Artifact, error) {
	if err := src.Validate(); err != nil {
		return nil, syncerr.New(syncerr.KindInvalidSource, "fetch", err)
	}

	resolver, ok := f.resolvers[src.Type]
	if !ok {
		return nil, syncerr.Newf(syncerr.KindInvalidSource, "fetch", "no resolver for source type %s", src.Type)
	}

	if !src.IsRemote() {
		path, err := resolver.Resolve(ctx, src, "")
		if err != nil {
			return nil, syncerr.Classify(syncerr.KindSourceNotFound, "fetch", err)
		}
		return NewArtifact(path, nil), nil
	}

	workDir, err := os.MkdirTemp(f.tempRoot, "minos-fetch-*")
	if err != nil {
		return nil, syncerr.New(syncerr.KindFetch, "fetch", fmt.Errorf("failed to create temporary directory: %w", err))
	}
	cleanup := func() error {
		if err := os.RemoveAll(workDir); err != nil {
			return fmt.Errorf("failed to remove temporary directory %s: %w", workDir, err)
		}
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	slog.Info("Fetching rule package", "source", src.String(), "type", src.Type)
	start := time.Now()

	path, err := resolver.Resolve(fetchCtx, src, workDir)
	if err != nil {
		_ = cleanup()
		return nil, syncerr.Classify(syncerr.KindFetch, "fetch "+string(src.Type), err)
	}

	slog.Debug("Fetched rule package", "source", src.String(), "path", path, "duration", time.Since(start))
	return NewArtifact(path, cleanup), nil
}
