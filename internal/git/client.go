// Package git clones rule package repositories with go-git.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

// Client defines the interface for Git operations
type Client interface {
	// Clone makes a shallow, single-branch checkout of the default branch
	Clone(ctx context.Context, config *CloneConfig) (*RepositoryInfo, error)

	// Cleanup removes a checkout created by Clone
	Cleanup(ctx context.Context, repoInfo *RepositoryInfo) error
}

// defaultGitClient implements Client using go-git
type defaultGitClient struct{}

// NewDefaultGitClient creates a new defaultGitClient
func NewDefaultGitClient() Client {
	return &defaultGitClient{}
}

func (*defaultGitClient) Clone(ctx context.Context, config *CloneConfig) (*RepositoryInfo, error) {
	if config == nil || config.URL == "" {
		return nil, errors.New("repository URL is required")
	}

	dir := config.Dir
	ownsDir := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "minos-git-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create checkout directory: %w", err)
		}
		dir = tmp
		ownsDir = true
	}

	cloneOptions := &git.CloneOptions{
		URL:          config.URL,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if config.Auth != nil && config.Auth.Username != "" {
		cloneOptions.Auth = &githttp.BasicAuth{
			Username: config.Auth.Username,
			Password: config.Auth.Password,
		}
		slog.Debug("Using Git HTTP Basic authentication", "username", config.Auth.Username)
	}

	repo, err := git.PlainCloneContext(ctx, dir, false, cloneOptions)
	if err != nil {
		if ownsDir {
			_ = os.RemoveAll(dir)
		}
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}

	repoInfo := &RepositoryInfo{
		Repository: repo,
		Path:       dir,
		RemoteURL:  config.URL,
		ownsDir:    ownsDir,
	}

	ref, err := repo.Head()
	if err != nil {
		if ownsDir {
			_ = os.RemoveAll(dir)
		}
		return nil, fmt.Errorf("failed to get HEAD reference: %w", err)
	}
	if ref.Name().IsBranch() {
		repoInfo.Branch = ref.Name().Short()
	}
	repoInfo.CommitHash = ref.Hash().String()

	slog.Debug("Cloned repository", "url", config.URL, "branch", repoInfo.Branch, "commit", repoInfo.CommitHash)
	return repoInfo, nil
}

func (*defaultGitClient) Cleanup(_ context.Context, repoInfo *RepositoryInfo) error {
	if repoInfo == nil {
		return errors.New("repository info is nil")
	}

	repoInfo.Repository = nil
	if !repoInfo.ownsDir || repoInfo.Path == "" {
		return nil
	}
	if err := os.RemoveAll(repoInfo.Path); err != nil {
		return fmt.Errorf("failed to remove checkout %s: %w", repoInfo.Path, err)
	}
	repoInfo.Path = ""
	return nil
}
