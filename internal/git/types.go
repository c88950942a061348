package git

import (
	"github.com/go-git/go-git/v5"
)

// BasicAuth holds HTTP basic credentials for private repositories
type BasicAuth struct {
	Username string
	Password string
}

// CloneConfig contains configuration for cloning a repository
type CloneConfig struct {
	// URL is the repository URL to clone. Local paths and file:// URLs are accepted.
	URL string

	// Dir is the checkout directory; a temporary directory is created when empty
	Dir string

	// Auth is used for HTTP(S) remotes when set
	Auth *BasicAuth
}

// RepositoryInfo describes a cloned repository checkout
type RepositoryInfo struct {
	// Repository is the go-git repository instance
	Repository *git.Repository

	// Path is the root of the working tree on disk
	Path string

	// RemoteURL is the remote repository URL
	RemoteURL string

	// Branch is the checked out branch name, if HEAD is a branch
	Branch string

	// CommitHash is the commit checked out at HEAD
	CommitHash string

	// ownsDir is true when the client created Path and must remove it on cleanup
	ownsDir bool
}
