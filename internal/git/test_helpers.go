package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// TestRepoConfig contains configuration for creating a test repository
type TestRepoConfig struct {
	Files  map[string]string // Map of slash-separated filename to content
	Author *object.Signature // Author for commits (uses default if nil)
}

// CreateTestRepo creates a git repository under t.TempDir with one commit holding the given files.
// Binary content can be passed as a string.
func CreateTestRepo(t *testing.T, config TestRepoConfig) string {
	t.Helper()

	repoDir := filepath.Join(t.TempDir(), "repo")
	repo, err := git.PlainInit(repoDir, false)
	if err != nil {
		t.Fatalf("Failed to init repository: %v", err)
	}

	workTree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to get worktree: %v", err)
	}

	author := config.Author
	if author == nil {
		author = &object.Signature{
			Name:  "Test Author",
			Email: "test@example.com",
		}
	}

	for filename, content := range config.Files {
		filePath := filepath.Join(repoDir, filepath.FromSlash(filename))
		if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", filename, err)
		}
		if err := os.WriteFile(filePath, []byte(content), 0600); err != nil {
			t.Fatalf("Failed to write file %s: %v", filename, err)
		}
		if _, err := workTree.Add(filename); err != nil {
			t.Fatalf("Failed to add file %s: %v", filename, err)
		}
	}

	if _, err := workTree.Commit("Initial commit", &git.CommitOptions{Author: author}); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	return repoDir
}
