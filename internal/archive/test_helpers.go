package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

// TestPackageConfig describes a rule package built for tests
type TestPackageConfig struct {
	// Name is used for the archive file name, e.g. "rules-v1.0.0"
	Name string
	// Files maps slash-separated paths to contents, placed under the "rules/" prefix
	Files map[string]string
}

// CreateTestPackage writes a tar.gz rule package into dir and returns its path and SHA-256
func CreateTestPackage(t *testing.T, dir string, config TestPackageConfig) (string, string) {
	t.Helper()

	name := config.Name
	if name == "" {
		name = "rules"
	}
	files := config.Files
	if len(files) == 0 {
		files = map[string]string{"rules.txt": "rule"}
	}

	srcDir := filepath.Join(dir, name+"-src")
	for rel, content := range files {
		path := filepath.Join(srcDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("Failed to write file %s: %v", rel, err)
		}
	}

	archivePath := filepath.Join(dir, name+".tar.gz")
	if err := PackDirToFile(srcDir, "rules", archivePath); err != nil {
		t.Fatalf("Failed to pack test package: %v", err)
	}

	data, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatalf("Failed to read test package: %v", err)
	}
	sum := sha256.Sum256(data)
	return archivePath, hex.EncodeToString(sum[:])
}
