// Package status persists per-regulation sync status.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// StatusFileName is the name of the status file
	StatusFileName = "status.json"

	// DirName is the directory under a cache root that holds status files
	DirName = ".status"
)

// Store saves and loads sync status keyed by regulation
type Store interface {
	// Save writes the status of regulation
	Save(ctx context.Context, regulation string, status *SyncStatus) error

	// Load reads the status of regulation. A regulation that was never synced yields an
	// empty status.
	Load(ctx context.Context, regulation string) (*SyncStatus, error)

	// LoadAll reads the status of every regulation with a status file
	LoadAll(ctx context.Context) (map[string]*SyncStatus, error)
}

type fileStore struct {
	basePath string
}

// NewFileStore creates a Store writing <basePath>/<regulation>/status.json
func NewFileStore(basePath string) Store {
	return &fileStore{basePath: basePath}
}

// ForCacheRoot returns the Store kept inside a multi-regulation cache root
func ForCacheRoot(cacheRoot string) Store {
	return NewFileStore(filepath.Join(cacheRoot, DirName))
}

func (f *fileStore) Save(_ context.Context, regulation string, status *SyncStatus) error {
	dir := filepath.Join(f.basePath, regulation)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create status directory for regulation '%s': %w", regulation, err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status for regulation '%s': %w", regulation, err)
	}

	filePath := filepath.Join(dir, StatusFileName)
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file for regulation '%s': %w", regulation, err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file for regulation '%s': %w", regulation, err)
	}
	return nil
}

func (f *fileStore) Load(_ context.Context, regulation string) (*SyncStatus, error) {
	filePath := filepath.Join(f.basePath, regulation, StatusFileName)

	// #nosec G304 -- basePath is configured and regulation names are validated by the coordinator
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &SyncStatus{}, nil
		}
		return nil, fmt.Errorf("failed to read status file for regulation '%s': %w", regulation, err)
	}

	var status SyncStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status for regulation '%s': %w", regulation, err)
	}
	return &status, nil
}

func (f *fileStore) LoadAll(ctx context.Context) (map[string]*SyncStatus, error) {
	result := make(map[string]*SyncStatus)

	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read status directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		status, err := f.Load(ctx, entry.Name())
		if err != nil {
			// Unreadable entries are skipped so one corrupt file does not hide the rest
			continue
		}
		result[entry.Name()] = status
	}
	return result, nil
}
