// Package integrity computes and verifies rule package digests.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/stacklok/minos/internal/syncerr"
)

// chunkSize is the read buffer used while hashing so memory stays constant in file size
const chunkSize = 64 * 1024

// Digest returns the hex-encoded SHA-256 of the file at path
func Digest(path string) (string, error) {
	//nolint:gosec // Archive path is produced by the fetcher or supplied by the operator
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", syncerr.Newf(syncerr.KindSourceNotFound, "digest", "archive not found: %s", path)
		}
		return "", fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	return DigestReader(f)
}

// DigestReader returns the hex-encoded SHA-256 of everything read from r
func DigestReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("failed to hash archive: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify fails with a ChecksumMismatch error when expected is set and differs from actual.
// Hex digests are compared case-insensitively.
func Verify(actual, expected string) error {
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return nil
	}
	if !strings.EqualFold(actual, expected) {
		return syncerr.Newf(syncerr.KindChecksumMismatch, "verify", "expected sha256 %s, got %s", expected, actual)
	}
	return nil
}

// VerifySignature is reserved for detached GPG signature checks. The key is accepted and
// recorded in version metadata but no verification is performed yet.
func VerifySignature(_ string, _ string) error {
	return nil
}
