package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/minos/internal/syncerr"
)

func TestDigest(t *testing.T) {
	t.Parallel()

	// Larger than one chunk to exercise the buffered path
	content := []byte(strings.Repeat("rule-content ", 20000))
	path := filepath.Join(t.TempDir(), "rules.tar.gz")
	require.NoError(t, os.WriteFile(path, content, 0600))

	sum := sha256.Sum256(content)
	want := hex.EncodeToString(sum[:])

	got, err := Digest(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDigest_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Digest(filepath.Join(t.TempDir(), "missing.tar.gz"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, syncerr.ErrSourceNotFound))
}

func TestVerify(t *testing.T) {
	t.Parallel()

	const actual = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

	tests := []struct {
		name     string
		expected string
		wantErr  bool
	}{
		{name: "no expectation", expected: "", wantErr: false},
		{name: "match", expected: actual, wantErr: false},
		{name: "match uppercase", expected: strings.ToUpper(actual), wantErr: false},
		{name: "mismatch", expected: "badchecksum", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Verify(actual, tt.expected)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, syncerr.ErrChecksumMismatch))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVerifySignature_Reserved(t *testing.T) {
	t.Parallel()

	assert.NoError(t, VerifySignature("/tmp/rules.tar.gz", "dummy-key"))
}
