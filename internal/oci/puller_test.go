package oci

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemotePuller_Pull(t *testing.T) {
	t.Parallel()

	host := NewTestRegistry(t)
	reference := host + "/minos/gdpr:v1.0.0"
	PushTestArtifact(t, reference, map[string][]byte{
		"rules.tar.gz":   []byte("archive"),
		"docs/README.md": []byte("readme"),
		"":               []byte("ignored"),
	})

	outDir := t.TempDir()
	files, err := NewRemotePuller().Pull(context.Background(), reference, outDir)
	require.NoError(t, err)

	sort.Strings(files)
	assert.Equal(t, []string{"docs/README.md", "rules.tar.gz"}, files)

	data, err := os.ReadFile(filepath.Join(outDir, "rules.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, "archive", string(data))
	assert.FileExists(t, filepath.Join(outDir, "docs", "README.md"))
}

func TestRemotePuller_Pull_Errors(t *testing.T) {
	t.Parallel()

	host := NewTestRegistry(t)

	tests := []struct {
		name      string
		reference string
		setup     func(t *testing.T)
	}{
		{
			name:      "invalid reference",
			reference: "UPPER/case::bad",
		},
		{
			name:      "missing tag",
			reference: host + "/minos/missing:v9",
		},
		{
			name:      "escaping title",
			reference: host + "/minos/escape:v1",
			setup: func(t *testing.T) {
				t.Helper()
				PushTestArtifact(t, host+"/minos/escape:v1", map[string][]byte{"../evil.tar.gz": []byte("x")})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.setup != nil {
				tt.setup(t)
			}
			outDir := t.TempDir()
			_, err := NewRemotePuller(WithInsecure(true)).Pull(context.Background(), tt.reference, outDir)
			require.Error(t, err)
			assert.NoFileExists(t, filepath.Join(filepath.Dir(outDir), "evil.tar.gz"))
		})
	}
}
