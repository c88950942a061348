package oci

import (
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/registry"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/static"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

// LayerMediaType is used for file layers pushed by PushTestArtifact
const LayerMediaType types.MediaType = "application/vnd.oci.image.layer.v1.tar+gzip"

// NewTestRegistry starts an in-memory registry and returns its host:port
func NewTestRegistry(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(registry.New())
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("Failed to parse registry URL: %v", err)
	}
	return u.Host
}

// PushTestArtifact pushes an artifact whose layers are the given files, keyed by title.
// An empty title pushes an untitled layer.
func PushTestArtifact(t *testing.T, reference string, files map[string][]byte) {
	t.Helper()

	ref, err := name.ParseReference(reference)
	if err != nil {
		t.Fatalf("Failed to parse reference: %v", err)
	}

	var img v1.Image = mutate.MediaType(empty.Image, types.OCIManifestSchema1)
	img = mutate.ConfigMediaType(img, types.OCIConfigJSON)
	for title, content := range files {
		add := mutate.Addendum{Layer: static.NewLayer(content, LayerMediaType)}
		if title != "" {
			add.Annotations = map[string]string{TitleAnnotation: title}
		}
		img, err = mutate.Append(img, add)
		if err != nil {
			t.Fatalf("Failed to append layer %q: %v", title, err)
		}
	}

	if err := remote.Write(ref, img); err != nil {
		t.Fatalf("Failed to push artifact: %v", err)
	}
}
