package httpclient_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/minos/internal/httpclient"
)

// newTestServer creates a test server with keep-alives disabled so parallel tests
// do not share idle connections.
func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

func TestDefaultClient_Get(t *testing.T) {
	t.Parallel()

	var receivedUserAgent, receivedMethod string
	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedUserAgent = r.Header.Get("User-Agent")
		receivedMethod = r.Method
		_, _ = w.Write([]byte("package bytes"))
	}))
	defer server.Close()

	client := httpclient.NewDefaultClient(5 * time.Second)
	data, err := client.Get(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, []byte("package bytes"), data)
	assert.Equal(t, "minos-rulesync/1.0", receivedUserAgent)
	assert.Equal(t, http.MethodGet, receivedMethod)
}

func TestDefaultClient_Download(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("r"), 64*1024)
	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	var buf bytes.Buffer
	n, err := httpclient.NewDefaultClient(0).Download(context.Background(), server.URL, &buf)

	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())
}

func TestDefaultClient_HTTPErrors(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusNotFound, http.StatusUnauthorized, http.StatusBadGateway} {
		t.Run(fmt.Sprintf("status %d", status), func(t *testing.T) {
			t.Parallel()

			server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			}))
			defer server.Close()

			_, err := httpclient.NewDefaultClient(5*time.Second).Get(context.Background(), server.URL)
			require.Error(t, err)

			var httpErr *httpclient.HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, status, httpErr.StatusCode)
			assert.Contains(t, err.Error(), fmt.Sprintf("HTTP %d", status))
		})
	}
}

func TestDefaultClient_NetworkErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
	}{
		{name: "invalid URL format", url: "not-a-valid-url"},
		{name: "empty URL", url: ""},
		{name: "closed port", url: "http://127.0.0.1:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := httpclient.NewDefaultClient(2*time.Second).Get(context.Background(), tt.url)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to execute request")
		})
	}
}

func TestDefaultClient_ContextCancellation(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := httpclient.NewDefaultClient(5*time.Second).Get(ctx, server.URL)
	require.Error(t, err)
}

func TestDefaultClient_SizeLimit(t *testing.T) {
	t.Parallel()

	const limit = 1024

	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr bool
	}{
		{
			name: "exactly at limit",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write(make([]byte, limit))
			},
		},
		{
			name: "declared Content-Length over limit",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Length", fmt.Sprintf("%d", limit+1))
				_, _ = w.Write(make([]byte, limit+1))
			},
			wantErr: true,
		},
		{
			name: "streamed body over limit",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Transfer-Encoding", "chunked")
				for i := 0; i < 4; i++ {
					_, _ = w.Write(make([]byte, limit/2))
					if f, ok := w.(http.Flusher); ok {
						f.Flush()
					}
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(tt.handler)
			defer server.Close()

			client := httpclient.NewDefaultClient(5*time.Second, httpclient.WithMaxSize(limit))
			data, err := client.Get(context.Background(), server.URL)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, httpclient.ErrResponseTooLarge))
				return
			}
			require.NoError(t, err)
			assert.Len(t, data, limit)
		})
	}
}
