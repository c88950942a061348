// Package httpclient provides a bounded HTTP client used to download rule packages.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is used when a non-positive timeout is given
	DefaultTimeout = 30 * time.Second

	// DefaultMaxSize bounds a single response body
	DefaultMaxSize int64 = 100 * 1024 * 1024

	userAgent    = "minos-rulesync/1.0"
	acceptHeader = "application/gzip, application/x-gzip, application/octet-stream, */*"
)

// ErrResponseTooLarge is returned when a body exceeds the configured maximum size
var ErrResponseTooLarge = errors.New("response exceeds maximum allowed size")

// Client downloads remote content over HTTP(S)
type Client interface {
	// Get returns the full response body of url
	Get(ctx context.Context, url string) ([]byte, error)

	// Download streams the response body of url into w and returns the number of bytes written
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

type defaultClient struct {
	httpClient *http.Client
	maxSize    int64
}

// Option configures the default client
type Option func(*defaultClient)

// WithMaxSize overrides the maximum accepted body size
func WithMaxSize(size int64) Option {
	return func(c *defaultClient) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

// WithTransport replaces the underlying round tripper
func WithTransport(rt http.RoundTripper) Option {
	return func(c *defaultClient) {
		c.httpClient.Transport = rt
	}
}

// NewDefaultClient creates a client with the given overall request timeout
func NewDefaultClient(timeout time.Duration, opts ...Option) Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &defaultClient{
		httpClient: &http.Client{Timeout: timeout},
		maxSize:    DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *defaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.Download(ctx, url, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *defaultClient) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Debug("Failed to close response body", "url", url, "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, NewHTTPError(resp.StatusCode, url, http.StatusText(resp.StatusCode))
	}

	if resp.ContentLength > c.maxSize {
		return 0, fmt.Errorf("%w (%.2f MB): Content-Length is %d bytes",
			ErrResponseTooLarge, float64(c.maxSize)/(1024*1024), resp.ContentLength)
	}

	// Read one byte past the limit to detect oversized bodies without a Content-Length
	n, err := io.Copy(w, io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		return n, fmt.Errorf("failed to read response body: %w", err)
	}
	if n > c.maxSize {
		return n, fmt.Errorf("%w (%.2f MB)", ErrResponseTooLarge, float64(c.maxSize)/(1024*1024))
	}

	slog.Debug("Downloaded content", "url", url, "bytes", n)
	return n, nil
}
