package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPStore implements FileStore for plain http(s) file URLs, for uploads
// that live behind a CDN or presigned link rather than in our own bucket.
type HTTPStore struct {
	client *resty.Client
}

// NewHTTPStore creates a new HTTP file fetcher.
// Parameters: none.
// Returns:
//   - *HTTPStore: initialized fetcher with timeout and bounded retries.
func NewHTTPStore() *HTTPStore {
	client := resty.New()
	client.SetTimeout(60 * time.Second)
	client.SetRetryCount(2)

	return &HTTPStore{client: client}
}

// Fetch downloads the file behind an http(s) URL.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - fileURL: absolute http(s) URL.
// Returns:
//   - io.ReadCloser: file content stream; caller closes.
//   - error: non-nil if the request fails or returns a non-2xx status.
func (s *HTTPStore) Fetch(ctx context.Context, fileURL string) (io.ReadCloser, error) {
	resp, err := s.client.R().SetContext(ctx).Get(fileURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", fileURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch %s: status %d", fileURL, resp.StatusCode())
	}
	return io.NopCloser(bytes.NewReader(resp.Body())), nil
}

// Exists checks reachability of the file behind an http(s) URL.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - fileURL: absolute http(s) URL.
// Returns:
//   - bool: true if a HEAD request succeeds.
//   - error: non-nil on transport failure.
func (s *HTTPStore) Exists(ctx context.Context, fileURL string) (bool, error) {
	resp, err := s.client.R().SetContext(ctx).Head(fileURL)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", fileURL, err)
	}
	return !resp.IsError(), nil
}

// Delete is a no-op for HTTP sources: the upload surface owns the file.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - fileURL: absolute http(s) URL.
// Returns:
//   - error: always nil.
func (s *HTTPStore) Delete(ctx context.Context, fileURL string) error {
	return nil
}
