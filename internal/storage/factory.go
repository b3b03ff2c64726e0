package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Router is a FileStore that dispatches on the fileURL scheme:
// s3:// and bare keys go to the S3 store, http(s):// to the HTTP fetcher,
// file:// to the local filesystem (development only).
type Router struct {
	s3    FileStore
	http  FileStore
	local FileStore
}

// NewRouter creates a scheme-dispatching FileStore.
// Parameters:
//   - cfg: S3 storage configuration for bucket-resident files.
// Returns:
//   - *Router: initialized router.
//   - error: non-nil if the S3 client cannot be created.
func NewRouter(cfg *S3Config) (*Router, error) {
	s3Store, err := NewS3Store(cfg)
	if err != nil {
		return nil, err
	}
	return &Router{
		s3:    s3Store,
		http:  NewHTTPStore(),
		local: localStore{},
	}, nil
}

// pick selects the backing store for a fileURL.
func (r *Router) pick(fileURL string) FileStore {
	switch {
	case strings.HasPrefix(fileURL, "http://"), strings.HasPrefix(fileURL, "https://"):
		return r.http
	case strings.HasPrefix(fileURL, "file://"):
		return r.local
	default:
		return r.s3
	}
}

// Fetch returns a byte stream for the file behind fileURL.
func (r *Router) Fetch(ctx context.Context, fileURL string) (io.ReadCloser, error) {
	return r.pick(fileURL).Fetch(ctx, fileURL)
}

// Exists checks whether the file behind fileURL is reachable.
func (r *Router) Exists(ctx context.Context, fileURL string) (bool, error) {
	return r.pick(fileURL).Exists(ctx, fileURL)
}

// Delete removes the stored file where the backing store supports it.
func (r *Router) Delete(ctx context.Context, fileURL string) error {
	return r.pick(fileURL).Delete(ctx, fileURL)
}

// localStore reads file:// URLs from the local filesystem.
type localStore struct{}

func (localStore) Fetch(ctx context.Context, fileURL string) (io.ReadCloser, error) {
	path := strings.TrimPrefix(fileURL, "file://")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

func (localStore) Exists(ctx context.Context, fileURL string) (bool, error) {
	path := strings.TrimPrefix(fileURL, "file://")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (localStore) Delete(ctx context.Context, fileURL string) error {
	path := strings.TrimPrefix(fileURL, "file://")
	return os.Remove(path)
}
