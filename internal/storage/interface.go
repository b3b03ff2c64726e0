package storage

import (
	"context"
	"io"
)

// FileStore defines the interface for fetching uploaded spreadsheet files.
// Uploads themselves happen outside this service; the import pipeline only
// reads what the upload surface already stored.
type FileStore interface {
	// Fetch returns a byte stream for the file behind fileURL
	Fetch(ctx context.Context, fileURL string) (io.ReadCloser, error)

	// Exists checks whether the file behind fileURL is reachable
	Exists(ctx context.Context, fileURL string) (bool, error)

	// Delete removes the stored file, used when a job is deleted
	Delete(ctx context.Context, fileURL string) error
}
