package service

import (
	"context"
	"time"
)

// withRetry runs fn up to attempts times, sleeping a growing backoff between
// tries. Context cancellation stops retrying immediately.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - attempts: maximum number of tries; values < 1 mean a single try.
//   - fn: operation to run.
// Returns:
//   - error: nil on the first success, otherwise the last failure.
func withRetry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 100 * time.Millisecond):
		}
	}
	return err
}
