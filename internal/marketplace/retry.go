// Package marketplace is the HTTP client for the campus marketplace API. It
// provides a [Client] whose methods map one-to-one onto API endpoints, the
// wire types shared with the dev server, conversion to [model] types, and a
// 3-attempt exponential-backoff [Retry] helper used for the startup ping.
package marketplace

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/campusmarket/campusmarket/internal/model"
)

const (
	defaultMaxAttempts = 3

	baseDelay = 500 * time.Millisecond
	maxDelay  = 5 * time.Second
)

// Retry calls fn up to maxAttempts times with exponential backoff and
// jitter. Application errors end the loop at once: the server has already
// answered and asking again will not change its mind.
func Retry(ctx context.Context, maxAttempts int, fn func() error) error {
	var lastErr error
	for attempt := range maxAttempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if model.IsKind(lastErr, model.KindApplication) {
			return lastErr
		}

		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(backoffDelay(attempt)):
			}
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", maxAttempts, lastErr)
}

// backoffDelay is uniform in [d/2, d) where d doubles per attempt up to
// maxDelay.
func backoffDelay(attempt int) time.Duration {
	delay := min(baseDelay*(1<<attempt), maxDelay)
	jitter := time.Duration(rand.Int63n(int64(delay) / 2)) //nolint:gosec // jitter does not need crypto/rand
	return delay/2 + jitter
}
