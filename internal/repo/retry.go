// SPDX-License-Identifier: MPL-2.0

package repo

import (
	"context"
	"fmt"
	"time"
)

// Backoff is an exponential retry schedule: attempt n waits Base<<(n-1)
// before running. The first attempt runs at once.
type Backoff struct {
	Attempts int
	Base     time.Duration
}

// Delay returns the wait before attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return b.Base << (attempt - 1)
}

// Retry runs op until it succeeds, returns a permanent error (retry false),
// or the schedule runs out, in which case the last error is returned.
// Cancelling ctx ends a pending wait immediately.
func (b Backoff) Retry(ctx context.Context, op func(attempt int) (retry bool, err error)) error {
	var lastErr error
	for attempt := range max(b.Attempts, 1) {
		if attempt > 0 {
			if err := sleep(ctx, b.Delay(attempt)); err != nil {
				return fmt.Errorf("retry aborted after %d attempt(s), last error %v: %w", attempt, lastErr, err)
			}
		}

		retry, err := op(attempt)
		if err == nil || !retry {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
