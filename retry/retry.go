// Package retry provides a small bounded-attempts helper for transient
// upstream failures. It keeps no state across calls.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Do runs op up to maxAttempts times. A failure is retried only when
// retryable reports it as transient; any other error is returned
// immediately without consuming further attempts. The pause between
// attempts is baseDelay plus light jitter, and is cut short if ctx ends.
func Do(ctx context.Context, maxAttempts int, baseDelay time.Duration, retryable func(error) bool, op func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt == maxAttempts {
			return err
		}

		delay := baseDelay
		if baseDelay > 0 {
			delay += time.Duration(rand.Int63n(int64(baseDelay)/2 + 1))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
