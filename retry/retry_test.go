package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clauselens/clauselens/retry"
)

var errTransient = errors.New("upstream hiccup")

func alwaysRetryable(error) bool { return true }

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := retry.Do(context.Background(), 3, time.Millisecond, alwaysRetryable, func() error {
		attempts++
		if attempts < 3 {
			return errTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad request")
	attempts := 0
	err := retry.Do(context.Background(), 5, time.Millisecond, func(err error) bool {
		return !errors.Is(err, permanent)
	}, func() error {
		attempts++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("err = %v, want the permanent error", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (permanent errors are not retried)", attempts)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := retry.Do(context.Background(), 3, time.Millisecond, alwaysRetryable, func() error {
		attempts++
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("err = %v, want the transient error after exhaustion", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDoHonorsContextBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := retry.Do(ctx, 3, 10*time.Millisecond, alwaysRetryable, func() error {
		attempts++
		return errTransient
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry after cancellation)", attempts)
	}
}
