package replay

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetryGivesUp(t *testing.T) {
	sentinel := errors.New("sink down")
	calls := 0
	err := withRetry(context.Background(), 2, time.Nanosecond, func(context.Context) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryStopsOnContextError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 5, time.Nanosecond, func(context.Context) error {
		calls++
		return context.Canceled
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("expected one canceled call, got %d calls err=%v", calls, err)
	}
}

func TestWithRetryCanceledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := withRetry(ctx, 5, time.Hour, func(context.Context) error {
		cancel()
		return errors.New("flaky")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}
