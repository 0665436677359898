package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestIntervalFirstCallDoesNotWait(t *testing.T) {
	iv := NewInterval(time.Hour)

	start := time.Now()
	if err := iv.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("Expected first call to proceed immediately")
	}
}

func TestIntervalSpacing(t *testing.T) {
	iv := NewInterval(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := iv.Wait(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Expected at least 100ms for three paced calls, got %v", elapsed)
	}
}

func TestIntervalRemainingWithFakeClock(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	iv := NewInterval(time.Second)
	iv.now = func() time.Time { return now }

	if err := iv.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(400 * time.Millisecond)
	if got := iv.remaining(); got != 600*time.Millisecond {
		t.Errorf("Expected 600ms remaining, got %v", got)
	}

	now = now.Add(700 * time.Millisecond)
	if got := iv.remaining(); got > 0 {
		t.Errorf("Expected no wait after 1.1s, got %v", got)
	}
}

func TestIntervalWaitCancelled(t *testing.T) {
	iv := NewInterval(time.Hour)
	if err := iv.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := iv.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestIntervalZeroNeverWaits(t *testing.T) {
	iv := NewInterval(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := iv.Wait(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("Expected zero interval to never wait")
	}
}
