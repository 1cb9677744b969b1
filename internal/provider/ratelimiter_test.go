package provider

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterBurstWithinCapacity(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if time.Since(start) > 10*time.Millisecond {
		t.Fatal("waits within capacity must not block")
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	limiter := NewRateLimiter(1, 5*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	time.Sleep(12 * time.Millisecond)
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("expected refilled token: %v", err)
	}
}

func TestRateLimiterStopsOnContextCancel(t *testing.T) {
	limiter := NewRateLimiter(1, time.Second)
	_ = limiter.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("expected context error while exhausted")
	}
	if time.Since(start) > 200*time.Millisecond {
		t.Fatal("wait must return promptly after cancellation")
	}
}
