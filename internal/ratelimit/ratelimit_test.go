package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWait_SharedBucketPerProvider(t *testing.T) {
	r := NewRegistry(1000, 1)
	if r.limiter("gmail") != r.limiter("gmail") {
		t.Error("same provider should share one limiter")
	}
	if r.limiter("gmail") == r.limiter("outlook") {
		t.Error("different providers should get separate limiters")
	}
}

func TestWait_AllowsWithinBurst(t *testing.T) {
	r := NewRegistry(1, 3)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := r.Wait(ctx, "gmail"); err != nil {
			t.Fatalf("Wait(%d) error: %v", i, err)
		}
	}
}

func TestWait_CancelledContext(t *testing.T) {
	r := NewRegistry(0.001, 1)
	ctx, cancel := context.WithCancel(context.Background())

	// Drain the burst, then cancel while the next Wait would block.
	if err := r.Wait(ctx, "gmail"); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	cancel()
	if err := r.Wait(ctx, "gmail"); err == nil {
		t.Error("Wait() after cancel should return an error")
	}
}

func TestNewRegistry_Defaults(t *testing.T) {
	r := NewRegistry(0, 0)
	if r.rps != 5 {
		t.Errorf("rps = %v, want default 5", r.rps)
	}
	if r.burst != 1 {
		t.Errorf("burst = %d, want default 1", r.burst)
	}
}
