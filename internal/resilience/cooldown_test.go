package resilience

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCooldown_ArmsExactlyOnce(t *testing.T) {
	cd := NewCooldown(20 * time.Millisecond)

	var armCount atomic.Int64
	cd.OnArm = func() { armCount.Add(1) }

	const callers = 8
	var armers atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			armed, err := cd.Wait(context.Background())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if armed {
				armers.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := armers.Load(); got != 1 {
		t.Errorf("expected exactly 1 armer, got %d", got)
	}
	if got := armCount.Load(); got != 1 {
		t.Errorf("expected OnArm invoked exactly once, got %d", got)
	}
}

func TestCooldown_LateArrivalReturnsImmediately(t *testing.T) {
	cd := NewCooldown(5 * time.Millisecond)

	if _, err := cd.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Now()
	armed, err := cd.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if armed {
		t.Error("late arrival must not re-arm the window")
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("late arrival should return immediately, waited %v", elapsed)
	}
}

func TestCooldown_ContextCancellation(t *testing.T) {
	cd := NewCooldown(10 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := cd.Wait(ctx)
	if err == nil {
		t.Fatal("expected context error")
	}
	if !cd.Armed() {
		t.Error("window should remain armed after a caller bails out")
	}
}
