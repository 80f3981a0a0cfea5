package resilience

import (
	"context"
	"sync"
	"time"
)

// Cooldown is a one-shot, shared rate-limit wait. The first caller to Wait
// arms the cooldown window; every caller that arrives while the window is
// open blocks on the same window instead of starting its own. Once the
// window has elapsed, Wait returns immediately for the rest of the run.
//
// One Cooldown is allocated per orchestration run, so a run pays the
// cooldown penalty at most once no matter how many workers observed the
// rate limit concurrently.
type Cooldown struct {
	mu       sync.Mutex
	duration time.Duration
	done     chan struct{}
	armedAt  time.Time

	// OnArm, if set, is invoked exactly once when the window is armed.
	OnArm func()
}

// NewCooldown creates a cooldown gate for the given window duration.
func NewCooldown(d time.Duration) *Cooldown {
	return &Cooldown{duration: d}
}

// Armed reports whether the window has been started.
func (c *Cooldown) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done != nil
}

// Wait blocks until the shared cooldown window has elapsed. It returns true
// if this caller was the one that armed the window. Context cancellation
// unblocks the caller without disturbing the shared window.
func (c *Cooldown) Wait(ctx context.Context) (armed bool, err error) {
	c.mu.Lock()
	if c.done == nil {
		armed = true
		c.armedAt = time.Now()
		done := make(chan struct{})
		c.done = done
		time.AfterFunc(c.duration, func() { close(done) })
		if c.OnArm != nil {
			c.OnArm()
		}
	}
	done := c.done
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return armed, ctx.Err()
	case <-done:
		return armed, nil
	}
}
