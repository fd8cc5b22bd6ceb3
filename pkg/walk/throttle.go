package walk

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle rate-limits directory reads so a scan does not saturate a shared
// or network-backed filesystem. Adapted from gdu's pkg/analyze IOThrottle:
// same token-bucket-plus-fixed-delay design, wired here in front of the
// walker's os.ReadDir calls instead of a per-directory cache lookup.
type Throttle struct {
	maxIOPS int
	delay   time.Duration
	limiter *rate.Limiter
	mu      sync.Mutex
}

// NewThrottle returns nil (no throttling) if both maxIOPS and delay are
// non-positive; callers must treat a nil *Throttle as "unthrottled" and may
// call Acquire on it unconditionally.
func NewThrottle(maxIOPS int, delay time.Duration) *Throttle {
	if maxIOPS <= 0 && delay <= 0 {
		return nil
	}
	t := &Throttle{maxIOPS: maxIOPS, delay: delay}
	if maxIOPS > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(maxIOPS), maxIOPS)
	}
	return t
}

// Acquire blocks until the next directory read is permitted, or ctx is
// cancelled.
func (t *Throttle) Acquire(ctx context.Context) error {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	limiter := t.limiter
	t.mu.Unlock()

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if t.delay > 0 {
		timer := time.NewTimer(t.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}
