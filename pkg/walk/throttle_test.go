package walk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewThrottleNilWhenUnconfigured(t *testing.T) {
	assert.Nil(t, NewThrottle(0, 0))
}

func TestThrottleNilAcquireIsNoop(t *testing.T) {
	var th *Throttle
	assert.NoError(t, th.Acquire(context.Background()))
}

func TestThrottleFixedDelay(t *testing.T) {
	th := NewThrottle(0, 20*time.Millisecond)
	start := time.Now()
	assert.NoError(t, th.Acquire(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestThrottleRespectsCancellation(t *testing.T) {
	th := NewThrottle(0, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := th.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestThrottleIOPSLimiting(t *testing.T) {
	th := NewThrottle(1000, 0)
	assert.NoError(t, th.Acquire(context.Background()))
}
