package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay_Doubles(t *testing.T) {
	b := Backoff{Base: time.Second}

	assert.Equal(t, time.Second, b.Delay(0))
	assert.Equal(t, 2*time.Second, b.Delay(1))
	assert.Equal(t, 4*time.Second, b.Delay(2))
}

func TestBackoffDelay_Capped(t *testing.T) {
	b := Backoff{Base: time.Second, Max: 3 * time.Second}

	assert.Equal(t, 2*time.Second, b.Delay(1))
	assert.Equal(t, 3*time.Second, b.Delay(2))
	assert.Equal(t, 3*time.Second, b.Delay(30))
}

func TestBackoffDelay_Jitter(t *testing.T) {
	b := Backoff{
		Base:      time.Second,
		MaxJitter: time.Second,
		Jitter:    func(n time.Duration) time.Duration { return n / 4 },
	}
	assert.Equal(t, 2*time.Second+250*time.Millisecond, b.Delay(1))

	b.Jitter = nil
	for i := 0; i < 50; i++ {
		d := b.Delay(0)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 2*time.Second)
	}
}

func TestSleepCtx_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleepCtx(ctx, time.Minute)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
