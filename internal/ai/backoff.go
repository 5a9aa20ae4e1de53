package ai

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff computes retry delays as base*2^attempt (capped at Max) plus uniform jitter in [0, MaxJitter).
type Backoff struct {
	Base      time.Duration
	Max       time.Duration
	MaxJitter time.Duration
	// Jitter returns a value in [0, n). Defaults to a uniform random source.
	Jitter func(n time.Duration) time.Duration
}

// Delay returns how long to wait after the zero-based attempt failed.
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			d = b.Max
			break
		}
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}

	if b.MaxJitter > 0 {
		jitter := b.Jitter
		if jitter == nil {
			jitter = uniformJitter
		}
		d += jitter(b.MaxJitter)
	}
	return d
}

func uniformJitter(n time.Duration) time.Duration {
	return rand.N(n)
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
