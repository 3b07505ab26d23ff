package scraper

import (
	"context"
	"math/rand"
	"time"
)

// pacer spaces UI steps and randomises the gap between probes so the
// session does not present a uniform automation rhythm.
type pacer struct {
	step   time.Duration
	jitter time.Duration
	rand   func() float64
}

func newPacer(step, jitter time.Duration) pacer {
	return pacer{step: step, jitter: jitter, rand: rand.Float64}
}

// Step waits the fixed delay between UI operations.
func (p pacer) Step(ctx context.Context) error {
	return sleepCtx(ctx, p.step)
}

// Jitter waits a random delay in [0, jitter).
func (p pacer) Jitter(ctx context.Context) error {
	if p.jitter <= 0 {
		return ctx.Err()
	}
	return sleepCtx(ctx, time.Duration(p.rand()*float64(p.jitter)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
