package driver

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrWaitTimeout is returned when a polled condition never became true.
var ErrWaitTimeout = errors.New("wait timed out")

const (
	defaultWaitTimeout  = 10 * time.Second
	defaultPollInterval = 250 * time.Millisecond
	minPollInterval     = 10 * time.Millisecond
)

// Wait bounds a Poll call. Zero fields use the defaults.
type Wait struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Condition reports whether the awaited UI state has been reached. A non-nil
// error stops polling immediately.
type Condition func(ctx context.Context) (bool, error)

func (w Wait) normalize() (Wait, error) {
	if w.Timeout < 0 {
		return w, fmt.Errorf("negative wait timeout: %v", w.Timeout)
	}
	if w.Interval < 0 {
		return w, fmt.Errorf("negative poll interval: %v", w.Interval)
	}
	if w.Timeout == 0 {
		w.Timeout = defaultWaitTimeout
	}
	if w.Interval == 0 {
		w.Interval = defaultPollInterval
	}
	if w.Interval < minPollInterval {
		w.Interval = minPollInterval
	}
	return w, nil
}

// Poll evaluates cond until it succeeds, fails, or the wait expires. The
// condition is always evaluated at least once, so content that is already
// rendered never waits.
func Poll(ctx context.Context, w Wait, cond Condition) error {
	w, err := w.normalize()
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		ok, err := cond(waitCtx)
		if err != nil {
			if waitCtx.Err() != nil && ctx.Err() == nil {
				return fmt.Errorf("%w after %v: %v", ErrWaitTimeout, w.Timeout, err)
			}
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-waitCtx.Done():
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w after %v", ErrWaitTimeout, w.Timeout)
		case <-ticker.C:
		}
	}
}
