package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter paces calls to a remote service
type Limiter interface {
	// Wait blocks until a call may proceed or ctx is done
	Wait(ctx context.Context) error
}

// Interval spaces successive calls at least every apart. The first call
// never waits.
type Interval struct {
	every time.Duration
	last  time.Time
	mu    sync.Mutex

	// now is replaceable in tests
	now func() time.Time
}

// NewInterval creates a pacer with the given spacing. Zero or negative
// spacing never waits.
func NewInterval(every time.Duration) *Interval {
	return &Interval{every: every, now: time.Now}
}

// Wait sleeps until the spacing has elapsed since the previous call
func (iv *Interval) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		iv.mu.Lock()
		d := iv.remaining()
		if d <= 0 {
			iv.last = iv.now()
			iv.mu.Unlock()
			return nil
		}
		iv.mu.Unlock()

		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// remaining must be called with mu held
func (iv *Interval) remaining() time.Duration {
	if iv.every <= 0 || iv.last.IsZero() {
		return 0
	}
	return iv.every - iv.now().Sub(iv.last)
}
