package infra

import (
	"context"
	"time"
)

// Backoff is a capped exponential retry delay.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff waits 1s, 2s, 4s ... between dials, never more than a minute.
var DefaultBackoff = Backoff{Base: time.Second, Max: time.Minute}

// Delay returns the wait before retry number attempt, counting from 0.
// Negative attempts get Base.
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Max <= 0 {
		b.Max = DefaultBackoff.Max
	}
	d := b.Base
	for i := 0; i < attempt && d < b.Max; i++ {
		d *= 2
	}
	if d > b.Max {
		return b.Max
	}
	return d
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
