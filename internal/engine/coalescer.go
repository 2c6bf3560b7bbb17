package engine

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultRenderInterval is the minimum spacing between two renders.
const DefaultRenderInterval = 200 * time.Millisecond

// Coalescer collapses bursts of change notifications into at most one
// render per interval. Notify only raises a flag; Run calls render on the
// trailing tick when the flag is set.
type Coalescer struct {
	interval time.Duration
	render   func()
	dirty    atomic.Bool
}

// NewCoalescer creates a coalescer. A non-positive interval falls back to
// DefaultRenderInterval.
func NewCoalescer(interval time.Duration, render func()) *Coalescer {
	if interval <= 0 {
		interval = DefaultRenderInterval
	}
	return &Coalescer{interval: interval, render: render}
}

// Notify marks the view dirty. Safe to call from any goroutine.
func (c *Coalescer) Notify() {
	c.dirty.Store(true)
}

// Flush renders immediately if a change is pending.
func (c *Coalescer) Flush() {
	if c.dirty.Swap(false) {
		c.render()
	}
}

// Run ticks until ctx is done, then flushes once more.
func (c *Coalescer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Flush()
			return
		case <-ticker.C:
			c.Flush()
		}
	}
}
