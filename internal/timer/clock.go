package timer

import (
	"context"
	"sync"
	"time"

	"pacetracker/internal/observable"
)

// DefaultTick is how often a running Clock republishes elapsed time
const DefaultTick = time.Second

// Clock is the workout's elapsed-time clock. While running it republishes the
// elapsed duration every tick; Stop and Reset publish immediately.
type Clock struct {
	mu      sync.Mutex
	sw      Stopwatch
	tick    time.Duration
	now     func() time.Time
	elapsed *observable.Value[time.Duration]
	cancel  context.CancelFunc
}

// NewClock creates a stopped clock. A non-positive tick uses DefaultTick.
func NewClock(tick time.Duration) *Clock {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Clock{
		tick:    tick,
		now:     time.Now,
		elapsed: observable.NewValue(time.Duration(0)),
	}
}

// Elapsed is the published elapsed time
func (c *Clock) Elapsed() *observable.Value[time.Duration] {
	return c.elapsed
}

// Start begins timing. Starting a running clock is a no-op.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sw.Running() {
		return
	}
	now := c.now()
	c.sw.Start(now)
	c.elapsed.Set(c.sw.Elapsed(now))

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.loop(ctx)
}

// Stop pauses timing and keeps the total
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Reset stops the clock and zeroes the total
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.sw.Reset()
	c.elapsed.Set(0)
}

// Close stops the ticking goroutine
func (c *Clock) Close() {
	c.Stop()
}

func (c *Clock) stopLocked() {
	c.elapsed.Set(c.sw.Stop(c.now()))
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Clock) loop(ctx context.Context) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			// A stale loop may fire once after Stop; only publish while running.
			if ctx.Err() == nil && c.sw.Running() {
				c.elapsed.Set(c.sw.Elapsed(c.now()))
			}
			c.mu.Unlock()
		}
	}
}
