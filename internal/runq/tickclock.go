// internal/runq/tickclock.go

package runq

import (
	"sync"
	"sync/atomic"
	"time"
)

// TickClock emits ticks and counts them atomically.
// It is either driven by a ticker (Start) or by hand (Tick).
type TickClock struct {
	Ch       chan struct{}
	count    atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

// NewTickClock creates a clock but does not start it.
func NewTickClock(buffer int) *TickClock {
	return &TickClock{
		Ch:   make(chan struct{}, buffer),
		stop: make(chan struct{}),
	}
}

// Start begins emitting ticks at the given interval.
func (c *TickClock) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Tick()
			case <-c.stop:
				return
			}
		}
	}()
}

// Tick emits a single tick. Once the clock is stopped it is a no-op.
func (c *TickClock) Tick() {
	select {
	case <-c.stop:
		return
	default:
	}

	c.count.Add(1)
	select {
	case c.Ch <- struct{}{}:
	case <-c.stop:
	}
}

// Stop signals the clock to stop emitting ticks. It is safe to call more
// than once.
func (c *TickClock) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Count returns the current tick count atomically.
func (c *TickClock) Count() int64 {
	return c.count.Load()
}
