// Package job provides ready-made work functions for runq jobs.
package job

import (
	"context"
	"sync/atomic"
	"time"
)

// SleepWork returns a runnable that sleeps for ms milliseconds in total. When
// its context is cancelled it remembers how much is left, so the next call
// resumes where the previous one stopped.
func SleepWork(ms int64) func(context.Context) error {
	remaining := time.Duration(ms) * time.Millisecond
	return func(ctx context.Context) error {
		start := time.Now()
		select {
		case <-ctx.Done():
			remaining -= time.Since(start)
			if remaining < 0 {
				remaining = 0
			}
			return ctx.Err()
		case <-time.After(remaining):
			// If the time is up, we just return nil.
			remaining = 0
			return nil
		}
	}
}

// BlockingWork returns a runnable that blocks until its context is cancelled
// for the first `slices` calls and returns nil afterwards. Calls counts every
// invocation; it may be nil.
func BlockingWork(slices int64, calls *atomic.Int64) func(context.Context) error {
	if calls == nil {
		calls = new(atomic.Int64)
	}
	return func(ctx context.Context) error {
		n := calls.Add(1)
		if n > slices {
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	}
}
