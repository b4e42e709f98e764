package sched

import (
	"fmt"
	"sync/atomic"
)

// DefaultPriority is the level a new task starts at: one below the highest.
const DefaultPriority = 1

// Task wraps an opaque payload with a priority level in [0, levels).
// 0 is the highest priority.
//
// Tasks are shared by pointer between the scheduler and whatever else in the
// runtime needs them (wait lists, bookkeeping maps, ...). The priority is kept
// in an atomic so it can be changed without holding the lock that guards the
// scheduler's queues.
type Task[T any] struct {
	payload  T
	levels   int
	priority atomic.Int64
}

// NewTask creates a task for a scheduler with the given number of priority
// levels. It panics if levels is not positive.
func NewTask[T any](levels int, payload T) *Task[T] {
	mustValidLevels(levels)

	t := &Task[T]{
		payload: payload,
		levels:  levels,
	}

	// with a single level, the only valid priority is 0
	prio := DefaultPriority
	if prio >= levels {
		prio = levels - 1
	}
	t.priority.Store(int64(prio))
	return t
}

// Payload returns the wrapped value.
func (t *Task[T]) Payload() T { return t.payload }

// Levels returns the number of priority levels the task was built for.
func (t *Task[T]) Levels() int { return t.levels }

// Priority returns the current priority level.
func (t *Task[T]) Priority() int {
	return int(t.priority.Load())
}

// SetPriority stores level if 0 <= level < Levels() and reports whether it
// did. Out-of-range values leave the task untouched.
func (t *Task[T]) SetPriority(level int) bool {
	if level < 0 || level >= t.levels {
		return false
	}
	t.priority.Store(int64(level))
	return true
}

func mustValidLevels(levels int) {
	if levels <= 0 {
		panic(fmt.Sprintf("sched: priority level count must be positive, got %d", levels))
	}
}
