package sched

import (
	"fmt"

	"github.com/emirpasic/gods/lists/doublylinkedlist"
)

// Ensure StaticPriority implements [Engine].
var _ Engine[any] = (*StaticPriority[any])(nil)

// StaticPriority is a fixed-priority scheduler with one FIFO queue per level.
// Tasks at the same level run round-robin; the scheduler never adjusts a
// task's priority by itself.
//
// SetPriority does not move a task that is already queued. It stays in the
// queue it was inserted into until picked, while TaskTick and PutPrevTask
// read the live value.
type StaticPriority[T any] struct {
	levels      int
	readyQueues []*doublylinkedlist.List // index = level, values are *Task[T]
	size        int
}

// NewStaticPriority creates an empty scheduler with the given number of
// levels. Init must be called before use. It panics if levels is not positive.
func NewStaticPriority[T any](levels int) *StaticPriority[T] {
	mustValidLevels(levels)
	return &StaticPriority[T]{levels: levels}
}

// Name returns the name of the scheduling algorithm.
func (s *StaticPriority[T]) Name() string { return "Static Priority" }

// Levels returns the number of priority levels, which is also the sentinel
// returned by HighestPriority when nothing is ready.
func (s *StaticPriority[T]) Levels() int { return s.levels }

// Len returns the number of ready tasks across all levels.
func (s *StaticPriority[T]) Len() int { return s.size }

// NewTask creates a task with this scheduler's level count.
func (s *StaticPriority[T]) NewTask(payload T) *Task[T] {
	return NewTask(s.levels, payload)
}

// Init allocates the ready queues. Call it exactly once.
func (s *StaticPriority[T]) Init() {
	s.readyQueues = make([]*doublylinkedlist.List, s.levels)
	for i := range s.readyQueues {
		s.readyQueues[i] = doublylinkedlist.New()
	}
}

// AddTask appends task to the back of the queue for its current priority.
func (s *StaticPriority[T]) AddTask(task *Task[T]) {
	s.PutPrevTask(task, false)
}

// RemoveTask removes the first queued occurrence of task, compared by
// identity, scanning from the highest priority level down. The order of the
// remaining tasks is preserved.
//
// Callers must ensure a task is queued at most once.
func (s *StaticPriority[T]) RemoveTask(task *Task[T]) (*Task[T], bool) {
	for _, q := range s.readyQueues {
		if idx := q.IndexOf(task); idx >= 0 {
			q.Remove(idx)
			s.size--
			return task, true
		}
	}
	return nil, false
}

// PickNextTask pops the oldest task of the highest non-empty level.
func (s *StaticPriority[T]) PickNextTask() (*Task[T], bool) {
	for _, q := range s.readyQueues {
		if q.Empty() {
			continue
		}
		v, _ := q.Get(0)
		q.Remove(0)
		s.size--
		return v.(*Task[T]), true
	}
	return nil, false
}

// PutPrevTask requeues a task that was running. A preempted task goes to the
// front of its level so it resumes before the tasks that were already
// waiting; a task that yielded or used up its slice goes to the back.
//
// prev must have been built with the scheduler's level count; it panics
// otherwise.
func (s *StaticPriority[T]) PutPrevTask(prev *Task[T], preempt bool) {
	if prev.Levels() != s.levels {
		panic(fmt.Sprintf("sched: task has %d priority levels, scheduler has %d", prev.Levels(), s.levels))
	}
	q := s.readyQueues[prev.Priority()]
	if preempt {
		q.Prepend(prev)
	} else {
		q.Append(prev)
	}
	s.size++
}

// TaskTick reports whether a task of strictly higher priority than current
// is ready, meaning current should be preempted now.
func (s *StaticPriority[T]) TaskTick(current *Task[T]) bool {
	return s.HighestPriority() < current.Priority()
}

// SetPriority changes the task's priority level. See [Task.SetPriority].
func (s *StaticPriority[T]) SetPriority(task *Task[T], level int) bool {
	return task.SetPriority(level)
}

// HighestPriority returns the lowest index of a non-empty queue, or Levels()
// if no task is ready.
func (s *StaticPriority[T]) HighestPriority() int {
	for prio, q := range s.readyQueues {
		if !q.Empty() {
			return prio
		}
	}
	return s.levels
}
