// Package sched holds the scheduling core: tasks tagged with a priority level
// and the engines that decide which of them runs next.
//
// Engines do no locking of their own. The runtime embedding them must
// serialize every call into a given engine instance.
package sched

// Engine is the contract between a scheduling algorithm and the runtime that
// drives it.
//
//   - Init once, before anything else
//   - AddTask when a task becomes ready
//   - RemoveTask when a ready task is retracted (blocked, killed)
//   - PickNextTask when the runtime needs something to run
//   - PutPrevTask when the running task re-enters the ready state
//   - TaskTick once per tick for the running task
//   - SetPriority when someone changes a task's priority
//   - HighestPriority to check for a waiting preemptor
type Engine[T any] interface {
	Init()
	AddTask(task *Task[T])
	RemoveTask(task *Task[T]) (*Task[T], bool)
	PickNextTask() (*Task[T], bool)
	PutPrevTask(prev *Task[T], preempt bool)
	TaskTick(current *Task[T]) bool
	SetPriority(task *Task[T], level int) bool
	HighestPriority() int
}
