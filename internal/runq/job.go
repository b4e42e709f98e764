package runq

import "context"

// JobID uniquely identifies a job in the runner.
type JobID uint64

// Job is the payload the runner schedules.
//
// Run may be called several times: whenever the job is preempted or its
// slice expires, its context is cancelled (see [context.Cause] for why) and
// it is expected to return promptly and resume on the next call. Returning
// nil finishes the job; returning an error while the context is still live
// fails it.
type Job struct {
	ID  JobID
	Run func(ctx context.Context) error // work function (any kind, e.g. HTTP handler, DB txn stub, etc.)
}

// NewJob creates a job with the given work function.
func NewJob(id JobID, work func(ctx context.Context) error) *Job {
	return &Job{ID: id, Run: work}
}
