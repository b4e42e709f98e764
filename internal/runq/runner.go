// internal/runq/runner.go

package runq

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/emirpasic/gods/queues/linkedlistqueue"

	"sprunq/internal/sched"
)

var (
	ErrDuplicateTask   = errors.New("runq: job already exists")
	ErrUnknownTask     = errors.New("runq: no such job")
	ErrNotReady        = errors.New("runq: job is not ready")
	ErrInvalidPriority = errors.New("runq: priority out of range")
	ErrClosed          = errors.New("runq: runner is closed")

	// Causes attached to a job's context when the runner takes the CPU away.
	ErrPreempted    = errors.New("runq: preempted by a higher priority job")
	ErrSliceExpired = errors.New("runq: time slice expired")
)

// Runner drives a static priority scheduler from a tick clock and streams
// state changes.
type Runner struct {
	// Scheduler-related
	mu         sync.Mutex         // serializes every call into engine
	engine     sched.Engine[*Job] // ready queues
	levels     int                // number of priority levels
	sliceTicks int64              // ticks a job may run before it yields to a peer
	interval   time.Duration      // tick interval when the runner owns the clock
	ownClock   bool               // whether Run starts the clock
	clock      *TickClock         // clock for generating ticks
	wake       chan struct{}      // nudges an idle loop when a job is added

	// job bookkeeping
	jobsMu    sync.RWMutex                // protects tasks and ranTotals
	tasks     map[JobID]*sched.Task[*Job] // every job that is ready or running
	ranTotals map[JobID]int64             // cumulative ticks per job

	// event-related
	eventsMu sync.Mutex             // protects events and closed
	events   *linkedlistqueue.Queue // pending StatusEvent values, unbounded
	closed   bool                   // set once the dispatch loop is gone
	notify   chan struct{}          // signals Run that events or closed changed
	observer func(StatusEvent)
	logger   *slog.Logger

	csvFile   *os.File
	csvWriter *csv.Writer
}

// New creates a new Runner instance with the given configuration.
func New(cfg Config, opts ...Option) *Runner {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}

	r := &Runner{
		levels:     cfg.Levels,
		sliceTicks: int64(cfg.SliceTicks),
		interval:   time.Duration(cfg.TickMS) * time.Millisecond,
		clock:      o.Clock,
		wake:       make(chan struct{}, 1),
		tasks:      make(map[JobID]*sched.Task[*Job]),
		ranTotals:  make(map[JobID]int64),
		events:     linkedlistqueue.New(),
		notify:     make(chan struct{}, 1),
		observer:   o.Observer,
		logger:     o.Logger,
	}
	if r.clock == nil {
		r.clock = NewTickClock(256) // buffer size for tick events
		r.ownClock = true
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	engine := sched.NewStaticPriority[*Job](cfg.Levels)
	engine.Init()
	r.engine = engine

	r.logger.Debug("runner created",
		"scheduler", engine.Name(),
		"levels", cfg.Levels,
		"slice_ticks", cfg.SliceTicks,
		"tick", r.interval)
	return r
}

// EnableCSVLogging opens the given file path for CSV logging of events.
// Must be called before Run().
func (r *Runner) EnableCSVLogging(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv log: %w", err)
	}
	w := csv.NewWriter(f)

	// write header
	if err := w.Write([]string{"timestamp", "tick", "event", "job_id", "priority", "ran_ticks", "total_ticks"}); err != nil {
		f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	w.Flush()
	r.csvFile = f
	r.csvWriter = w
	return nil
}

// Run starts the dispatch loop and consumes its events until ctx is done.
// It must be called at most once.
func (r *Runner) Run(ctx context.Context) error {
	if r.ownClock {
		r.clock.Start(r.interval)
	}

	// start loop
	go r.loop(ctx)

	// consume events, including those emitted before Run was called
	for {
		ev, ok, closed := r.nextEvent()
		if ok {
			r.handleEvent(ev)
			continue
		}
		if closed {
			break
		}
		<-r.notify
	}

	if r.csvFile != nil {
		r.csvWriter.Flush()
		if err := r.csvWriter.Error(); err != nil {
			r.csvFile.Close()
			return fmt.Errorf("flush csv log: %w", err)
		}
		return r.csvFile.Close()
	}

	return nil
}

// Add makes job ready at the given priority level and emits a StatusEnqueue
// event.
func (r *Runner) Add(job *Job, priority int) error {
	task := sched.NewTask(r.levels, job)
	if !task.SetPriority(priority) {
		return fmt.Errorf("job %d priority %d: %w", job.ID, priority, ErrInvalidPriority)
	}

	r.jobsMu.Lock()
	if _, dup := r.tasks[job.ID]; dup {
		r.jobsMu.Unlock()
		return fmt.Errorf("job %d: %w", job.ID, ErrDuplicateTask)
	}
	r.tasks[job.ID] = task
	r.ranTotals[job.ID] = 0
	r.jobsMu.Unlock()

	r.eventsMu.Lock()
	closed := r.closed
	r.eventsMu.Unlock()
	if closed {
		r.forget(job.ID)
		return ErrClosed
	}

	r.mu.Lock()
	r.engine.AddTask(task)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}

	r.emit(StatusEvent{Kind: StatusEnqueue, JobID: job.ID, Priority: priority})
	return nil
}

// Remove takes a ready job out of the scheduler for good. A job that is
// currently running cannot be removed and yields ErrNotReady.
func (r *Runner) Remove(id JobID) error {
	task, ok := r.lookup(id)
	if !ok {
		return fmt.Errorf("job %d: %w", id, ErrUnknownTask)
	}

	r.mu.Lock()
	_, removed := r.engine.RemoveTask(task)
	r.mu.Unlock()
	if !removed {
		return fmt.Errorf("job %d: %w", id, ErrNotReady)
	}

	total := r.forget(id)
	r.emit(StatusEvent{Kind: StatusRemove, JobID: id, Priority: task.Priority(), TotalTicks: total})
	return nil
}

// AdjustPriority changes an existing job's priority on the fly.
//
// It does not take the scheduler lock, so it is safe to call from anywhere,
// including while the job runs. A job that is already queued keeps its queue
// position until it is picked; the new level applies from its next requeue,
// while preemption checks see it at once.
func (r *Runner) AdjustPriority(id JobID, level int) error {
	task, ok := r.lookup(id)
	if !ok {
		return fmt.Errorf("job %d: %w", id, ErrUnknownTask)
	}
	if !task.SetPriority(level) {
		return fmt.Errorf("job %d priority %d: %w", id, level, ErrInvalidPriority)
	}

	r.emit(StatusEvent{Kind: StatusPriorityUpdate, JobID: id, Priority: level})
	return nil
}

// HighestPriority returns the highest level holding a ready job, or the
// number of levels if none is ready.
func (r *Runner) HighestPriority() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.HighestPriority()
}

// loop runs the main dispatch loop, which is responsible for selecting the next job
func (r *Runner) loop(ctx context.Context) {
	defer func() {
		// stop the underlying clock to release its goroutine
		r.clock.Stop()

		r.eventsMu.Lock()
		r.closed = true
		r.eventsMu.Unlock()
		r.signal()
	}()

	idle := false
	for {
		// 1) check shutdown
		if ctx.Err() != nil {
			return
		}

		// 2) idle case: nothing ready, wait for a tick or a new job
		r.mu.Lock()
		task, ok := r.engine.PickNextTask()
		r.mu.Unlock()
		if !ok {
			if !idle {
				idle = true
				r.emit(StatusEvent{Kind: StatusIdle})
			}
			select {
			case <-ctx.Done():
			case <-r.wake:
			case <-r.clock.Ch:
				r.emit(StatusEvent{Kind: StatusTick})
			}
			continue
		}
		idle = false

		// 3) dispatch the picked job
		job := task.Payload()
		r.emit(StatusEvent{Kind: StatusDispatch, JobID: job.ID, Priority: task.Priority()})

		// 4) run until it returns, is preempted, or its slice expires
		ranTicks, cause, err := r.runSlice(ctx, task)

		// 5) requeue or finish
		total := r.account(job.ID, ranTicks)
		ev := StatusEvent{JobID: job.ID, RanTicks: ranTicks, TotalTicks: total}
		switch {
		case err == nil:
			ev.Kind = StatusFinish
			r.forget(job.ID)
		case errors.Is(cause, ErrPreempted):
			ev.Kind = StatusPreempt
			r.requeue(task, true)
		case errors.Is(cause, ErrSliceExpired):
			ev.Kind = StatusYield
			r.requeue(task, false)
		case ctx.Err() != nil:
			// shutting down: leave the job at the head of its level
			r.requeue(task, true)
			return
		default:
			ev.Kind = StatusFail
			ev.Err = err
			r.forget(job.ID)
		}
		ev.Priority = task.Priority()

		// 6) emit final event
		r.emit(ev)
	}
}

// runSlice runs task once. It returns the number of ticks it ran for, the
// cause of its context being cancelled (nil if it was not) and the job's
// result.
func (r *Runner) runSlice(ctx context.Context, task *sched.Task[*Job]) (ranTicks int64, cause error, err error) {
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	done := make(chan error, 1)
	go func() {
		done <- task.Payload().Run(runCtx)
	}()

	for {
		select {
		case err = <-done:
			return ranTicks, context.Cause(runCtx), err
		case <-r.clock.Ch:
			ranTicks++
			r.mu.Lock()
			preempt := r.engine.TaskTick(task)
			r.mu.Unlock()
			r.emit(StatusEvent{Kind: StatusTick, JobID: task.Payload().ID, Priority: task.Priority(), RanTicks: ranTicks})

			switch {
			case preempt:
				cancel(ErrPreempted)
			case ranTicks >= r.sliceTicks:
				cancel(ErrSliceExpired)
			default:
				continue
			}
			err = <-done
			return ranTicks, context.Cause(runCtx), err
		}
	}
}

func (r *Runner) requeue(task *sched.Task[*Job], preempt bool) {
	r.mu.Lock()
	r.engine.PutPrevTask(task, preempt)
	r.mu.Unlock()
}

func (r *Runner) lookup(id JobID) (*sched.Task[*Job], bool) {
	r.jobsMu.RLock()
	defer r.jobsMu.RUnlock()
	task, ok := r.tasks[id]
	return task, ok
}

func (r *Runner) account(id JobID, ranTicks int64) int64 {
	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()
	r.ranTotals[id] += ranTicks
	return r.ranTotals[id]
}

// forget drops the job's bookkeeping and returns the ticks it ran in total.
func (r *Runner) forget(id JobID) int64 {
	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()
	total := r.ranTotals[id]
	delete(r.tasks, id)
	delete(r.ranTotals, id)
	return total
}

// emit stamps ev and queues it for Run. It never blocks, so it is safe
// before Run starts and from the observer. Events emitted after the loop has
// exited are dropped.
func (r *Runner) emit(ev StatusEvent) {
	ev.Time = time.Now()

	r.eventsMu.Lock()
	if r.closed {
		r.eventsMu.Unlock()
		return
	}
	r.events.Enqueue(ev)
	r.eventsMu.Unlock()
	r.signal()
}

func (r *Runner) signal() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// nextEvent pops the oldest pending event. closed reports whether the loop
// has exited, in which case no more events will arrive.
func (r *Runner) nextEvent() (ev StatusEvent, ok bool, closed bool) {
	r.eventsMu.Lock()
	defer r.eventsMu.Unlock()
	v, ok := r.events.Dequeue()
	if ok {
		ev = v.(StatusEvent)
	}
	return ev, ok, r.closed
}

func (r *Runner) handleEvent(ev StatusEvent) {
	if r.observer != nil {
		r.observer(ev)
	}

	// ticks periodically occur, so we just return early and not log them
	// for the brevity of output.
	if ev.Kind == StatusTick {
		return
	}

	tick := r.clock.Count()
	attrs := []any{
		"tick", tick,
		"job", ev.JobID,
		"priority", ev.Priority,
	}
	switch ev.Kind {
	case StatusFail:
		r.logger.Warn(ev.Kind.String(), append(attrs, "ran_ticks", ev.RanTicks, "total_ticks", ev.TotalTicks, "err", ev.Err)...)
	case StatusPreempt, StatusYield, StatusFinish, StatusRemove:
		r.logger.Info(ev.Kind.String(), append(attrs, "ran_ticks", ev.RanTicks, "total_ticks", ev.TotalTicks)...)
	case StatusIdle:
		r.logger.Debug(ev.Kind.String(), "tick", tick)
	default:
		r.logger.Info(ev.Kind.String(), attrs...)
	}

	// CSV output
	if r.csvWriter != nil {
		rec := []string{
			ev.Time.Format(time.RFC3339Nano),
			strconv.FormatInt(tick, 10),
			ev.Kind.String(),
			strconv.FormatUint(uint64(ev.JobID), 10),
			strconv.Itoa(ev.Priority),
			strconv.FormatInt(ev.RanTicks, 10),
			strconv.FormatInt(ev.TotalTicks, 10),
		}
		r.csvWriter.Write(rec)
		r.csvWriter.Flush()
	}
}
