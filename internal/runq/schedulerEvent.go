// internal/runq/schedulerEvent.go

package runq

import (
	"time"
)

// StatusKind represents the type of scheduler event
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusEnqueue
	StatusDispatch
	StatusPreempt
	StatusYield
	StatusFinish
	StatusFail
	StatusRemove
	StatusPriorityUpdate
	StatusTick
)

// StatusEvent is emitted every tick or on key actions
type StatusEvent struct {
	Time       time.Time
	Kind       StatusKind
	JobID      JobID
	Priority   int
	RanTicks   int64 // ticks of the slice that just ended
	TotalTicks int64 // cumulative ticks of the job
	Err        error // set for StatusFail
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusIdle:
		return "Idle"
	case StatusEnqueue:
		return "Enqueued"
	case StatusDispatch:
		return "Dispatch"
	case StatusPreempt:
		return "Preempt"
	case StatusYield:
		return "Yield"
	case StatusFinish:
		return "Finish"
	case StatusFail:
		return "Fail"
	case StatusRemove:
		return "Remove"
	case StatusPriorityUpdate:
		return "PriorityUpdate"
	case StatusTick:
		return "Tick"
	default:
		return "Unknown"
	}
}
