package orchestrator

import (
	"time"

	"git.home.luguber.info/inful/assetflow/internal/metrics"
)

// Status is the final (or current) state of a task within one execution.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped, StatusCanceled:
		return true
	default:
		return false
	}
}

func (s Status) resultLabel() metrics.ResultLabel {
	switch s {
	case StatusSucceeded:
		return metrics.ResultSuccess
	case StatusSkipped:
		return metrics.ResultSkipped
	case StatusCanceled:
		return metrics.ResultCanceled
	default:
		return metrics.ResultFailed
	}
}

// TaskRecord captures one task run. Started and Finished are zero for tasks that never ran.
type TaskRecord struct {
	Name     string
	Started  time.Time
	Finished time.Time
	Status   Status
	Error    string
}

// Duration returns Finished-Started, or zero when the task never ran.
func (r TaskRecord) Duration() time.Duration {
	if r.Started.IsZero() || r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Report describes one plan execution. Tasks are listed in the graph's topological order.
type Report struct {
	BuildID  string
	Plan     string
	Started  time.Time
	Finished time.Time
	Tasks    []TaskRecord
	Err      error
}

// Succeeded reports whether every task succeeded.
func (r *Report) Succeeded() bool {
	return r.Err == nil
}

// Duration returns the wall time of the plan.
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Task returns the record for name.
func (r *Report) Task(name string) (TaskRecord, bool) {
	for _, t := range r.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return TaskRecord{}, false
}

// Counts tallies task records per status.
func (r *Report) Counts() map[Status]int {
	out := make(map[Status]int, 4)
	for _, t := range r.Tasks {
		out[t.Status]++
	}
	return out
}

// Status summarizes the plan outcome.
func (r *Report) Status() Status {
	if r.Err == nil {
		return StatusSucceeded
	}
	for _, t := range r.Tasks {
		if t.Status == StatusFailed {
			return StatusFailed
		}
	}
	return StatusCanceled
}
