package metrics

import "time"

// ResultLabel enumerates task result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultSkipped  ResultLabel = "skipped"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for task, plan and dev server metrics.
// Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveTaskDuration(task string, d time.Duration)
	IncTaskResult(task string, result ResultLabel)
	ObservePlanDuration(plan string, d time.Duration)
	IncPlanOutcome(plan string, result ResultLabel)
	AddOutputBytes(task string, n int64)
	IncReload(kind string)
	SetLiveClients(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveTaskDuration(string, time.Duration) {}
func (NoopRecorder) IncTaskResult(string, ResultLabel)         {}
func (NoopRecorder) ObservePlanDuration(string, time.Duration) {}
func (NoopRecorder) IncPlanOutcome(string, ResultLabel)        {}
func (NoopRecorder) AddOutputBytes(string, int64)              {}
func (NoopRecorder) IncReload(string)                          {}
func (NoopRecorder) SetLiveClients(int)                        {}
