// Package history persists plan executions and their task timings.
package history

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/assetflow/internal/logfields"
	"git.home.luguber.info/inful/assetflow/internal/orchestrator"
)

// Build is one recorded plan execution.
type Build struct {
	ID       string
	Plan     string
	Status   string
	Started  time.Time
	Finished time.Time
	Error    string
	Tasks    []Task
}

// Duration returns the wall time of the build.
func (b Build) Duration() time.Duration { return b.Finished.Sub(b.Started) }

// Task is one recorded task run of a build.
type Task struct {
	Name     string
	Status   string
	Started  time.Time
	Finished time.Time
	Error    string
}

// Duration returns the run time of the task, zero when it never ran.
func (t Task) Duration() time.Duration {
	if t.Started.IsZero() || t.Finished.IsZero() {
		return 0
	}
	return t.Finished.Sub(t.Started)
}

// Store persists builds.
type Store interface {
	// Record stores a finished plan execution.
	Record(ctx context.Context, r *orchestrator.Report) error
	// Recent returns the latest builds, newest first, without their tasks.
	Recent(ctx context.Context, limit int) ([]Build, error)
	// Get returns one build with its tasks.
	Get(ctx context.Context, id string) (*Build, error)
	Close() error
}

// FromReport converts an executor report into a Build.
func FromReport(r *orchestrator.Report) Build {
	b := Build{
		ID:       r.BuildID,
		Plan:     r.Plan,
		Status:   string(r.Status()),
		Started:  r.Started,
		Finished: r.Finished,
	}
	if r.Err != nil {
		b.Error = r.Err.Error()
	}
	for _, t := range r.Tasks {
		b.Tasks = append(b.Tasks, Task{
			Name:     t.Name,
			Status:   string(t.Status),
			Started:  t.Started,
			Finished: t.Finished,
			Error:    t.Error,
		})
	}
	return b
}

// Observer records every completed plan in store. Recording failures are logged and
// never fail the build.
func Observer(store Store, logger *slog.Logger) orchestrator.Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return orchestrator.Observer{
		OnPlanComplete: func(r *orchestrator.Report) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := store.Record(ctx, r); err != nil {
				logger.Warn("Failed to record build history", logfields.BuildID(r.BuildID), logfields.Error(err))
			}
		},
	}
}
