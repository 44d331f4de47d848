// Package notify publishes build progress to NATS subscribers.
package notify

import (
	"time"

	"git.home.luguber.info/inful/assetflow/internal/orchestrator"
)

// Event is the JSON payload published for every finished task and plan. Task is
// empty for plan events.
type Event struct {
	BuildID    string    `json:"build_id"`
	Plan       string    `json:"plan"`
	Task       string    `json:"task,omitempty"`
	Status     string    `json:"status"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// TaskEvent builds the event for a finished task.
func TaskEvent(ev orchestrator.TaskEvent) Event {
	return Event{
		BuildID:    ev.BuildID,
		Plan:       ev.Plan,
		Task:       ev.Record.Name,
		Status:     string(ev.Record.Status),
		DurationMS: ev.Record.Duration().Milliseconds(),
		Error:      ev.Record.Error,
	}
}

// PlanEvent builds the event for a finished plan.
func PlanEvent(r *orchestrator.Report) Event {
	e := Event{
		BuildID:    r.BuildID,
		Plan:       r.Plan,
		Status:     string(r.Status()),
		DurationMS: r.Duration().Milliseconds(),
	}
	if r.Err != nil {
		e.Error = r.Err.Error()
	}
	return e
}
