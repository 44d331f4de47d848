package orchestrator

// TaskEvent is delivered to observers when a task starts or completes.
type TaskEvent struct {
	BuildID string
	Plan    string
	Record  TaskRecord
}

// Observer receives execution events. Nil hooks are skipped. Hooks are called from the
// executor's coordinating goroutine, one at a time, and must not block for long.
type Observer struct {
	OnTaskStart    func(TaskEvent)
	OnTaskComplete func(TaskEvent)
	OnPlanComplete func(*Report)
}

func (o Observer) taskStart(ev TaskEvent) {
	if o.OnTaskStart != nil {
		o.OnTaskStart(ev)
	}
}

func (o Observer) taskComplete(ev TaskEvent) {
	if o.OnTaskComplete != nil {
		o.OnTaskComplete(ev)
	}
}

func (o Observer) planComplete(r *Report) {
	if o.OnPlanComplete != nil {
		o.OnPlanComplete(r)
	}
}
