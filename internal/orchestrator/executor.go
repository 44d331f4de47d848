package orchestrator

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/logfields"
	"git.home.luguber.info/inful/assetflow/internal/metrics"
)

// PlanTask is the plan name reported for tasks started through RunTask.
const PlanTask = "task"

// Executor runs graphs and single tasks.
type Executor struct {
	registry  *Registry
	logger    *slog.Logger
	recorder  metrics.Recorder
	observers []Observer
	now       func() time.Time
	newID     func() string
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder (default metrics.NoopRecorder).
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Executor) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithObserver appends an observer.
func WithObserver(o Observer) Option {
	return func(e *Executor) { e.observers = append(e.observers, o) }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExecutor returns an executor resolving single tasks in reg.
func NewExecutor(reg *Registry, opts ...Option) (*Executor, error) {
	if reg == nil {
		return nil, foundationerrors.InternalError("executor requires a task registry").Build()
	}
	e := &Executor{
		registry: reg,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Registry returns the registry the executor was built with.
func (e *Executor) Registry() *Registry { return e.registry }

type completion struct {
	idx      int
	err      error
	finished time.Time
}

// Run executes g. Every task whose dependencies succeeded starts immediately and runs
// concurrently with the others. After the first failure no task is started; running tasks
// are awaited, tasks that never started are recorded as skipped, and the failure is
// returned as a task-category error naming the task. Cancelling ctx stops launching tasks;
// unstarted tasks are then recorded as canceled.
//
// The returned report is never nil, and its Err equals the returned error.
func (e *Executor) Run(ctx context.Context, g *Graph) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	report := &Report{BuildID: e.newID(), Plan: g.Name(), Started: e.now()}
	log := e.logger.With(logfields.Plan(report.Plan), logfields.BuildID(report.BuildID))
	log.Info("Plan started", logfields.Files(g.Len()))

	n := g.Len()
	records := make([]TaskRecord, n)
	for i, name := range g.nodes {
		records[i] = TaskRecord{Name: name, Status: StatusPending}
	}

	indeg := make([]int, n)
	copy(indeg, g.indeg)
	ready := &intMinHeap{}
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}

	done := make(chan completion, n)
	running := 0
	var firstErr error
	canceled := false

	for {
		for firstErr == nil && !canceled && ready.Len() > 0 {
			if ctx.Err() != nil {
				canceled = true
				break
			}
			i := heap.Pop(ready).(int)
			records[i].Status = StatusRunning
			records[i].Started = e.now()
			e.notifyStart(report, records[i])
			log.Debug("Task started", logfields.Task(records[i].Name))
			running++
			go func(i int, t Task) {
				err := runSafely(ctx, t)
				done <- completion{idx: i, err: err, finished: e.now()}
			}(i, g.tasks[i])
		}
		if running == 0 {
			break
		}

		c := <-done
		running--
		rec := &records[c.idx]
		rec.Finished = c.finished
		if c.err != nil {
			rec.Status = StatusFailed
			rec.Error = c.err.Error()
			if firstErr == nil {
				firstErr = foundationerrors.TaskError(rec.Name, c.err).
					WithContext("plan", report.Plan).
					Build()
			}
			log.Error("Task failed", logfields.Task(rec.Name), logfields.Duration(rec.Duration()), logfields.Error(c.err))
		} else {
			rec.Status = StatusSucceeded
			log.Info("Task finished", logfields.Task(rec.Name), logfields.Duration(rec.Duration()))
			for _, m := range g.outgoing[c.idx] {
				indeg[m]--
				if indeg[m] == 0 {
					heap.Push(ready, m)
				}
			}
		}
		e.recordTask(*rec)
		e.notifyComplete(report, *rec)
	}

	if firstErr == nil && (canceled || ctx.Err() != nil) && hasPending(records) {
		firstErr = foundationerrors.WrapError(ctx.Err(), foundationerrors.CategoryRuntime, "build canceled").
			WithContext("plan", report.Plan).
			Build()
		canceled = true
	}
	for i := range records {
		if records[i].Status != StatusPending {
			continue
		}
		if canceled {
			records[i].Status = StatusCanceled
		} else {
			records[i].Status = StatusSkipped
		}
		e.recorder.IncTaskResult(records[i].Name, records[i].Status.resultLabel())
	}

	report.Finished = e.now()
	report.Err = firstErr
	for _, i := range g.order {
		report.Tasks = append(report.Tasks, records[i])
	}

	e.recorder.ObservePlanDuration(report.Plan, report.Duration())
	e.recorder.IncPlanOutcome(report.Plan, report.Status().resultLabel())
	if firstErr != nil {
		log.Error("Plan failed", logfields.Duration(report.Duration()), logfields.Error(firstErr))
	} else {
		log.Info("Plan finished", logfields.Duration(report.Duration()))
	}
	for _, o := range e.observers {
		o.planComplete(report)
	}
	return report, firstErr
}

// RunTask runs a single registered task with the same logging, metrics and observer
// hooks as a plan run. Failures are task-category errors naming the task.
func (e *Executor) RunTask(ctx context.Context, name string) (TaskRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	t, ok := e.registry.Lookup(name)
	if !ok {
		return TaskRecord{Name: name, Status: StatusSkipped},
			foundationerrors.NotFoundError(fmt.Sprintf("unknown task %q", name)).
				WithContext("task", name).
				Build()
	}

	report := &Report{BuildID: e.newID(), Plan: PlanTask}
	rec := TaskRecord{Name: name, Status: StatusRunning, Started: e.now()}
	e.notifyStart(report, rec)

	err := runSafely(ctx, t)
	rec.Finished = e.now()
	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
		err = foundationerrors.TaskError(name, err).Build()
		e.logger.Error("Task failed", logfields.Task(name), logfields.Duration(rec.Duration()), logfields.Error(err))
	} else {
		rec.Status = StatusSucceeded
		e.logger.Info("Task finished", logfields.Task(name), logfields.Duration(rec.Duration()))
	}
	e.recordTask(rec)
	e.notifyComplete(report, rec)
	return rec, err
}

func (e *Executor) recordTask(rec TaskRecord) {
	e.recorder.ObserveTaskDuration(rec.Name, rec.Duration())
	e.recorder.IncTaskResult(rec.Name, rec.Status.resultLabel())
}

func (e *Executor) notifyStart(r *Report, rec TaskRecord) {
	for _, o := range e.observers {
		o.taskStart(TaskEvent{BuildID: r.BuildID, Plan: r.Plan, Record: rec})
	}
}

func (e *Executor) notifyComplete(r *Report, rec TaskRecord) {
	for _, o := range e.observers {
		o.taskComplete(TaskEvent{BuildID: r.BuildID, Plan: r.Plan, Record: rec})
	}
}

func hasPending(records []TaskRecord) bool {
	for _, r := range records {
		if r.Status == StatusPending {
			return true
		}
	}
	return false
}

// runSafely converts a panicking task into an internal error.
func runSafely(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = foundationerrors.InternalError(fmt.Sprintf("task panicked: %v", r)).
				WithContext("task", t.Name).
				Build()
		}
	}()
	return t.Run(ctx)
}
