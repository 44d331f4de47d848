package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/metrics"
)

type countingRecorder struct {
	metrics.NoopRecorder
	mu      sync.Mutex
	results map[string]metrics.ResultLabel
	plans   map[string]metrics.ResultLabel
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		results: map[string]metrics.ResultLabel{},
		plans:   map[string]metrics.ResultLabel{},
	}
}

func (r *countingRecorder) IncTaskResult(task string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[task] = result
}

func (r *countingRecorder) IncPlanOutcome(plan string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[plan] = result
}

func buildRegistry(t *testing.T, override map[string]TaskFunc) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, name := range BuildTasks() {
		run := TaskFunc(func(context.Context) error {
			time.Sleep(5 * time.Millisecond)
			return nil
		})
		if fn, ok := override[name]; ok {
			run = fn
		}
		require.NoError(t, reg.RegisterFunc(name, "", run))
	}
	return reg
}

func TestRunBuildPlanOrdersTasks(t *testing.T) {
	reg := buildRegistry(t, nil)
	plans, err := NewPlans(reg)
	require.NoError(t, err)
	exec, err := NewExecutor(reg)
	require.NoError(t, err)

	report, err := exec.Run(context.Background(), plans.Build)
	require.NoError(t, err)
	require.NotEmpty(t, report.BuildID)
	assert.Equal(t, PlanBuild, report.Plan)
	assert.True(t, report.Succeeded())
	assert.Equal(t, StatusSucceeded, report.Status())
	assert.Len(t, report.Tasks, 8)

	styles, ok := report.Task(TaskStyles)
	require.True(t, ok)
	for _, name := range []string{TaskHTML, TaskScripts, TaskImages, TaskCopy} {
		rec, ok := report.Task(name)
		require.True(t, ok)
		assert.Equal(t, StatusSucceeded, rec.Status)
		assert.False(t, rec.Started.Before(styles.Finished), "%s started before styles finished", name)
	}

	clean, _ := report.Task(TaskClean)
	assert.False(t, styles.Started.Before(clean.Finished))
	sw, _ := report.Task(TaskServiceWorker)
	copySW, _ := report.Task(TaskCopySWScripts)
	assert.False(t, sw.Started.Before(copySW.Finished))
}

func TestRunStartsIndependentTasksConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(2)
	release := make(chan struct{})
	both := func(context.Context) error {
		started.Done()
		<-release
		return nil
	}

	reg := NewRegistry()
	require.NoError(t, reg.RegisterFunc(TaskScripts, "", both))
	require.NoError(t, reg.RegisterFunc(TaskStyles, "", both))
	g, err := NewGraph(PlanServe, reg, []string{TaskScripts, TaskStyles}, nil)
	require.NoError(t, err)
	exec, err := NewExecutor(reg)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := exec.Run(context.Background(), g)
		done <- err
	}()

	waited := make(chan struct{})
	go func() {
		started.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("independent tasks did not run concurrently")
	}
	close(release)
	require.NoError(t, <-done)
}

func TestRunFailFastSkipsUnstartedTasks(t *testing.T) {
	cause := errors.New("unterminated block")
	var htmlRuns atomic.Int32
	reg := buildRegistry(t, map[string]TaskFunc{
		TaskStyles: func(context.Context) error { return cause },
		TaskHTML: func(context.Context) error {
			htmlRuns.Add(1)
			return nil
		},
	})
	plans, err := NewPlans(reg)
	require.NoError(t, err)
	rec := newCountingRecorder()
	exec, err := NewExecutor(reg, WithRecorder(rec))
	require.NoError(t, err)

	report, err := exec.Run(context.Background(), plans.Build)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, err, report.Err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryTask))
	name, ok := foundationerrors.TaskName(err)
	require.True(t, ok)
	assert.Equal(t, TaskStyles, name)

	assert.Zero(t, htmlRuns.Load())
	clean, _ := report.Task(TaskClean)
	assert.Equal(t, StatusSucceeded, clean.Status)
	styles, _ := report.Task(TaskStyles)
	assert.Equal(t, StatusFailed, styles.Status)
	assert.Equal(t, cause.Error(), styles.Error)
	for _, n := range []string{TaskHTML, TaskScripts, TaskImages, TaskCopy, TaskCopySWScripts, TaskServiceWorker} {
		r, _ := report.Task(n)
		assert.Equal(t, StatusSkipped, r.Status, n)
		assert.True(t, r.Started.IsZero())
	}
	assert.Equal(t, StatusFailed, report.Status())
	assert.Equal(t, 6, report.Counts()[StatusSkipped])

	assert.Equal(t, metrics.ResultFailed, rec.results[TaskStyles])
	assert.Equal(t, metrics.ResultSkipped, rec.results[TaskHTML])
	assert.Equal(t, metrics.ResultFailed, rec.plans[PlanBuild])
}

func TestRunLetsRunningSiblingsFinish(t *testing.T) {
	var imagesFinished atomic.Bool
	reg := buildRegistry(t, map[string]TaskFunc{
		TaskHTML: func(context.Context) error { return errors.New("bad markup") },
		TaskImages: func(context.Context) error {
			time.Sleep(50 * time.Millisecond)
			imagesFinished.Store(true)
			return nil
		},
	})
	plans, err := NewPlans(reg)
	require.NoError(t, err)
	exec, err := NewExecutor(reg)
	require.NoError(t, err)

	report, err := exec.Run(context.Background(), plans.Build)
	require.Error(t, err)
	assert.True(t, imagesFinished.Load())
	images, _ := report.Task(TaskImages)
	assert.Equal(t, StatusSucceeded, images.Status)
	copySW, _ := report.Task(TaskCopySWScripts)
	assert.Equal(t, StatusSkipped, copySW.Status)
}

func TestRunCanceledContext(t *testing.T) {
	reg := buildRegistry(t, nil)
	plans, err := NewPlans(reg)
	require.NoError(t, err)
	exec, err := NewExecutor(reg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := exec.Run(ctx, plans.Build)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCanceled, report.Status())
	assert.Equal(t, 8, report.Counts()[StatusCanceled])
}

func TestRunRecoversPanickingTask(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterFunc(TaskClean, "", func(context.Context) error { panic("boom") }))
	plans, err := NewGraph(PlanClean, reg, []string{TaskClean}, nil)
	require.NoError(t, err)
	exec, err := NewExecutor(reg)
	require.NoError(t, err)

	_, err = exec.Run(context.Background(), plans)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryInternal))
	assert.Contains(t, err.Error(), "boom")
}

func TestObserverHooks(t *testing.T) {
	reg := buildRegistry(t, nil)
	plans, err := NewPlans(reg)
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		starts   []string
		finishes []string
		reports  []*Report
	)
	exec, err := NewExecutor(reg, WithObserver(Observer{
		OnTaskStart: func(ev TaskEvent) {
			mu.Lock()
			defer mu.Unlock()
			starts = append(starts, ev.Record.Name)
		},
		OnTaskComplete: func(ev TaskEvent) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, PlanClean, ev.Plan)
			finishes = append(finishes, ev.Record.Name)
		},
		OnPlanComplete: func(r *Report) {
			mu.Lock()
			defer mu.Unlock()
			reports = append(reports, r)
		},
	}))
	require.NoError(t, err)

	report, err := exec.Run(context.Background(), plans.Clean)
	require.NoError(t, err)
	assert.Equal(t, []string{TaskClean}, starts)
	assert.Equal(t, []string{TaskClean}, finishes)
	require.Len(t, reports, 1)
	assert.Same(t, report, reports[0])
}

func TestRunTask(t *testing.T) {
	var runs atomic.Int32
	reg := NewRegistry()
	require.NoError(t, reg.RegisterFunc(TaskStyles, "", func(context.Context) error {
		runs.Add(1)
		return nil
	}))
	require.NoError(t, reg.RegisterFunc(TaskScripts, "", func(context.Context) error {
		return errors.New("syntax error")
	}))
	exec, err := NewExecutor(reg)
	require.NoError(t, err)

	rec, err := exec.RunTask(context.Background(), TaskStyles)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, rec.Status)
	assert.EqualValues(t, 1, runs.Load())

	rec, err = exec.RunTask(context.Background(), TaskScripts)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
	name, ok := foundationerrors.TaskName(err)
	require.True(t, ok)
	assert.Equal(t, TaskScripts, name)

	_, err = exec.RunTask(context.Background(), "deploy")
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryNotFound))
}

func TestNewExecutorRequiresRegistry(t *testing.T) {
	_, err := NewExecutor(nil)
	require.Error(t, err)
}
