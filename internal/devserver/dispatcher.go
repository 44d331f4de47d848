package devserver

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/assetflow/internal/logfields"
	"git.home.luguber.info/inful/assetflow/internal/orchestrator"
)

// Binding maps changed paths to the tasks to run and whether browsers reload afterwards.
type Binding struct {
	Name    string
	Pattern string // doublestar pattern over project-relative slash paths
	Tasks   []string
	Reload  bool
}

// DefaultBindings returns the bindings of the standard layout below source.
func DefaultBindings(source string) []Binding {
	source = strings.TrimSuffix(source, "/")
	return []Binding{
		{Name: "html", Pattern: source + "/**/*.html", Reload: true},
		{Name: "styles", Pattern: source + "/styles/**/*.css", Tasks: []string{orchestrator.TaskStyles}, Reload: true},
		{Name: "scripts", Pattern: source + "/scripts/**/*.js", Tasks: []string{orchestrator.TaskScripts}, Reload: true},
		{Name: "images", Pattern: source + "/images/**/*", Reload: true},
	}
}

// TaskRunner runs one registered task; *orchestrator.Executor implements it.
type TaskRunner interface {
	RunTask(ctx context.Context, name string) (orchestrator.TaskRecord, error)
}

// Notifier receives the outcome of a binding; *Hub implements it.
type Notifier interface {
	Reload(paths []string)
	Error(task string, err error)
}

// Dispatcher turns changed paths into binding runs.
//
// Coalescing policy, per binding:
//   - a change (re)starts the binding's debounce window; the binding fires when the
//     window passes without further matching changes
//   - a fired binding is queued at most once
//   - a binding that fires while it is running gets exactly one follow-up run
//
// Bindings run one at a time, in the order they were queued. A failing task stops the
// binding, is logged and reported to the notifier; the dispatcher keeps running.
type Dispatcher struct {
	bindings []Binding
	runner   TaskRunner
	notifier Notifier
	debounce time.Duration
	logger   *slog.Logger
}

// NewDispatcher returns a dispatcher. A zero debounce fires bindings on the next loop turn.
func NewDispatcher(bindings []Binding, runner TaskRunner, notifier Notifier, debounce time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{bindings: bindings, runner: runner, notifier: notifier, debounce: debounce, logger: logger}
}

type job struct {
	binding int
	paths   []string
}

// bindingState is owned by the Run goroutine.
type bindingState struct {
	timer    *time.Timer
	gen      int // debounce generation; stale timer firings carry an older one
	paths    []string
	queued   bool
	followUp bool
}

type firing struct {
	binding int
	gen     int
}

// Match returns the indices of the bindings matching p.
func (d *Dispatcher) Match(p string) []int {
	var out []int
	for i, b := range d.bindings {
		if ok, _ := doublestar.Match(b.Pattern, p); ok {
			out = append(out, i)
		}
	}
	return out
}

// Run consumes changes until the channel closes or ctx is done, then waits for the
// running binding to finish.
func (d *Dispatcher) Run(ctx context.Context, changes <-chan string) {
	states := make([]bindingState, len(d.bindings))
	fired := make(chan firing)
	quit := make(chan struct{})
	defer close(quit)
	jobs := make(chan job)
	done := make(chan int)

	go func() {
		for j := range jobs {
			d.execute(ctx, j)
			done <- j.binding
		}
	}()

	var queue []int
	running := -1
	start := func() {
		if running >= 0 || len(queue) == 0 {
			return
		}
		b := queue[0]
		queue = queue[1:]
		st := &states[b]
		st.queued = false
		running = b
		paths := st.paths
		st.paths = nil
		jobs <- job{binding: b, paths: paths}
	}
	enqueue := func(b int) {
		if running == b {
			states[b].followUp = true
			return
		}
		if !states[b].queued {
			states[b].queued = true
			queue = append(queue, b)
		}
	}
	stop := func() {
		for i := range states {
			if states[i].timer != nil {
				states[i].timer.Stop()
			}
		}
		if running >= 0 {
			<-done
		}
		close(jobs)
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case p, ok := <-changes:
			if !ok {
				changes = nil
				if running < 0 && len(queue) == 0 && !d.timersArmed(states) {
					stop()
					return
				}
				continue
			}
			for _, b := range d.Match(p) {
				st := &states[b]
				if !containsPath(st.paths, p) {
					st.paths = append(st.paths, p)
				}
				if st.timer != nil {
					st.timer.Stop()
				}
				st.gen++
				f := firing{binding: b, gen: st.gen}
				st.timer = time.AfterFunc(d.debounce, func() {
					select {
					case fired <- f:
					case <-quit:
					}
				})
			}
		case f := <-fired:
			if f.gen != states[f.binding].gen {
				continue
			}
			states[f.binding].timer = nil
			enqueue(f.binding)
			start()
		case b := <-done:
			running = -1
			if states[b].followUp {
				states[b].followUp = false
				enqueue(b)
			}
			start()
			if changes == nil && running < 0 && len(queue) == 0 && !d.timersArmed(states) {
				close(jobs)
				return
			}
		}
	}
}

func (d *Dispatcher) timersArmed(states []bindingState) bool {
	for _, st := range states {
		if st.timer != nil {
			return true
		}
	}
	return false
}

// execute runs the tasks of one binding and notifies the outcome.
func (d *Dispatcher) execute(ctx context.Context, j job) {
	b := d.bindings[j.binding]
	log := d.logger.With(logfields.Binding(b.Name))
	log.Debug("Binding triggered", logfields.Files(len(j.paths)))
	for _, task := range b.Tasks {
		if ctx.Err() != nil {
			return
		}
		if _, err := d.runner.RunTask(ctx, task); err != nil {
			log.Error("Rebuild failed", logfields.Task(task), logfields.Error(err))
			if d.notifier != nil {
				d.notifier.Error(task, err)
			}
			return
		}
	}
	if b.Reload && d.notifier != nil {
		d.notifier.Reload(j.paths)
	}
}

func containsPath(paths []string, p string) bool {
	for _, q := range paths {
		if q == p {
			return true
		}
	}
	return false
}
