// Package workflow assembles a project: it registers the asset steps as tasks, builds
// the plans, attaches history and notification observers, and runs builds and
// servers for the CLI.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/assetflow/internal/config"
	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/history"
	"git.home.luguber.info/inful/assetflow/internal/imageopt"
	"git.home.luguber.info/inful/assetflow/internal/logfields"
	"git.home.luguber.info/inful/assetflow/internal/metrics"
	"git.home.luguber.info/inful/assetflow/internal/notify"
	"git.home.luguber.info/inful/assetflow/internal/orchestrator"
	"git.home.luguber.info/inful/assetflow/internal/steps"
	"git.home.luguber.info/inful/assetflow/internal/storage"
)

var stepDescriptions = map[string]string{
	orchestrator.TaskClean:         "Remove the temp tree and the output tree except reserved entries",
	orchestrator.TaskStyles:        "Compile, prefix and minify stylesheets",
	orchestrator.TaskScripts:       "Transpile, bundle and minify scripts",
	orchestrator.TaskHTML:          "Rewrite build blocks and minify pages",
	orchestrator.TaskImages:        "Optimize images through the content cache",
	orchestrator.TaskCopy:          "Copy root files and extras to the output tree",
	orchestrator.TaskCopySWScripts: "Copy the service worker runtime scripts",
	orchestrator.TaskServiceWorker: "Generate the precaching service worker",
}

// Project is a configured asset pipeline rooted at a directory.
type Project struct {
	env      steps.Env
	plans    *orchestrator.Plans
	executor *orchestrator.Executor
	recorder *metrics.PrometheusRecorder
	images   *storage.FSStore
	history  *history.SQLiteStore
	notifier *notify.NATSPublisher
	logger   *slog.Logger
}

// Option customizes Open.
type Option func(*openOptions)

type openOptions struct {
	logger    *slog.Logger
	observers []orchestrator.Observer
	noHistory bool
	noNotify  bool
}

// WithLogger sets the project logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *openOptions) { o.logger = l }
}

// WithObserver adds an executor observer.
func WithObserver(obs orchestrator.Observer) Option {
	return func(o *openOptions) { o.observers = append(o.observers, obs) }
}

// WithoutHistory disables the build history database regardless of config.
func WithoutHistory() Option {
	return func(o *openOptions) { o.noHistory = true }
}

// WithoutNotify disables NATS notifications regardless of config.
func WithoutNotify() Option {
	return func(o *openOptions) { o.noNotify = true }
}

// Open validates the task graph and prepares a project. Close releases the history
// database and the NATS connection.
func Open(root string, cfg *config.Config, opts ...Option) (*Project, error) {
	o := openOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to resolve project root").
			WithContext("path", root).
			Build()
	}

	p := &Project{
		recorder: metrics.NewPrometheusRecorder(nil),
		logger:   o.logger,
	}
	p.env = steps.Env{Root: abs, Config: cfg, Logger: o.logger, Recorder: p.recorder}

	p.images, err = storage.NewFSStore(p.env.Path(cfg.Images.CacheDir))
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryStorage, "failed to open image cache").
			WithContext("path", cfg.Images.CacheDir).
			Build()
	}

	reg, err := p.registry()
	if err != nil {
		return nil, err
	}
	if p.plans, err = orchestrator.NewPlans(reg); err != nil {
		return nil, err
	}

	execOpts := []orchestrator.Option{
		orchestrator.WithLogger(o.logger),
		orchestrator.WithRecorder(p.recorder),
	}
	if cfg.History.Enabled && !o.noHistory {
		store, herr := history.NewSQLiteStore(p.env.Path(cfg.History.Path))
		if herr != nil {
			o.logger.Warn("Build history disabled", logfields.Error(herr))
		} else {
			p.history = store
			execOpts = append(execOpts, orchestrator.WithObserver(history.Observer(store, o.logger)))
		}
	}
	if cfg.Notify.NATSURL != "" && !o.noNotify {
		pub, nerr := notify.Connect(context.Background(), cfg.Notify, o.logger)
		if nerr != nil {
			o.logger.Warn("Build notifications disabled", logfields.Error(nerr))
		} else {
			p.notifier = pub
			execOpts = append(execOpts, orchestrator.WithObserver(pub.Observer()))
		}
	}
	for _, obs := range o.observers {
		execOpts = append(execOpts, orchestrator.WithObserver(obs))
	}
	if p.executor, err = orchestrator.NewExecutor(reg, execOpts...); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

func (p *Project) registry() (*orchestrator.Registry, error) {
	styles, err := steps.NewStyles(p.env)
	if err != nil {
		return nil, err
	}
	all := []steps.Step{
		steps.NewClean(p.env),
		styles,
		steps.NewScripts(p.env),
		steps.NewHTML(p.env),
		steps.NewImages(p.env, imageopt.New(p.images, p.logger)),
		steps.NewCopy(p.env),
		steps.NewCopySWScripts(p.env),
		steps.NewServiceWorker(p.env),
	}
	reg := orchestrator.NewRegistry()
	for _, s := range all {
		if err := reg.RegisterFunc(s.Name(), stepDescriptions[s.Name()], stepTask(s)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func stepTask(s steps.Step) orchestrator.TaskFunc {
	return func(ctx context.Context) error {
		_, err := s.Run(ctx)
		return err
	}
}

// Env returns the step environment of the project.
func (p *Project) Env() steps.Env { return p.env }

// Plans returns the validated plans.
func (p *Project) Plans() *orchestrator.Plans { return p.plans }

// Executor returns the plan executor.
func (p *Project) Executor() *orchestrator.Executor { return p.executor }

// Metrics returns the Prometheus recorder shared by steps, executor and servers.
func (p *Project) Metrics() *metrics.PrometheusRecorder { return p.recorder }

// History returns the build history store, nil when disabled.
func (p *Project) History() *history.SQLiteStore { return p.history }

// Run executes the named plan.
func (p *Project) Run(ctx context.Context, plan string) (*orchestrator.Report, error) {
	g, ok := p.plans.Lookup(plan)
	if !ok {
		return nil, foundationerrors.NotFoundError("unknown plan").
			WithContext("plan", plan).
			WithContext("available", p.plans.Names()).
			Build()
	}
	return p.executor.Run(ctx, g)
}

// Build runs the production build plan.
func (p *Project) Build(ctx context.Context) (*orchestrator.Report, error) {
	return p.Run(ctx, orchestrator.PlanBuild)
}

// Clean runs the clean plan.
func (p *Project) Clean(ctx context.Context) (*orchestrator.Report, error) {
	return p.Run(ctx, orchestrator.PlanClean)
}

// Close releases external resources.
func (p *Project) Close() error {
	var errs []error
	if p.notifier != nil {
		errs = append(errs, p.notifier.Close())
	}
	if p.history != nil {
		errs = append(errs, p.history.Close())
	}
	if p.images != nil {
		errs = append(errs, p.images.Close())
	}
	return errors.Join(errs...)
}
