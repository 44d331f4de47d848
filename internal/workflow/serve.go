package workflow

import (
	"context"
	"io/fs"
	"net/http"
	"os"
	"sync"
	"time"

	"git.home.luguber.info/inful/assetflow/internal/devserver"
	"git.home.luguber.info/inful/assetflow/internal/logfields"
	"git.home.luguber.info/inful/assetflow/internal/metrics"
	"git.home.luguber.info/inful/assetflow/internal/orchestrator"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions configures Serve and ServeDist. Ports come from the serve config; a
// zero port picks a free one.
type ServeOptions struct {
	// Ready is called with the server URL once it accepts connections.
	Ready func(url string)
}

// Serve runs the serve plan, then serves the temp tree layered over the source tree
// with live reload until ctx is done. Source changes rebuild only the affected task.
// Failed builds are logged and pushed to the browser; they never stop the server.
func (p *Project) Serve(ctx context.Context, opts ServeOptions) error {
	cfg := p.env.Config
	if _, err := p.Run(ctx, orchestrator.PlanServe); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		p.logger.Error("Initial build failed", logfields.Error(err))
	}

	hub := devserver.NewHub(p.recorder, p.logger)
	srv := devserver.NewServer(devserver.ServerOptions{
		Host:    cfg.Serve.Host,
		Port:    cfg.Serve.Port,
		Root:    devserver.LayeredFS{os.DirFS(p.env.Temp()), os.DirFS(p.env.Source())},
		Hub:     hub,
		Metrics: p.metricsHandler(),
		Logger:  p.logger,
	})

	watcher, err := devserver.NewWatcher(p.env.Root, []string{p.env.Source()}, p.logger)
	if err != nil {
		return err
	}
	dispatcher := devserver.NewDispatcher(
		devserver.DefaultBindings(cfg.Paths.Source),
		p.executor,
		hub,
		cfg.Serve.Debounce.D(),
		p.logger,
	)

	maint, err := devserver.NewMaintenance(p.logger)
	if err != nil {
		_ = watcher.Close()
		return err
	}
	if _, err := maint.ScheduleCacheGC(ctx, p.images, cfg.Images.CacheGCInterval.D(), cfg.Images.CacheTTL.D()); err != nil {
		p.logger.Warn("Image cache GC disabled", logfields.Error(err))
	}
	maint.Start()
	defer func() { _ = maint.Stop() }()

	if err := srv.Start(); err != nil {
		_ = watcher.Close()
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		watcher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx, watcher.Changes())
	}()

	if opts.Ready != nil {
		opts.Ready(srv.URL())
	}
	<-ctx.Done()

	err = shutdown(srv)
	wg.Wait()
	return err
}

// ServeDist runs the production build (as the serve:dist plan) and serves the output tree until ctx is done.
// A failed build is returned without starting the server.
func (p *Project) ServeDist(ctx context.Context, opts ServeOptions) error {
	if _, err := p.Run(ctx, orchestrator.PlanServeDist); err != nil {
		return err
	}
	cfg := p.env.Config
	return p.serveStatic(ctx, cfg.Serve.Host, cfg.Serve.DistPort, os.DirFS(p.env.Output()), opts.Ready)
}

func (p *Project) serveStatic(ctx context.Context, host string, port int, root fs.FS, ready func(string)) error {
	srv := devserver.NewServer(devserver.ServerOptions{
		Host:    host,
		Port:    port,
		Root:    root,
		Metrics: p.metricsHandler(),
		Logger:  p.logger,
	})
	if err := srv.Start(); err != nil {
		return err
	}
	if ready != nil {
		ready(srv.URL())
	}
	<-ctx.Done()
	return shutdown(srv)
}

func (p *Project) metricsHandler() http.Handler {
	if !p.env.Config.Serve.Metrics {
		return nil
	}
	return metrics.HTTPHandler(p.recorder.Registry())
}

func shutdown(srv *devserver.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
