package commands

import (
	"fmt"

	"git.home.luguber.info/inful/assetflow/internal/config"
	"git.home.luguber.info/inful/assetflow/internal/console"
	"git.home.luguber.info/inful/assetflow/internal/workflow"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Host    string `help:"Listen host (overrides serve.host)"`
	Port    int    `short:"p" help:"Listen port (overrides serve.port)"`
	Metrics bool   `help:"Expose Prometheus metrics at /__metrics"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	project, err := root.Open(func(cfg *config.Config) {
		if s.Host != "" {
			cfg.Serve.Host = s.Host
		}
		if s.Port > 0 {
			cfg.Serve.Port = s.Port
		}
		cfg.Serve.Metrics = cfg.Serve.Metrics || s.Metrics
	})
	if err != nil {
		return err
	}
	defer func() { _ = project.Close() }()

	cfg := project.Env().Config
	return project.Serve(g.context(), workflow.ServeOptions{
		Ready: func(url string) {
			_, _ = fmt.Fprint(g.out(), console.ServeBanner("assetflow serve", url,
				fmt.Sprintf("serving %s over %s", cfg.Paths.Temp, cfg.Paths.Source),
				fmt.Sprintf("watching %s", cfg.Paths.Source)))
		},
	})
}

// ServeDistCmd implements the 'serve:dist' command.
type ServeDistCmd struct {
	Host string `help:"Listen host (overrides serve.host)"`
	Port int    `short:"p" help:"Listen port (overrides serve.dist_port)"`
}

func (s *ServeDistCmd) Run(g *Global, root *CLI) error {
	project, err := root.Open(func(cfg *config.Config) {
		if s.Host != "" {
			cfg.Serve.Host = s.Host
		}
		if s.Port > 0 {
			cfg.Serve.DistPort = s.Port
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = project.Close() }()

	cfg := project.Env().Config
	return project.ServeDist(g.context(), workflow.ServeOptions{
		Ready: func(url string) {
			_, _ = fmt.Fprint(g.out(), console.ServeBanner("assetflow serve:dist", url,
				fmt.Sprintf("serving %s", cfg.Paths.Output)))
		},
	})
}
