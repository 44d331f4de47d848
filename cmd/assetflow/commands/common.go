// Package commands implements the assetflow CLI commands.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/assetflow/internal/config"
	"git.home.luguber.info/inful/assetflow/internal/workflow"
)

// Global is the state shared by every command.
type Global struct {
	Ctx context.Context
	Out io.Writer
}

func (g *Global) context() context.Context {
	if g.Ctx == nil {
		return context.Background()
	}
	return g.Ctx
}

func (g *Global) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file (.yaml, .yml or .toml), relative to --dir" default:"assetflow.yaml"`
	Dir     string           `short:"C" name:"dir" help:"Project root directory" default:"." type:"existingdir"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build     BuildCmd     `cmd:"" help:"Run the production build into the output tree"`
	Serve     ServeCmd     `cmd:"" help:"Serve the source tree with live reload"`
	ServeDist ServeDistCmd `cmd:"" name:"serve:dist" help:"Build, then serve the output tree"`
	Clean     CleanCmd     `cmd:"" help:"Remove the temp tree and the output tree except reserved entries"`
	Init      InitCmd      `cmd:"" help:"Write an example configuration file"`
	Graph     GraphCmd     `cmd:"" help:"Print a plan's tasks in execution order"`
	History   HistoryCmd   `cmd:"" help:"List recent builds"`
	Publish   PublishCmd   `cmd:"" help:"Commit the output tree into its git repository"`

	cfg *config.Config
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	c.setupLogging(config.LogLevelInfo, config.LogFormatText)
	return nil
}

func (c *CLI) setupLogging(level config.LogLevel, format config.LogFormat) {
	lvl := level.SlogLevel()
	if c.Verbose {
		lvl = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// ConfigPath resolves --config against --dir.
func (c *CLI) ConfigPath() string {
	if filepath.IsAbs(c.Config) {
		return c.Config
	}
	return filepath.Join(c.Dir, c.Config)
}

// LoadConfig loads the configuration once and applies its logging settings.
func (c *CLI) LoadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.ConfigPath())
	if err != nil {
		return nil, err
	}
	c.setupLogging(cfg.Logging.Level, cfg.Logging.Format)
	c.cfg = cfg
	return cfg, nil
}

// Open loads the configuration and opens the project at --dir. mutate may adjust
// the configuration first.
func (c *CLI) Open(mutate func(*config.Config), opts ...workflow.Option) (*workflow.Project, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(cfg)
	}
	return workflow.Open(c.Dir, cfg, append([]workflow.Option{workflow.WithLogger(slog.Default())}, opts...)...)
}
