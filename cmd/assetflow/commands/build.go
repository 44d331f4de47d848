package commands

import (
	"fmt"

	"git.home.luguber.info/inful/assetflow/internal/console"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Quiet bool `short:"q" help:"Do not print the task summary"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	project, err := root.Open(nil)
	if err != nil {
		return err
	}
	defer func() { _ = project.Close() }()

	report, err := project.Build(g.context())
	if report != nil && !b.Quiet {
		_, _ = fmt.Fprint(g.out(), console.BuildSummary(report))
	}
	return err
}

// CleanCmd implements the 'clean' command.
type CleanCmd struct{}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	project, err := root.Open(nil)
	if err != nil {
		return err
	}
	defer func() { _ = project.Close() }()

	_, err = project.Clean(g.context())
	return err
}
