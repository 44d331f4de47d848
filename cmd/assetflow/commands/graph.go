package commands

import (
	"fmt"

	"git.home.luguber.info/inful/assetflow/internal/console"
	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/workflow"
)

// GraphCmd implements the 'graph' command.
type GraphCmd struct {
	Plan string `arg:"" optional:"" default:"build" help:"Plan to print (build, serve, serve:dist, clean)"`
}

func (c *GraphCmd) Run(g *Global, root *CLI) error {
	project, err := root.Open(nil, workflow.WithoutHistory(), workflow.WithoutNotify())
	if err != nil {
		return err
	}
	defer func() { _ = project.Close() }()

	plan, ok := project.Plans().Lookup(c.Plan)
	if !ok {
		return foundationerrors.NotFoundError("unknown plan").
			WithContext("plan", c.Plan).
			WithContext("available", project.Plans().Names()).
			Build()
	}
	_, err = fmt.Fprint(g.out(), console.Graph(plan))
	return err
}
