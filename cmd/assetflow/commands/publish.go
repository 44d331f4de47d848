package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/assetflow/internal/git"
)

// PublishCmd implements the 'publish' command.
type PublishCmd struct {
	Message string `short:"m" help:"Commit message (default: Build <timestamp>)"`
	Init    bool   `help:"Initialize the output repository when missing"`
	Author  string `help:"Commit author name"`
	Email   string `help:"Commit author email"`
}

func (p *PublishCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	dir := filepath.Join(root.Dir, cfg.Paths.Output)
	res, err := git.Publish(dir, git.Options{
		Message:     p.Message,
		Init:        p.Init,
		AuthorName:  p.Author,
		AuthorEmail: p.Email,
		Logger:      slog.Default(),
	})
	if err != nil {
		return err
	}
	if res.Clean {
		_, err = fmt.Fprintln(g.out(), "nothing to publish")
		return err
	}
	_, err = fmt.Fprintf(g.out(), "published %d changed files as %s\n", res.Changed, res.Commit[:8])
	return err
}
