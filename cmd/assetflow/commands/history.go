package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/assetflow/internal/console"
	"git.home.luguber.info/inful/assetflow/internal/fsutil"
	"git.home.luguber.info/inful/assetflow/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" default:"10" help:"Number of builds to list"`
	Build string `arg:"" optional:"" help:"Show the tasks of one build"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	path := cfg.History.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(root.Dir, path)
	}
	if !cfg.History.Enabled || !fsutil.Exists(path) {
		_, err := fmt.Fprint(g.out(), console.History(nil, time.Now()))
		return err
	}

	store, err := history.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if h.Build != "" {
		b, err := store.Get(g.context(), h.Build)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(g.out(), console.BuildDetail(*b))
		return err
	}
	builds, err := store.Recent(g.context(), h.Limit)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(g.out(), console.History(builds, time.Now()))
	return err
}
