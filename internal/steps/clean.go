package steps

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"slices"

	"git.home.luguber.info/inful/assetflow/internal/logfields"
)

// Clean deletes the temporary tree and every entry of the output tree except the
// reserved names. Missing trees are not an error, so running it twice succeeds.
type Clean struct {
	env Env
}

// NewClean returns the cleaner.
func NewClean(env Env) *Clean { return &Clean{env: env} }

func (s *Clean) Name() string { return "clean" }

func (s *Clean) Run(ctx context.Context) (Result, error) {
	var res Result
	if err := os.RemoveAll(s.env.Temp()); err != nil {
		return res, fsError("failed to remove temporary tree", s.env.Temp(), err)
	}

	entries, err := os.ReadDir(s.env.Output())
	if errors.Is(err, fs.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return res, fsError("failed to read output tree", s.env.Output(), err)
	}
	reserved := s.env.Config.Paths.Reserved
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if slices.Contains(reserved, entry.Name()) {
			res.Skipped++
			continue
		}
		p := s.env.Output(entry.Name())
		if err := os.RemoveAll(p); err != nil {
			return res, fsError("failed to remove output entry", p, err)
		}
		res.Written++
	}
	s.env.logger().Info("Cleaned output", logfields.Path(s.env.Output()), logfields.Files(res.Written), slog.Int("kept", res.Skipped))
	return res, nil
}
