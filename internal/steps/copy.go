package steps

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"git.home.luguber.info/inful/assetflow/internal/fsutil"
	"git.home.luguber.info/inful/assetflow/internal/logfields"
)

// Copy copies the top-level static files of the source tree (everything but HTML,
// dotfiles included) and the configured extra files into the output root.
type Copy struct {
	env Env
}

// NewCopy returns the copy step.
func NewCopy(env Env) *Copy { return &Copy{env: env} }

func (s *Copy) Name() string { return "copy" }

func (s *Copy) Run(ctx context.Context) (Result, error) {
	var res Result
	files, err := fsutil.Expand(s.env.Source(), []string{"*", "!*.html"}, fsutil.ExpandOptions{Dot: true})
	if err != nil {
		return res, fsError("failed to list static files", s.env.Source(), err)
	}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		n, err := fsutil.CopyFile(s.env.Source(rel), s.env.Output(rel))
		if err != nil {
			return res, fsError("failed to copy file", rel, err)
		}
		res.Written++
		res.Bytes += n
	}

	for _, extra := range s.env.Config.Copy.Extra {
		src := s.env.Path(extra)
		n, err := fsutil.CopyFile(src, s.env.Output(filepath.Base(src)))
		if errors.Is(err, fs.ErrNotExist) {
			s.env.logger().Warn("Extra file not found, skipping", logfields.Path(extra))
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fsError("failed to copy file", extra, err)
		}
		res.Written++
		res.Bytes += n
	}

	s.env.report(s.Name(), res)
	return res, nil
}
