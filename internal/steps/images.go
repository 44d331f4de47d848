package steps

import (
	"context"
	"path/filepath"

	"git.home.luguber.info/inful/assetflow/internal/fsutil"
	"git.home.luguber.info/inful/assetflow/internal/imageopt"
	"git.home.luguber.info/inful/assetflow/internal/logfields"
)

// Images optimizes source/images/**/* into output/images.
type Images struct {
	env       Env
	optimizer *imageopt.Optimizer
}

// NewImages returns the images step. optimizer may carry a persistent cache; nil uses an
// uncached optimizer.
func NewImages(env Env, optimizer *imageopt.Optimizer) *Images {
	if optimizer == nil {
		optimizer = imageopt.New(nil, env.logger())
	}
	return &Images{env: env, optimizer: optimizer}
}

func (s *Images) Name() string { return "images" }

func (s *Images) Run(ctx context.Context) (Result, error) {
	var res Result
	files, err := fsutil.Expand(s.env.Source(), []string{"images/**/*"}, fsutil.ExpandOptions{})
	if err != nil {
		return res, fsError("failed to list images", s.env.Source("images"), err)
	}

	var saved int64
	cached := 0
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		src := s.env.Source(filepath.FromSlash(rel))
		data, err := readFile(src)
		if err != nil {
			return res, err
		}
		opt, err := s.optimizer.Optimize(ctx, rel, data)
		if err != nil {
			return res, err
		}
		n, err := write(opt.Data, s.env.Output(filepath.FromSlash(rel)))
		if err != nil {
			return res, err
		}
		res.Written++
		res.Bytes += n
		saved += opt.Saved()
		if opt.Cached {
			cached++
		}
	}

	s.env.logger().Debug("Images optimized", logfields.Files(len(files)), logfields.Saved(saved), logfields.Status(cachedStatus(cached, len(files))))
	s.env.report(s.Name(), res)
	return res, nil
}

func cachedStatus(cached, total int) string {
	switch {
	case total == 0:
		return "empty"
	case cached == total:
		return "cached"
	case cached == 0:
		return "optimized"
	default:
		return "partial"
	}
}
