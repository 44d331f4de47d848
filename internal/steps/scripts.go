package steps

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/assetflow/internal/config"
	"git.home.luguber.info/inful/assetflow/internal/fsutil"
	"git.home.luguber.info/inful/assetflow/internal/logfields"
)

// MinifiedScript is the bundle name in temp/scripts and output/scripts.
const MinifiedScript = "main.min.js"

// Scripts transpiles the entry script into temp/scripts (with an inline source map) and
// bundles, minifies and writes main.min.js plus its map into temp/scripts and
// output/scripts. Legal comments (/*!, @license, @preserve) are kept.
//
// The step is skipped when no script under source/scripts is newer than the
// transpiled entry in temp/scripts.
type Scripts struct {
	env    Env
	target api.Target
}

// NewScripts returns the scripts step.
func NewScripts(env Env) *Scripts {
	return &Scripts{env: env, target: esTarget(env.Config.Scripts.Target)}
}

func (s *Scripts) Name() string { return "scripts" }

func (s *Scripts) Run(ctx context.Context) (Result, error) {
	var res Result
	entry := s.env.Config.Scripts.Entry
	entryPath := s.abs(s.env.Source("scripts", filepath.FromSlash(entry)))
	transpiled := s.env.Temp("scripts", filepath.FromSlash(entry))
	if !fsutil.Exists(entryPath) {
		s.env.logger().Warn("Script entry not found, skipping", logfields.Path(entryPath))
		s.env.report(s.Name(), res)
		return res, nil
	}

	stale, err := s.stale(transpiled)
	if err != nil {
		return res, err
	}
	if !stale {
		res.Skipped++
		s.env.report(s.Name(), res)
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	data, err := readFile(entryPath)
	if err != nil {
		return res, err
	}
	rel := "scripts/" + entry
	tr := api.Transform(string(data), api.TransformOptions{
		Loader:     api.LoaderJS,
		Sourcefile: rel,
		Target:     s.target,
		Sourcemap:  api.SourceMapInline,
		LogLevel:   api.LogLevelSilent,
	})
	if len(tr.Errors) > 0 {
		return res, esbuildError("invalid script", rel, tr.Errors)
	}

	opts := api.BuildOptions{
		EntryPoints:       []string{entryPath},
		Outfile:           s.abs(s.env.Output("scripts", MinifiedScript)),
		AbsWorkingDir:     s.abs(s.env.Root),
		Bundle:            true,
		Write:             false,
		Target:            s.target,
		MinifyWhitespace:  true,
		MinifySyntax:      true,
		MinifyIdentifiers: true,
		LegalComments:     api.LegalCommentsInline,
		LogLevel:          api.LogLevelSilent,
	}
	if s.env.Config.Scripts.SourceMap {
		opts.Sourcemap = api.SourceMapLinked
	}
	out := api.Build(opts)
	if len(out.Errors) > 0 {
		return res, esbuildError("invalid script", rel, out.Errors)
	}

	for _, f := range out.OutputFiles {
		name := filepath.Base(f.Path)
		n, err := write(f.Contents, s.env.Output("scripts", name), s.env.Temp("scripts", name))
		if err != nil {
			return res, err
		}
		res.Written++
		res.Bytes += n
	}
	// Written last: its modification time is what the staleness check compares against.
	if err := writeFile(transpiled, tr.Code); err != nil {
		return res, err
	}
	res.Written++

	s.env.report(s.Name(), res)
	return res, nil
}

// stale reports whether any script below source/scripts is newer than dst.
func (s *Scripts) stale(dst string) (bool, error) {
	files, err := fsutil.Expand(s.env.Source(), []string{"scripts/**/*.js", "!scripts/sw/**"}, fsutil.ExpandOptions{})
	if err != nil {
		return false, fsError("failed to list scripts", s.env.Source("scripts"), err)
	}
	if len(files) == 0 {
		return true, nil
	}
	for _, rel := range files {
		stale, err := fsutil.IsStale(s.env.Source(filepath.FromSlash(rel)), dst)
		if err != nil {
			return false, fsError("failed to stat script", rel, err)
		}
		if stale {
			return true, nil
		}
	}
	return false, nil
}

// abs makes p absolute; esbuild resolves relative paths against AbsWorkingDir.
func (s *Scripts) abs(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

func esTarget(t config.ScriptTarget) api.Target {
	switch config.ScriptTarget(strings.ToLower(string(t))) {
	case config.ScriptTargetES2017:
		return api.ES2017
	case config.ScriptTargetES2020:
		return api.ES2020
	case config.ScriptTargetESNext:
		return api.ESNext
	default:
		return api.ES2015
	}
}
