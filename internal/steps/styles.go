package steps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/assetflow/internal/cssx"
	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/fsutil"
)

// Styles compiles source/styles/**/*.css: cssx passes, then vendor prefixing and
// minification for the configured engines. Results go to temp/styles and output/styles.
// Stylesheets whose temp copy is newer than the source are skipped.
type Styles struct {
	env     Env
	engines []api.Engine
}

// NewStyles returns the styles step. Unknown engine names are rejected.
func NewStyles(env Env) (*Styles, error) {
	engines, err := ParseEngines(env.Config.Styles.Engines)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid styles.engines").Build()
	}
	return &Styles{env: env, engines: engines}, nil
}

func (s *Styles) Name() string { return "styles" }

func (s *Styles) Run(ctx context.Context) (Result, error) {
	var res Result
	files, err := fsutil.Expand(s.env.Source(), []string{"styles/**/*.css"}, fsutil.ExpandOptions{})
	if err != nil {
		return res, fsError("failed to list stylesheets", s.env.Source("styles"), err)
	}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		src := s.env.Source(filepath.FromSlash(rel))
		tmp := s.env.Temp(filepath.FromSlash(rel))
		stale, err := fsutil.IsStale(src, tmp)
		if err != nil {
			return res, fsError("failed to stat stylesheet", rel, err)
		}
		if !stale {
			res.Skipped++
			continue
		}
		n, err := s.compile(rel, src, tmp)
		if err != nil {
			return res, err
		}
		res.Written++
		res.Bytes += n
	}
	s.env.report(s.Name(), res)
	return res, nil
}

func (s *Styles) compile(rel, src, tmp string) (int64, error) {
	data, err := readFile(src)
	if err != nil {
		return 0, err
	}
	processed, err := cssx.Process(rel, data)
	if err != nil {
		return 0, err
	}

	opts := api.TransformOptions{
		Loader:            api.LoaderCSS,
		Sourcefile:        rel,
		Engines:           s.engines,
		MinifyWhitespace:  true,
		MinifySyntax:      true,
		MinifyIdentifiers: true,
		LogLevel:          api.LogLevelSilent,
	}
	if s.env.Config.Styles.SourceMap {
		opts.Sourcemap = api.SourceMapExternal
	}
	out := api.Transform(string(processed), opts)
	if len(out.Errors) > 0 {
		return 0, esbuildError("invalid stylesheet", rel, out.Errors)
	}

	code := out.Code
	dst := s.env.Output(filepath.FromSlash(rel))
	if s.env.Config.Styles.SourceMap && len(out.Map) > 0 {
		sourceMap, err := withSourcesContent(out.Map, data)
		if err != nil {
			return 0, foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "failed to write source map").
				WithContext("path", rel).
				Build()
		}
		mapName := path.Base(rel) + ".map"
		code = append(code, []byte("/*# sourceMappingURL="+mapName+" */\n")...)
		if _, err := write(sourceMap, tmp+".map", dst+".map"); err != nil {
			return 0, err
		}
	}
	return write(code, dst, tmp)
}

// withSourcesContent embeds the authored stylesheet in sourceMap. cssx keeps every rule
// on its source line, so the mappings esbuild produced for the processed text line up
// with it.
func withSourcesContent(sourceMap, authored []byte) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(sourceMap, &fields); err != nil {
		return nil, err
	}
	content, err := json.Marshal([]string{string(authored)})
	if err != nil {
		return nil, err
	}
	fields["sourcesContent"] = content
	return json.Marshal(fields)
}

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"deno":    api.EngineDeno,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"hermes":  api.EngineHermes,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"node":    api.EngineNode,
	"opera":   api.EngineOpera,
	"rhino":   api.EngineRhino,
	"safari":  api.EngineSafari,
}

// ParseEngines converts browser targets such as "chrome58" or "ios11.2" into esbuild
// engines.
func ParseEngines(targets []string) ([]api.Engine, error) {
	engines := make([]api.Engine, 0, len(targets))
	for _, t := range targets {
		t = strings.ToLower(strings.TrimSpace(t))
		i := strings.IndexFunc(t, unicode.IsDigit)
		if i <= 0 {
			return nil, fmt.Errorf("engine %q: expected <name><version>, e.g. chrome58", t)
		}
		name, ok := engineNames[t[:i]]
		if !ok {
			return nil, fmt.Errorf("engine %q: unknown engine %q", t, t[:i])
		}
		engines = append(engines, api.Engine{Name: name, Version: t[i:]})
	}
	return engines, nil
}

// esbuildError converts the first esbuild message into an input error with position.
func esbuildError(msg, rel string, errs []api.Message) error {
	first := errs[0]
	b := foundationerrors.WrapError(errors.New(first.Text), foundationerrors.CategoryInput, msg).
		UserAction().
		WithContext("path", rel)
	if loc := first.Location; loc != nil {
		b = b.WithContext("line", loc.Line).WithContext("column", loc.Column+1)
	}
	if len(errs) > 1 {
		b = b.WithContext("errors", len(errs))
	}
	return b.Build()
}
