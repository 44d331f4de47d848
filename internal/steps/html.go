package steps

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"

	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/fsutil"
	"git.home.luguber.info/inful/assetflow/internal/logfields"
	"git.home.luguber.info/inful/assetflow/internal/useref"
)

// HTML rewrites the marker blocks of every source document and minifies the result into
// the output tree. Block targets are looked up in the temp tree, then the source tree.
type HTML struct {
	env      Env
	minifier *minify.M
}

// NewHTML returns the html step.
func NewHTML(env Env) *HTML {
	return &HTML{env: env, minifier: NewMinifier()}
}

// NewMinifier returns the markup minifier: comments and redundant whitespace, attribute
// quotes, default and boolean attribute values and optional tags are removed. Inline
// stylesheets, scripts and SVG are minified too.
func NewMinifier() *minify.M {
	m := minify.New()
	m.Add("text/html", &html.Minifier{})
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	return m
}

func (s *HTML) Name() string { return "html" }

func (s *HTML) Run(ctx context.Context) (Result, error) {
	var res Result
	files, err := fsutil.Expand(s.env.Source(), []string{"**/*.html"}, fsutil.ExpandOptions{})
	if err != nil {
		return res, fsError("failed to list documents", s.env.Source(), err)
	}
	opts := useref.Options{SearchPath: []string{s.env.Temp(), s.env.Source()}, BaseDir: s.env.Root}

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		data, err := readFile(s.env.Source(filepath.FromSlash(rel)))
		if err != nil {
			return res, err
		}
		out, err := useref.Process(rel, data, opts)
		if err != nil {
			return res, err
		}
		for _, missing := range out.Missing {
			s.env.logger().Warn("Build block target not found", logfields.Path(rel), slog.String("target", missing))
		}

		doc := out.HTML
		if s.env.Config.HTML.Minify {
			doc, err = s.minifier.Bytes("text/html", doc)
			if err != nil {
				return res, foundationerrors.WrapError(err, foundationerrors.CategoryInput, "failed to minify html").
					UserAction().
					WithContext("path", rel).
					Build()
			}
		}
		n, err := write(doc, s.env.Output(filepath.FromSlash(rel)))
		if err != nil {
			return res, err
		}
		res.Written++
		res.Bytes += n
		s.env.logger().Debug("Document written", logfields.Path(rel), logfields.Bytes(n))
	}
	s.env.report(s.Name(), res)
	return res, nil
}
