// Package steps implements the asset transform steps of a build: images, copy, styles,
// scripts and html, plus the cleaner and the service worker steps.
//
// Every step reads from the source tree and writes to the temporary and/or output tree
// of one project. Steps are independent of the orchestrator; internal/workflow registers
// them as tasks.
package steps

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"git.home.luguber.info/inful/assetflow/internal/config"
	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/fsutil"
	"git.home.luguber.info/inful/assetflow/internal/logfields"
	"git.home.luguber.info/inful/assetflow/internal/metrics"
)

// Result summarizes one step run.
type Result struct {
	Written int   // files written
	Skipped int   // files left untouched because they were up to date
	Bytes   int64 // bytes written to the output tree
}

// Step is a unit of asset work.
type Step interface {
	Name() string
	Run(ctx context.Context) (Result, error)
}

// Env is the project a step operates on.
type Env struct {
	Root     string // project root; the configured paths are relative to it
	Config   *config.Config
	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// NewEnv returns an Env with a default logger and a no-op recorder.
func NewEnv(root string, cfg *config.Config) Env {
	return Env{Root: root, Config: cfg, Logger: slog.Default(), Recorder: metrics.NoopRecorder{}}
}

// Source returns the source tree path, optionally joined with elem.
func (e Env) Source(elem ...string) string { return e.join(e.Config.Paths.Source, elem) }

// Temp returns the temporary tree path, optionally joined with elem.
func (e Env) Temp(elem ...string) string { return e.join(e.Config.Paths.Temp, elem) }

// Output returns the output tree path, optionally joined with elem.
func (e Env) Output(elem ...string) string { return e.join(e.Config.Paths.Output, elem) }

// Path resolves a project-relative path.
func (e Env) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.Root, filepath.FromSlash(p))
}

func (e Env) join(tree string, elem []string) string {
	parts := append([]string{e.Root, filepath.FromSlash(tree)}, elem...)
	return filepath.Join(parts...)
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e Env) recorder() metrics.Recorder {
	if e.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return e.Recorder
}

// report logs the aggregate size line of a step and feeds the output byte counter.
func (e Env) report(title string, res Result) {
	e.logger().Info("Step output",
		logfields.Task(title),
		logfields.Files(res.Written),
		slog.Int("skipped", res.Skipped),
		logfields.Bytes(res.Bytes),
		slog.String("size", humanize.IBytes(uint64(res.Bytes))))
	if res.Bytes > 0 {
		e.recorder().AddOutputBytes(title, res.Bytes)
	}
}

// write stores data at every destination and returns the bytes written to the first one.
func write(data []byte, dsts ...string) (int64, error) {
	for _, dst := range dsts {
		if err := writeFile(dst, data); err != nil {
			return 0, err
		}
	}
	return int64(len(data)), nil
}

func writeFile(dst string, data []byte) error {
	if err := fsutil.WriteFile(dst, data); err != nil {
		return fsError("failed to write file", dst, err)
	}
	return nil
}

func readFile(p string) ([]byte, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fsError("failed to read file", p, err)
	}
	return data, nil
}

func fsError(msg, path string, err error) error {
	return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, msg).
		WithContext("path", path).
		Build()
}
