package steps

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"git.home.luguber.info/inful/assetflow/internal/fsutil"
	"git.home.luguber.info/inful/assetflow/internal/precache"
)

// ServiceWorkerFile is the generated worker, relative to the output root.
const ServiceWorkerFile = "service-worker.js"

// swScriptsDir is where the worker's imported scripts are staged, relative to the output root.
const swScriptsDir = "scripts/sw"

// importScripts returns the output URLs of the staged toolbox and rules, toolbox first.
func (e Env) importScripts() []string {
	sw := e.Config.ServiceWorker
	return []string{
		path.Join(swScriptsDir, filepath.Base(filepath.FromSlash(sw.Toolbox))),
		path.Join(swScriptsDir, filepath.Base(filepath.FromSlash(sw.Rules))),
	}
}

// CopySWScripts copies the service worker toolbox and the runtime caching rules into
// output/scripts/sw, where the generated worker imports them from.
type CopySWScripts struct {
	env Env
}

// NewCopySWScripts returns the copy-sw-scripts step.
func NewCopySWScripts(env Env) *CopySWScripts { return &CopySWScripts{env: env} }

func (s *CopySWScripts) Name() string { return "copy-sw-scripts" }

func (s *CopySWScripts) Run(ctx context.Context) (Result, error) {
	var res Result
	sw := s.env.Config.ServiceWorker
	for i, src := range []string{sw.Toolbox, sw.Rules} {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		n, err := fsutil.CopyFile(s.env.Path(src), s.env.Output(filepath.FromSlash(s.env.importScripts()[i])))
		if err != nil {
			return res, fsError("failed to copy service worker script", src, err)
		}
		res.Written++
		res.Bytes += n
	}
	s.env.report(s.Name(), res)
	return res, nil
}

// ServiceWorker generates output/service-worker.js precaching the static files of the
// output tree.
type ServiceWorker struct {
	env Env
}

// NewServiceWorker returns the generate-service-worker step.
func NewServiceWorker(env Env) *ServiceWorker { return &ServiceWorker{env: env} }

func (s *ServiceWorker) Name() string { return "generate-service-worker" }

// Options returns the generator options derived from the project configuration.
func (s *ServiceWorker) Options() precache.Options {
	sw := s.env.Config.ServiceWorker
	return precache.Options{
		RootDir:       s.env.Output(),
		CacheID:       s.env.Config.ProjectName(s.env.Root),
		ImportScripts: s.env.importScripts(),
		StaticGlobs:   sw.StaticGlobs,
		MaxFileSize:   sw.MaxFileSize,
		Logger:        s.env.logger(),
	}
}

func (s *ServiceWorker) Run(ctx context.Context) (Result, error) {
	var res Result
	dst := s.env.Output(ServiceWorkerFile)
	if _, err := precache.Write(ctx, dst, s.Options()); err != nil {
		return res, err
	}
	res.Written = 1
	if info, err := os.Stat(dst); err == nil {
		res.Bytes = info.Size()
	}
	s.env.report(s.Name(), res)
	return res, nil
}
