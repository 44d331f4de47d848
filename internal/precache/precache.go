// Package precache generates the offline-caching service worker for the output tree.
package precache

import (
	"context"
	"crypto/md5" // #nosec G501 - fingerprint only, not a security boundary
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/dustin/go-humanize"

	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/fsutil"
	"git.home.luguber.info/inful/assetflow/internal/logfields"
)

// DefaultImportScripts are loaded by the worker before anything else. The toolbox
// defines the primitives the runtime caching rules use, so it comes first.
var DefaultImportScripts = []string{
	"scripts/sw/sw-toolbox.js",
	"scripts/sw/runtime-caching.js",
}

// Options configures manifest generation.
type Options struct {
	// RootDir is the served root. Globs are matched below it and manifest URLs are
	// relative to it.
	RootDir       string
	CacheID       string
	ImportScripts []string
	StaticGlobs   []string
	// MaxFileSize skips larger files with a warning. Zero means no limit.
	MaxFileSize int64
	Logger      *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Entry is one precached file.
type Entry struct {
	URL  string
	Hash string
	Size int64
}

// Manifest is the content of a generated service worker.
type Manifest struct {
	CacheID       string
	ImportScripts []string
	Entries       []Entry
	Skipped       []string
}

// TotalSize returns the summed size of all manifest entries.
func (m *Manifest) TotalSize() int64 {
	var n int64
	for _, e := range m.Entries {
		n += e.Size
	}
	return n
}

// Generate fingerprints every file under opts.RootDir matching opts.StaticGlobs. The
// entries are sorted by URL, so unchanged inputs always yield the same manifest.
func Generate(ctx context.Context, opts Options) (*Manifest, error) {
	files, err := fsutil.Expand(opts.RootDir, opts.StaticGlobs, fsutil.ExpandOptions{})
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to expand static globs").
			WithContext("path", opts.RootDir).
			Build()
	}

	imports := opts.ImportScripts
	if imports == nil {
		imports = DefaultImportScripts
	}
	m := &Manifest{CacheID: opts.CacheID, ImportScripts: slices.Clone(imports)}

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		full := filepath.Join(opts.RootDir, filepath.FromSlash(rel))
		info, err := os.Stat(full)
		if err != nil {
			return nil, fsError(full, err)
		}
		if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
			opts.logger().Warn("Skipping file larger than the precache limit",
				logfields.Path(rel),
				slog.String("size", humanize.IBytes(uint64(info.Size()))),
				slog.String("limit", humanize.IBytes(uint64(opts.MaxFileSize))))
			m.Skipped = append(m.Skipped, rel)
			continue
		}
		hash, err := fingerprint(full)
		if err != nil {
			return nil, fsError(full, err)
		}
		m.Entries = append(m.Entries, Entry{URL: rel, Hash: hash, Size: info.Size()})
	}

	slices.SortFunc(m.Entries, func(a, b Entry) int {
		switch {
		case a.URL < b.URL:
			return -1
		case a.URL > b.URL:
			return 1
		default:
			return 0
		}
	})
	return m, nil
}

// Write generates the manifest and writes the rendered worker to path.
func Write(ctx context.Context, path string, opts Options) (*Manifest, error) {
	m, err := Generate(ctx, opts)
	if err != nil {
		return nil, err
	}
	data, err := Render(m)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "failed to render service worker").Build()
	}
	if err := fsutil.WriteFile(path, data); err != nil {
		return nil, fsError(path, err)
	}
	opts.logger().Info("Generated service worker",
		logfields.Path(path),
		logfields.Files(len(m.Entries)),
		slog.String("size", humanize.IBytes(uint64(m.TotalSize()))))
	return m, nil
}

func fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := md5.New() // #nosec G401 - fingerprint only
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func fsError(path string, err error) error {
	return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "service worker generation failed").
		WithContext("path", path).
		Build()
}
