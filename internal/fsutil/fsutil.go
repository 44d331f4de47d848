// Package fsutil holds the filesystem helpers shared by the build steps: glob expansion,
// newer-than checks and atomic-ish file writes.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IsStale reports whether dst must be regenerated from src: dst is missing or src was
// modified after dst.
func IsStale(src, dst string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	dstInfo, err := os.Stat(dst)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return srcInfo.ModTime().After(dstInfo.ModTime()), nil
}

// WriteFile writes data to dst, creating parent directories as needed. The data is
// written to a sibling temp file first and renamed into place so a concurrent reader
// (the dev server) never sees a half-written file.
func WriteFile(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		_ = os.Remove(name)
		return err
	}
	return os.Rename(name, dst)
}

// CopyFile copies src to dst, creating parent directories, and returns the number of
// bytes copied. The file mode of src is preserved.
func CopyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", src)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// ExpandOptions tunes Expand.
type ExpandOptions struct {
	// Dot includes files and directories whose name starts with a dot.
	Dot bool
}

// Expand matches patterns against the files under root and returns the matches as
// sorted, slash-separated paths relative to root. Patterns starting with "!" exclude
// what earlier patterns matched. Only regular files are returned.
func Expand(root string, patterns []string, opts ExpandOptions) ([]string, error) {
	fsys := os.DirFS(root)
	matched := make(map[string]struct{})
	for _, pattern := range patterns {
		if negated, ok := strings.CutPrefix(pattern, "!"); ok {
			for p := range matched {
				if ok, _ := doublestar.Match(negated, p); ok {
					delete(matched, p)
				}
			}
			continue
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !opts.Dot && hasDotSegment(m) {
				continue
			}
			matched[m] = struct{}{}
		}
	}

	out := make([]string, 0, len(matched))
	for p := range matched {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

// Base returns the static directory prefix of a glob pattern ("styles/**/*.css" yields
// "styles"), used to compute output paths relative to the glob base.
func Base(pattern string) string {
	base, _ := doublestar.SplitPattern(pattern)
	if base == "." {
		return ""
	}
	return base
}

// Rel returns p relative to base using slash separators; base "" returns p unchanged.
func Rel(base, p string) string {
	if base == "" {
		return p
	}
	return strings.TrimPrefix(strings.TrimPrefix(p, base), "/")
}

func hasDotSegment(p string) bool {
	for _, seg := range strings.Split(path.Clean(p), "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return true
		}
	}
	return false
}

// Exists reports whether p exists.
func Exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
