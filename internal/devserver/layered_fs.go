package devserver

import (
	"errors"
	"io/fs"
)

// LayeredFS is an ordered list of file systems. The first layer containing a path wins,
// so the temporary tree shadows the source tree.
type LayeredFS []fs.FS

// Open implements fs.FS.
func (l LayeredFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	for _, layer := range l {
		f, err := layer.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}
