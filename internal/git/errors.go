package git

import (
	"strings"

	"git.home.luguber.info/inful/assetflow/internal/foundation/errors"
)

// ClassifyGitError translates go-git errors into ClassifiedErrors.
func ClassifyGitError(err error, op, dir string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	builder := errors.GitError("git " + op + " failed").
		WithCause(err).
		WithContext("op", op).
		WithContext("dir", dir)

	l := strings.ToLower(err.Error())
	switch {
	case strings.Contains(l, "permission denied") || strings.Contains(l, "read-only file system"):
		builder.WithContext("hint", "check permissions of the output directory")
	case strings.Contains(l, "index") && strings.Contains(l, "lock"):
		builder.WithContext("hint", "remove a stale index.lock left by another git process").UserAction()
	}
	return builder.Build()
}
