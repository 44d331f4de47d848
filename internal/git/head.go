package git

import (
	"errors"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ReadRepoHead returns the HEAD commit hash of the repository at dir, or "" for a
// repository without commits.
func ReadRepoHead(dir string) (string, error) {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return "", ClassifyGitError(err, "open", dir)
	}
	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", ClassifyGitError(err, "head", dir)
	}
	return ref.Hash().String(), nil
}
