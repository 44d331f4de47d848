package git

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/logfields"
)

// Options configures Publish.
type Options struct {
	// Message is the commit message. Empty means "Build <RFC3339 timestamp>".
	Message string
	// Init creates the repository when the directory has none.
	Init bool
	// AuthorName and AuthorEmail override the global git identity.
	AuthorName  string
	AuthorEmail string
	Logger      *slog.Logger
	// Now is used for the author time and the default message.
	Now func() time.Time
}

// Result describes a publish.
type Result struct {
	Commit  string
	Changed int
	// Clean is set when the tree had nothing to commit.
	Clean bool
}

// Publish stages every change in dir and commits it.
func Publish(dir string, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	repo, err := open(dir, opts.Init, logger)
	if err != nil {
		return Result{}, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return Result{}, ClassifyGitError(err, "worktree", dir)
	}
	status, err := wt.Status()
	if err != nil {
		return Result{}, ClassifyGitError(err, "status", dir)
	}
	if status.IsClean() {
		logger.Info("Nothing to publish", logfields.Path(dir))
		return Result{Clean: true}, nil
	}

	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return Result{}, ClassifyGitError(err, "add", dir)
	}

	when := now()
	msg := opts.Message
	if msg == "" {
		msg = "Build " + when.Format(time.RFC3339)
	}
	name, email := identity(repo, opts)
	hash, err := wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: name, Email: email, When: when},
	})
	if err != nil {
		return Result{}, ClassifyGitError(err, "commit", dir)
	}

	res := Result{Commit: hash.String(), Changed: len(status)}
	logger.Info("Published output",
		logfields.Path(dir),
		logfields.Files(res.Changed),
		slog.String("commit", res.Commit[:8]))
	return res, nil
}

func open(dir string, create bool, logger *slog.Logger) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpen(dir)
	if err == nil {
		return repo, nil
	}
	if !stderrors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, ClassifyGitError(err, "open", dir)
	}
	if !create {
		return nil, errors.GitError("output directory is not a git repository").
			WithContext("dir", dir).
			WithContext("hint", "run publish with --init to create one").
			UserAction().
			Build()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", dir).
			Build()
	}
	repo, err = gogit.PlainInit(dir, false)
	if err != nil {
		return nil, ClassifyGitError(err, "init", dir)
	}
	logger.Info("Initialized output repository", logfields.Path(dir))
	return repo, nil
}

// identity resolves the commit author: explicit options, then the repository and
// global git config, then a fixed fallback.
func identity(repo *gogit.Repository, opts Options) (string, string) {
	name, email := opts.AuthorName, opts.AuthorEmail
	for _, scope := range []gitconfig.Scope{gitconfig.LocalScope, gitconfig.GlobalScope} {
		if name != "" && email != "" {
			break
		}
		cfg, err := repo.ConfigScoped(scope)
		if err != nil {
			continue
		}
		if name == "" {
			name = cfg.User.Name
		}
		if email == "" {
			email = cfg.User.Email
		}
	}
	if name == "" {
		name = "assetflow"
	}
	if email == "" {
		email = fmt.Sprintf("%s@localhost", name)
	}
	return name, email
}
