package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetflow/internal/foundation/errors"
)

func writeOutput(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func fixedNow() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

func testOptions() Options {
	return Options{AuthorName: "Tester", AuthorEmail: "tester@example.com", Now: fixedNow}
}

func TestPublishRequiresRepository(t *testing.T) {
	dir := t.TempDir()
	writeOutput(t, dir, map[string]string{"index.html": "<p>hi</p>"})

	_, err := Publish(dir, testOptions())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryGit))
}

func TestPublishInitCommitsEverything(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dist")
	writeOutput(t, dir, map[string]string{
		"index.html":          "<p>hi</p>",
		"styles/main.css":     "body{}",
		"scripts/main.min.js": "console.log(1)",
	})

	opts := testOptions()
	opts.Init = true
	res, err := Publish(dir, opts)
	require.NoError(t, err)
	assert.False(t, res.Clean)
	assert.Equal(t, 3, res.Changed)

	head, err := ReadRepoHead(dir)
	require.NoError(t, err)
	assert.Equal(t, res.Commit, head)

	repo, err := gogit.PlainOpen(dir)
	require.NoError(t, err)
	ref, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	assert.Equal(t, "Build 2026-03-04T05:06:07Z", commit.Message)
	assert.Equal(t, "Tester", commit.Author.Name)
}

func TestPublishCleanTreeIsNoop(t *testing.T) {
	dir := t.TempDir()
	writeOutput(t, dir, map[string]string{"index.html": "a"})
	opts := testOptions()
	opts.Init = true

	first, err := Publish(dir, opts)
	require.NoError(t, err)

	second, err := Publish(dir, opts)
	require.NoError(t, err)
	assert.True(t, second.Clean)
	assert.Empty(t, second.Commit)

	head, err := ReadRepoHead(dir)
	require.NoError(t, err)
	assert.Equal(t, first.Commit, head)
}

func TestPublishStagesDeletions(t *testing.T) {
	dir := t.TempDir()
	writeOutput(t, dir, map[string]string{"index.html": "a", "old.html": "b"})
	opts := testOptions()
	opts.Init = true
	_, err := Publish(dir, opts)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "old.html")))
	opts.Message = "remove old page"
	res, err := Publish(dir, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Changed)

	repo, err := gogit.PlainOpen(dir)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	status, err := wt.Status()
	require.NoError(t, err)
	assert.True(t, status.IsClean())
}

func TestReadRepoHeadEmptyRepository(t *testing.T) {
	dir := t.TempDir()
	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	head, err := ReadRepoHead(dir)
	require.NoError(t, err)
	assert.Empty(t, head)
}
