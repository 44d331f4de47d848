package devserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherEmitsRelativePaths(t *testing.T) {
	root := t.TempDir()
	styles := filepath.Join(root, "app", "styles")
	require.NoError(t, os.MkdirAll(styles, 0o755))

	w, err := NewWatcher(root, []string{filepath.Join(root, "app")}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(styles, ".a.css.swp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(styles, "a.css"), []byte("body{}"), 0o644))

	select {
	case p := <-w.Changes():
		assert.Equal(t, "app/styles/a.css", p)
	case <-time.After(3 * time.Second):
		t.Fatal("no change event")
	}
}

func TestWatcherResolvesRelativeDirsAgainstRoot(t *testing.T) {
	root := t.TempDir()
	scripts := filepath.Join(root, "app", "scripts")
	require.NoError(t, os.MkdirAll(scripts, 0o755))
	t.Chdir(t.TempDir())

	w, err := NewWatcher(root, []string{"app"}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(scripts, "main.js"), []byte("x"), 0o644))

	select {
	case p := <-w.Changes():
		assert.Equal(t, "app/scripts/main.js", p)
	case <-time.After(3 * time.Second):
		t.Fatal("no change event")
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	_, err := NewWatcher(t.TempDir(), []string{"/does/not/exist"}, nil)
	require.Error(t, err)
}

func TestShouldIgnore(t *testing.T) {
	assert.True(t, shouldIgnore("/tmp/.hidden.css"))
	assert.True(t, shouldIgnore("/tmp/#foo#"))
	assert.True(t, shouldIgnore("/tmp/foo.swp"))
	assert.True(t, shouldIgnore("/tmp/main.js~"))
	assert.False(t, shouldIgnore("/tmp/main.css"))
}
