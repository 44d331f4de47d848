package imageopt

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/storage"
)

func uncompressedPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	require.NoError(t, enc.Encode(&buf, img))
	return buf.Bytes()
}

func TestOptimizePNGShrinksLosslessly(t *testing.T) {
	src := uncompressedPNG(t)
	res, err := New(nil, nil).Optimize(context.Background(), "images/red.png", src)
	require.NoError(t, err)

	assert.Less(t, len(res.Data), len(src))
	assert.Positive(t, res.Saved())

	before, err := png.Decode(bytes.NewReader(src))
	require.NoError(t, err)
	after, err := png.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, before.Bounds(), after.Bounds())
	assert.Equal(t, before.At(10, 10), after.At(10, 10))
}

func TestOptimizeSVG(t *testing.T) {
	src := []byte(`<?xml version="1.0"?>
<!-- logo -->
<svg xmlns="http://www.w3.org/2000/svg"   width="10" height="10">
  <rect x="0" y="0" width="10" height="10" fill="#ff0000"/>
</svg>`)
	res, err := New(nil, nil).Optimize(context.Background(), "images/logo.svg", src)
	require.NoError(t, err)
	assert.Less(t, len(res.Data), len(src))
	assert.NotContains(t, string(res.Data), "<!--")
}

func TestOptimizePassesThroughUnknownFormats(t *testing.T) {
	src := []byte{0xff, 0xd8, 0xff, 0xe0, 1, 2, 3}
	res, err := New(nil, nil).Optimize(context.Background(), "images/photo.jpg", src)
	require.NoError(t, err)
	assert.Equal(t, src, res.Data)
	assert.Zero(t, res.Saved())
}

func TestOptimizeMalformedPNGIsInputError(t *testing.T) {
	_, err := New(nil, nil).Optimize(context.Background(), "images/broken.png", []byte("not a png"))
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryInput))
}

func TestOptimizeUsesCache(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	opt := New(store, nil)
	ctx := context.Background()
	src := uncompressedPNG(t)

	first, err := opt.Optimize(ctx, "images/red.png", src)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	exists, err := store.Exists(ctx, Key(src))
	require.NoError(t, err)
	assert.True(t, exists)

	second, err := opt.Optimize(ctx, "images/other-name.png", src)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Data, second.Data)
}

func TestKeyDependsOnContent(t *testing.T) {
	assert.Equal(t, Key([]byte("a")), Key([]byte("a")))
	assert.NotEqual(t, Key([]byte("a")), Key([]byte("b")))
}

type brokenStore struct {
	storage.ObjectStore
	puts int
}

func (s *brokenStore) Get(context.Context, string) (*storage.Object, error) {
	return nil, errors.New("disk unreadable")
}

func (s *brokenStore) Put(_ context.Context, obj *storage.Object) (string, error) {
	s.puts++
	return obj.Hash, nil
}

func TestOptimizeReadFailureLogsAndOptimizes(t *testing.T) {
	var logs bytes.Buffer
	store := &brokenStore{}
	opt := New(store, slog.New(slog.NewTextHandler(&logs, nil)))

	res, err := opt.Optimize(context.Background(), "images/red.png", uncompressedPNG(t))
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, store.puts)
	assert.Contains(t, logs.String(), "Image cache read failed")
	assert.Contains(t, logs.String(), "images/red.png")
}
