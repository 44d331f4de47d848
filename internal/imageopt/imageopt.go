// Package imageopt losslessly shrinks images and caches the results by content.
package imageopt

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image/gif"
	"image/png"
	"log/slog"
	"path"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"

	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/logfields"
	"git.home.luguber.info/inful/assetflow/internal/storage"
)

// Signature identifies the optimizer settings. It is part of every cache key, so
// changing how images are optimized invalidates earlier results.
const Signature = "imageopt/v1;png=best;gif=reencode;svg=minify"

// Result describes one optimized image.
type Result struct {
	Data     []byte
	Original int64
	Cached   bool
}

// Saved returns the number of bytes saved by optimization.
func (r Result) Saved() int64 {
	return r.Original - int64(len(r.Data))
}

// Optimizer optimizes images, consulting a content-keyed store first.
type Optimizer struct {
	store    storage.ObjectStore
	minifier *minify.M
	logger   *slog.Logger
}

// New creates an optimizer. A nil store disables caching.
func New(store storage.ObjectStore, logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	m := minify.New()
	m.AddFunc("image/svg+xml", svg.Minify)
	return &Optimizer{store: store, minifier: m, logger: logger}
}

// Key returns the cache key for data: sha256 over the bytes and the optimizer signature.
func Key(data []byte) string {
	h := sha256.New()
	h.Write(data)
	h.Write([]byte(Signature))
	return hex.EncodeToString(h.Sum(nil))
}

// Optimize returns the optimized rendition of the image named name. Formats without a
// lossless optimizer (JPEG, WebP, ICO) are returned unchanged. The result is never
// larger than the input.
func (o *Optimizer) Optimize(ctx context.Context, name string, data []byte) (Result, error) {
	res := Result{Original: int64(len(data))}
	key := Key(data)

	if o.store != nil {
		obj, err := o.store.Get(ctx, key)
		switch {
		case err == nil:
			res.Data, res.Cached = obj.Data, true
			return res, nil
		case !storage.IsNotFound(err):
			o.logger.Warn("Image cache read failed", logfields.Path(name), logfields.Error(err))
		}
	}

	out, err := o.optimize(name, data)
	if err != nil {
		return res, err
	}
	if len(out) >= len(data) {
		out = data
	}
	res.Data = out

	if o.store != nil {
		_, err := o.store.Put(ctx, &storage.Object{
			Hash:     key,
			Type:     storage.ObjectTypeOptimizedImage,
			Data:     out,
			Metadata: storage.Metadata{Custom: map[string]string{"source": name}},
		})
		if err != nil {
			return res, foundationerrors.WrapError(err, foundationerrors.CategoryStorage, "failed to cache optimized image").
				WithContext("path", name).
				Build()
		}
	}
	return res, nil
}

func (o *Optimizer) optimize(name string, data []byte) ([]byte, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, malformed(name, err)
		}
		var buf bytes.Buffer
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, malformed(name, err)
		}
		return buf.Bytes(), nil
	case ".gif":
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return nil, malformed(name, err)
		}
		var buf bytes.Buffer
		if err := gif.EncodeAll(&buf, g); err != nil {
			return nil, malformed(name, err)
		}
		return buf.Bytes(), nil
	case ".svg":
		out, err := o.minifier.Bytes("image/svg+xml", data)
		if err != nil {
			return nil, malformed(name, err)
		}
		return out, nil
	default:
		return data, nil
	}
}

func malformed(name string, err error) error {
	return foundationerrors.WrapError(err, foundationerrors.CategoryInput, "invalid image").
		UserAction().
		WithContext("path", name).
		Build()
}
