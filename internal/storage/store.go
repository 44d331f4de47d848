// Package storage provides the content-addressable cache used to skip re-optimizing
// unchanged assets across runs.
package storage

import (
	"context"
	"errors"
	"time"
)

// ObjectStore provides content-addressable storage for build artifacts.
// Objects are stored by their content hash, enabling deduplication and
// cache invalidation by key.
type ObjectStore interface {
	// Put stores an object and returns its key. When obj.Hash is set it is used as the
	// key; otherwise the SHA-256 of the data is. An existing object is not rewritten.
	Put(ctx context.Context, obj *Object) (hash string, err error)

	// Get retrieves an object by its key.
	// Returns ErrNotFound if the object doesn't exist.
	Get(ctx context.Context, hash string) (*Object, error)

	// Exists checks if an object with the given key exists.
	Exists(ctx context.Context, hash string) (bool, error)

	// Delete removes an object by its key.
	// Returns ErrNotFound if the object doesn't exist.
	Delete(ctx context.Context, hash string) error

	// List returns all object keys matching the given type filter.
	// If objectType is empty, returns all objects.
	List(ctx context.Context, objectType ObjectType) ([]string, error)

	// Prune removes every object not accessed since cutoff and returns how many it removed.
	Prune(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// Object represents a stored artifact with its metadata.
type Object struct {
	// Hash is the object key.
	Hash string

	// Type identifies the kind of object.
	Type ObjectType

	// Size is the size of the data in bytes.
	Size int64

	// Data is the object content.
	Data []byte

	// Metadata stores additional key-value pairs.
	Metadata Metadata
}

// Metadata stores object metadata.
type Metadata struct {
	// CreatedAt is when the object was first stored.
	CreatedAt time.Time

	// LastAccessed is when the object was last stored or retrieved. Prune uses it.
	LastAccessed time.Time

	// Custom allows storage-specific metadata.
	Custom map[string]string
}

// ObjectType identifies the kind of stored object.
type ObjectType string

const (
	// ObjectTypeOptimizedImage is the optimized rendition of a source image.
	ObjectTypeOptimizedImage ObjectType = "optimized_image"
)

// ErrNotFound is returned when an object doesn't exist.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	return "object not found: " + e.Hash
}

// IsNotFound returns true if the error chain contains ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}
