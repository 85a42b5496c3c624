package domain

import (
	"context"
	"errors"
)

// ErrVersionConflict is returned by CompareAndSwap when the stored
// version no longer matches the expected one.
var ErrVersionConflict = errors.New("store: version conflict")

// BucketValue is the raw payload of one storage key plus its version
// counter. Version 0 means the key does not exist yet.
type BucketValue struct {
	Data    []byte
	Version int64
}

// Store is the flat key-value storage the repository runs on. Keys are
// domain names plus the reserved bookkeeping keys; values are JSON.
type Store interface {
	// Get returns the values for the given keys. Missing keys are
	// absent from the result map. With no keys it returns everything.
	Get(ctx context.Context, keys ...string) (map[string]BucketValue, error)

	// Set writes a key unconditionally and returns the new version.
	Set(ctx context.Context, key string, data []byte) (int64, error)

	// CompareAndSwap writes key only if its current version equals
	// expect (0 for "must not exist"). Returns ErrVersionConflict on a
	// stale expect.
	CompareAndSwap(ctx context.Context, key string, data []byte, expect int64) (int64, error)

	// Remove deletes keys. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error

	// Keys returns all present keys.
	Keys(ctx context.Context) ([]string, error)

	// Clear removes everything.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
