// Package store defines the object-store boundary the graph is persisted
// through. The backing store is eventually consistent and offers no
// transactions; callers compensate with deterministic keys and
// ETag-conditioned writes.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when no object exists at the key.
	ErrNotFound = errors.New("object not found")
	// ErrConflict is returned by PutIf when the condition fails because the
	// object changed (or appeared) since it was read.
	ErrConflict = errors.New("conditional write conflict")
)

// ObjectStore is the minimal blob-store contract the graph needs: point
// reads with a version tag, blind writes, conditional writes, and prefix
// listing. Implementations must treat keys as opaque strings.
type ObjectStore interface {
	// Get returns the object body and its current ETag, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, string, error)

	// Put writes the object unconditionally.
	Put(ctx context.Context, key string, data []byte) error

	// PutIf writes the object only if its current ETag matches etag. An
	// empty etag means "create only": the write fails with ErrConflict if
	// any object already exists at the key.
	PutIf(ctx context.Context, key string, data []byte, etag string) error

	// List returns all keys under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
