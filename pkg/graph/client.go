// Package graph builds and queries the unified property graph: deduplicated
// nodes for real-world entities and typed edges between them, persisted as
// individually addressable objects in a blob store.
//
// Identity is content-derived: the same (type, key) pair always maps to the
// same object, no matter which process computes it. Combined with
// commutative, idempotent merges and conditional writes, this makes
// concurrent at-least-once writers converge without transactions.
package graph

import (
	"errors"

	"github.com/nextier/graph-etl/pkg/store"
)

// GraphClient performs idempotent upsert-or-merge writes and read-side
// lookups against an ObjectStore.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	store      store.ObjectStore
	maxRetries int
}

// NewGraphClientParams defines the configuration for a GraphClient.
//
// Store is the backing object store. MaxRetries bounds how many times a
// conditional write is retried after losing a race with a concurrent writer.
type NewGraphClientParams struct {
	Store      store.ObjectStore
	MaxRetries int
}

// NewGraphClient creates a GraphClient configured with the provided
// parameters.
//
// Example:
//
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		Store:      s3store,
//		MaxRetries: 3,
//	})
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	if params.Store == nil {
		return nil, errors.New("graph client requires an object store")
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &GraphClient{
		store:      params.Store,
		maxRetries: maxRetries,
	}, nil
}
