// Package vectorstore stores embedded records and answers nearest-neighbor
// queries behind a pluggable backend.
package vectorstore

import (
	"context"
	"log/slog"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendQdrant = "qdrant"
)

// Record is the stored unit, keyed by ID. Re-upserting the same ID
// overwrites the previous record.
type Record struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// SearchResult is one ranked match from FindSimilar.
type SearchResult struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// Filter maps a metadata field to its acceptable values. Values within a
// field are OR-ed; fields are AND-ed together.
type Filter map[string][]string

// Matches reports whether the metadata satisfies every filter field.
func (f Filter) Matches(metadata map[string]string) bool {
	for field, accepted := range f {
		value, ok := metadata[field]
		if !ok {
			return false
		}
		found := false
		for _, want := range accepted {
			if value == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SearchOptions controls a FindSimilar call.
type SearchOptions struct {
	TopK   int
	Filter Filter
}

// Stats describes the state of a store.
type Stats struct {
	Backend   string
	Records   int
	Dimension int
}

// Store is the capability contract shared by every backend variant.
//
// Query-time failures against a remote backend degrade to an empty result
// list; write failures are returned to the caller, who decides whether to
// retry.
type Store interface {
	// Initialize performs idempotent setup (collection creation, indexes).
	Initialize(ctx context.Context) error

	// Upsert writes or overwrites a single record by ID.
	Upsert(ctx context.Context, rec Record) error

	// UpsertBatch writes records in bounded-size groups, sequentially.
	UpsertBatch(ctx context.Context, recs []Record) error

	// Delete removes records by ID; unknown IDs are a no-op.
	Delete(ctx context.Context, ids []string) error

	// Clear removes every record in the collection.
	Clear(ctx context.Context) error

	// FindSimilar returns at most opts.TopK records ranked by descending
	// similarity to vector, respecting opts.Filter.
	FindSimilar(ctx context.Context, vector []float32, opts SearchOptions) ([]SearchResult, error)

	// Stats returns backend type, record count and vector dimension.
	Stats(ctx context.Context) (Stats, error)
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend      string
	Dimension    int
	Collection   string
	QdrantHost   string
	QdrantPort   int
	QdrantAPIKey string
}

// Open constructs and initializes the configured backend. When the qdrant
// backend cannot be reached or initialized, Open falls back to the
// in-memory backend so indexing and retrieval keep working.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Backend == BackendQdrant {
		store, err := NewQdrantStore(cfg, logger)
		if err == nil {
			if err = store.Initialize(ctx); err == nil {
				return store, nil
			}
		}
		logger.Warn("qdrant backend unavailable, falling back to in-memory store", "error", err)
	}

	store := NewMemoryStore(cfg.Dimension)
	if err := store.Initialize(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
