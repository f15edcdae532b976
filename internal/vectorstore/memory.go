package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore is the in-memory backend: a brute-force linear scan over all
// stored records, scored by cosine similarity. It is the fallback when no
// remote backend is configured or reachable.
type MemoryStore struct {
	mu        sync.RWMutex
	records   map[string]Record
	dimension int
}

// NewMemoryStore creates an empty in-memory store for vectors of the given
// dimension.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		records:   make(map[string]Record),
		dimension: dimension,
	}
}

// Initialize is a no-op for the in-memory backend.
func (s *MemoryStore) Initialize(ctx context.Context) error {
	return nil
}

// Upsert writes or overwrites a record by ID.
func (s *MemoryStore) Upsert(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

// UpsertBatch writes all records. The in-memory backend has no batching
// pressure, so records are stored in one pass.
func (s *MemoryStore) UpsertBatch(ctx context.Context, recs []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		s.records[rec.ID] = rec
	}
	return nil
}

// Delete removes records by ID; unknown IDs are ignored.
func (s *MemoryStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

// Clear removes all records.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]Record)
	return nil
}

// FindSimilar scans every stored record, filters, and returns the TopK
// matches sorted by descending cosine similarity.
func (s *MemoryStore) FindSimilar(ctx context.Context, vector []float32, opts SearchOptions) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.records))
	for id, rec := range s.records {
		if opts.Filter != nil && !opts.Filter.Matches(rec.Metadata) {
			continue
		}
		results = append(results, SearchResult{
			ID:       id,
			Score:    CosineSimilarity(vector, rec.Vector),
			Metadata: rec.Metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if opts.TopK > 0 && len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

// Stats returns the record count and configured dimension.
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Backend:   BackendMemory,
		Records:   len(s.records),
		Dimension: s.dimension,
	}, nil
}

// CosineSimilarity returns dot(a,b) / (|a|·|b|), or 0 when either vector
// has zero magnitude. Vectors of unequal length are compared over their
// common prefix.
func CosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
