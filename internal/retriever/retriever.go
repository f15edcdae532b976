// Package retriever answers similarity queries with a hybrid reranking
// pipeline and reassembles chunk hits into coherent documents.
package retriever

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/lmsbridge/kbindex/internal/embedding"
	"github.com/lmsbridge/kbindex/internal/knowledge"
	"github.com/lmsbridge/kbindex/internal/vectorstore"
)

// Options controls a retrieval call. Zero values select the defaults.
type Options struct {
	TopK        int
	MinScore    float64
	Filter      vectorstore.Filter
	Rerank      *bool // nil means enabled
	MergeChunks *bool // nil means enabled
}

// DefaultTopK is the result count used when Options.TopK is unset.
const DefaultTopK = 5

// Result is one retrieval hit: a chunk, or a merged document when chunk
// merging is enabled. Merged results keep their constituent chunks for
// traceability.
type Result struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
	Content  string            `json:"content,omitempty"`
	Chunks   []Result          `json:"chunks,omitempty"`
}

// SearchResponse is the envelope returned by Search.
type SearchResponse struct {
	Query        string    `json:"query"`
	Timestamp    time.Time `json:"timestamp"`
	ResultsCount int       `json:"resultsCount"`
	Documents    []Result  `json:"documents"`
}

// Retriever orchestrates query embedding, candidate retrieval, hybrid
// scoring, content resolution and chunk merging.
type Retriever struct {
	store     vectorstore.Store
	provider  embedding.Provider
	fallback  *embedding.HashProvider
	chunksDir string
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source used for recency boosts.
func WithClock(now func() time.Time) Option {
	return func(r *Retriever) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a Retriever over the given store and embedding provider.
// chunksDir is where indexing wrote the chunk artifacts used for content
// resolution.
func New(store vectorstore.Store, provider embedding.Provider, chunksDir string, opts ...Option) *Retriever {
	r := &Retriever{
		store:     store,
		provider:  provider,
		fallback:  embedding.NewHashProvider(provider.Dimension()),
		chunksDir: chunksDir,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RetrieveDocuments runs the full retrieval pipeline for query and returns
// ranked results. Failures along the pipeline degrade rather than abort:
// an unreachable store yields an empty list and unresolvable content is
// kept with the content field empty.
func (r *Retriever) RetrieveDocuments(ctx context.Context, query string, opts Options) ([]Result, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	rerank := opts.Rerank == nil || *opts.Rerank
	merge := opts.MergeChunks == nil || *opts.MergeChunks

	// 1. Query embedding. The chunks were embedded by the same provider;
	// on failure the deterministic pseudo-embedding keeps the pipeline
	// exercisable in a degraded mode.
	vector, err := r.provider.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed, using hash fallback", "error", err)
		vector, _ = r.fallback.Embed(ctx, query)
	}

	// 2. Candidate retrieval. Reranking gets double the candidates so
	// lower-ranked hits have room to be promoted.
	limit := topK
	if rerank {
		limit = topK * 2
	}
	candidates, err := r.store.FindSimilar(ctx, vector, vectorstore.SearchOptions{
		TopK:   limit,
		Filter: opts.Filter,
	})
	if err != nil {
		r.logger.Warn("similarity query failed, returning empty results", "error", err)
		return []Result{}, nil
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, Result{ID: c.ID, Score: c.Score, Metadata: c.Metadata})
	}

	// 3. Hybrid rerank.
	if rerank {
		results = r.rerank(query, results)
		if len(results) > topK {
			results = results[:topK]
		}
	}

	// 4. Minimum-score filter.
	if opts.MinScore > 0 {
		kept := results[:0]
		for _, res := range results {
			if res.Score >= opts.MinScore {
				kept = append(kept, res)
			}
		}
		results = kept
	}

	// 5. Content resolution.
	for i := range results {
		results[i].Content = r.resolveContent(results[i])
	}

	// 6. Chunk merging.
	if merge {
		results = mergeChunks(results)
	}

	// 7. Final sort by score descending.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results, nil
}

// Search wraps RetrieveDocuments in a timestamped response envelope.
func (r *Retriever) Search(ctx context.Context, query string, opts Options) (*SearchResponse, error) {
	docs, err := r.RetrieveDocuments(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	return &SearchResponse{
		Query:        query,
		Timestamp:    r.now().UTC(),
		ResultsCount: len(docs),
		Documents:    docs,
	}, nil
}

// resolveContent loads the candidate's text: first the artifact path from
// its metadata, then the canonical path derived from the candidate ID. A
// candidate that cannot resolve keeps empty content rather than being
// dropped.
func (r *Retriever) resolveContent(res Result) string {
	if path, ok := res.Metadata[knowledge.MetaChunkFile]; ok && path != "" {
		if rec, err := knowledge.ReadChunkRecord(path); err == nil {
			return rec.Content
		}
	}

	alt := knowledge.ChunkFilePath(r.chunksDir, res.ID)
	if rec, err := knowledge.ReadChunkRecord(alt); err == nil {
		return rec.Content
	}

	r.logger.Debug("content resolution failed, keeping result without content", "id", res.ID)
	return ""
}

// mergeChunks groups chunk-level results by parent document. Each group
// becomes one result scored by its best chunk, with content concatenated
// in ordinal order regardless of score order.
func mergeChunks(results []Result) []Result {
	type group struct {
		doc    Result
		chunks []Result
	}

	var order []string
	groups := make(map[string]*group)

	for _, res := range results {
		docID, _, ok := knowledge.ParseChunkID(res.ID)
		if !ok {
			docID = res.ID
		}

		g, seen := groups[docID]
		if !seen {
			g = &group{doc: Result{ID: docID, Score: res.Score, Metadata: res.Metadata}}
			groups[docID] = g
			order = append(order, docID)
		}
		if res.Score > g.doc.Score {
			g.doc.Score = res.Score
			g.doc.Metadata = res.Metadata
		}
		g.chunks = append(g.chunks, res)
	}

	merged := make([]Result, 0, len(order))
	for _, docID := range order {
		g := groups[docID]

		sort.SliceStable(g.chunks, func(i, j int) bool {
			_, a, _ := knowledge.ParseChunkID(g.chunks[i].ID)
			_, b, _ := knowledge.ParseChunkID(g.chunks[j].ID)
			return a < b
		})

		content := ""
		for _, chunk := range g.chunks {
			if chunk.Content == "" {
				continue
			}
			if content != "" {
				content += "\n\n"
			}
			content += chunk.Content
		}

		g.doc.Content = content
		g.doc.Chunks = g.chunks
		merged = append(merged, g.doc)
	}
	return merged
}
