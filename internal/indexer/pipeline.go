// Package indexer orchestrates chunking, embedding and vector storage for
// knowledge documents.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lmsbridge/kbindex/internal/chunker"
	"github.com/lmsbridge/kbindex/internal/embedding"
	"github.com/lmsbridge/kbindex/internal/knowledge"
	"github.com/lmsbridge/kbindex/internal/vectorstore"
)

// Options bounds chunk sizes for the pipeline.
type Options struct {
	MaxTokens     int
	OverlapTokens int
}

// DefaultOptions mirrors the knowledge-base generator defaults.
func DefaultOptions() Options {
	return Options{MaxTokens: 1500, OverlapTokens: 200}
}

// IndexResult contains statistics about an indexing run.
type IndexResult struct {
	RunID          string
	TotalDocs      int
	TotalChunks    int
	SuccessfulDocs int
	FailedDocs     []FailedDoc
	Duration       time.Duration
}

// FailedDoc records a document that failed to index.
type FailedDoc struct {
	ID     string
	Reason string
}

// Pipeline turns documents into chunk artifacts and stored vectors.
// Documents are processed strictly sequentially; a failure in one document
// never aborts the run.
type Pipeline struct {
	chunker   *chunker.Chunker
	provider  embedding.Provider
	store     vectorstore.Store
	chunksDir string
	opts      Options
	logger    *slog.Logger
}

// NewPipeline creates an indexing pipeline. Chunk artifacts are written
// under chunksDir for later content resolution.
func NewPipeline(
	ch *chunker.Chunker,
	provider embedding.Provider,
	store vectorstore.Store,
	chunksDir string,
	opts Options,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxTokens <= 0 {
		opts = DefaultOptions()
	}
	return &Pipeline{
		chunker:   ch,
		provider:  provider,
		store:     store,
		chunksDir: chunksDir,
		opts:      opts,
		logger:    logger,
	}
}

// IndexAll processes every document and returns run statistics.
func (p *Pipeline) IndexAll(ctx context.Context, docs []knowledge.Document) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{
		RunID:     uuid.New().String(),
		TotalDocs: len(docs),
	}
	p.logger.Info("starting indexing run", "run", result.RunID, "documents", len(docs))

	for _, doc := range docs {
		chunks, err := p.processDocument(ctx, doc)
		if err != nil {
			p.logger.Warn("failed to index document", "document", doc.ID, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{
				ID:     doc.ID,
				Reason: err.Error(),
			})
			continue
		}
		result.SuccessfulDocs++
		result.TotalChunks += chunks
	}

	result.Duration = time.Since(start)
	p.logger.Info("indexing complete",
		"run", result.RunID,
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return result, nil
}

// processDocument chunks, embeds and stores one document. Returns the
// number of chunks created.
func (p *Pipeline) processDocument(ctx context.Context, doc knowledge.Document) (int, error) {
	chunks := p.chunker.ChunkDocument(doc.Text, p.opts.MaxTokens, p.opts.OverlapTokens)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document produced no chunks")
	}
	p.logger.Debug("chunked document", "document", doc.ID, "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := p.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, chunk := range chunks {
		chunkID := knowledge.ChunkID(doc.ID, chunk.Ordinal)

		metadata := make(map[string]string, len(doc.Metadata)+4)
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		metadata[knowledge.MetaChunkIndex] = fmt.Sprintf("%d", chunk.Ordinal)
		metadata[knowledge.MetaTotalChunks] = fmt.Sprintf("%d", len(chunks))
		if chunk.HeaderPath != "" {
			metadata[knowledge.MetaHeaderPath] = chunk.HeaderPath
		}

		// The chunk artifact carries the text; the vector store payload
		// stays metadata-only. A write failure here just means content
		// resolution for this chunk degrades later.
		path, err := knowledge.WriteChunkRecord(p.chunksDir, knowledge.ChunkRecord{
			DocumentID: doc.ID,
			ChunkID:    chunkID,
			Content:    chunk.Text,
			Metadata:   metadata,
		})
		if err != nil {
			p.logger.Warn("failed to write chunk artifact", "chunk", chunkID, "error", err)
		} else {
			metadata[knowledge.MetaChunkFile] = path
		}

		records[i] = vectorstore.Record{
			ID:       chunkID,
			Vector:   vectors[i],
			Metadata: metadata,
		}
	}

	if err := p.store.UpsertBatch(ctx, records); err != nil {
		return 0, fmt.Errorf("store vectors: %w", err)
	}

	p.logger.Info("indexed document", "document", doc.ID, "chunks", len(chunks))
	return len(chunks), nil
}
