package indexer

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmsbridge/kbindex/internal/chunker"
	"github.com/lmsbridge/kbindex/internal/embedding"
	"github.com/lmsbridge/kbindex/internal/knowledge"
	"github.com/lmsbridge/kbindex/internal/tokens"
	"github.com/lmsbridge/kbindex/internal/vectorstore"
)

func newTestPipeline(t *testing.T) (*Pipeline, *vectorstore.MemoryStore, string) {
	t.Helper()
	chunksDir := t.TempDir()
	store := vectorstore.NewMemoryStore(32)
	p := NewPipeline(
		chunker.New(tokens.WordCountEstimator{}),
		embedding.NewHashProvider(32),
		store,
		chunksDir,
		DefaultOptions(),
		nil,
	)
	return p, store, chunksDir
}

func TestIndexAll(t *testing.T) {
	p, store, chunksDir := newTestPipeline(t)
	ctx := context.Background()

	docs := []knowledge.Document{
		{
			ID:   "canvas/guides/assignments.md",
			Text: "# Assignments\n\nHow to create and grade assignments.\n",
			Metadata: map[string]string{
				knowledge.MetaSystem:   "canvas",
				knowledge.MetaCategory: "guides",
			},
		},
		{
			ID:   "discourse/faq.md",
			Text: "# FAQ\n\nFrequently asked forum questions.\n",
			Metadata: map[string]string{
				knowledge.MetaSystem: "discourse",
			},
		},
	}

	result, err := p.IndexAll(ctx, docs)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, result.TotalDocs)
	assert.Equal(t, 2, result.SuccessfulDocs)
	assert.Empty(t, result.FailedDocs)
	assert.Equal(t, 2, result.TotalChunks, "short documents produce one chunk each")

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Records)

	// Chunk artifacts land at their canonical paths.
	path := knowledge.ChunkFilePath(chunksDir, "canvas/guides/assignments.md_chunk1")
	rec, err := knowledge.ReadChunkRecord(path)
	require.NoError(t, err)
	assert.Equal(t, "canvas/guides/assignments.md", rec.DocumentID)
	assert.Contains(t, rec.Content, "grade assignments")
}

func TestIndexAllRecordMetadata(t *testing.T) {
	p, store, _ := newTestPipeline(t)
	ctx := context.Background()

	doc := knowledge.Document{
		ID:       "canvas/intro.md",
		Text:     "# Introduction\n\nCanvas basics.\n",
		Metadata: map[string]string{knowledge.MetaSystem: "canvas"},
	}

	_, err := p.IndexAll(ctx, []knowledge.Document{doc})
	require.NoError(t, err)

	// Query back the stored record by embedding the same chunk text.
	vec, err := embedding.NewHashProvider(32).Embed(ctx, doc.Text)
	require.NoError(t, err)
	results, err := store.FindSimilar(ctx, vec, vectorstore.SearchOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)

	hit := results[0]
	assert.Equal(t, "canvas/intro.md_chunk1", hit.ID)
	assert.Equal(t, "canvas", hit.Metadata[knowledge.MetaSystem])
	assert.Equal(t, "1", hit.Metadata[knowledge.MetaChunkIndex])
	assert.Equal(t, "1", hit.Metadata[knowledge.MetaTotalChunks])
	assert.Equal(t, "# Introduction", hit.Metadata[knowledge.MetaHeaderPath])

	artifact := hit.Metadata[knowledge.MetaChunkFile]
	require.NotEmpty(t, artifact)
	_, err = os.Stat(artifact)
	assert.NoError(t, err)
}

func TestIndexAllContinuesPastFailures(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	ctx := context.Background()

	docs := []knowledge.Document{
		{ID: "empty.md", Text: "   \n"},
		{ID: "good.md", Text: "# Good\n\nReal content here.\n"},
	}

	result, err := p.IndexAll(ctx, docs)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessfulDocs)
	require.Len(t, result.FailedDocs, 1)
	assert.Equal(t, "empty.md", result.FailedDocs[0].ID)
	assert.Contains(t, result.FailedDocs[0].Reason, "no chunks")
}

func TestIndexAllSplitsLongDocuments(t *testing.T) {
	chunksDir := t.TempDir()
	store := vectorstore.NewMemoryStore(32)
	p := NewPipeline(
		chunker.New(tokens.WordCountEstimator{}),
		embedding.NewHashProvider(32),
		store,
		chunksDir,
		Options{MaxTokens: 60, OverlapTokens: 10},
		nil,
	)

	text := "# Long\n\n"
	for i := 0; i < 6; i++ {
		text += "## Part\n\nalpha beta gamma delta epsilon zeta eta theta iota kappa " +
			"lambda mu nu xi omicron pi rho sigma tau upsilon phi chi psi omega.\n\n"
	}

	result, err := p.IndexAll(context.Background(), []knowledge.Document{{ID: "long.md", Text: text}})
	require.NoError(t, err)
	assert.Greater(t, result.TotalChunks, 1, "long document must split into multiple chunks")

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.TotalChunks, stats.Records)
}
