package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkIDRoundTrip(t *testing.T) {
	id := ChunkID("canvas/guides/assignments.md", 3)
	assert.Equal(t, "canvas/guides/assignments.md_chunk3", id)

	docID, ordinal, ok := ParseChunkID(id)
	require.True(t, ok)
	assert.Equal(t, "canvas/guides/assignments.md", docID)
	assert.Equal(t, 3, ordinal)
}

func TestParseChunkIDRejectsPlainIDs(t *testing.T) {
	for _, id := range []string{
		"canvas/guides/assignments.md",
		"document_chunk", // no ordinal
		"",
	} {
		_, _, ok := ParseChunkID(id)
		assert.False(t, ok, "id %q should not parse as a chunk", id)
	}
}

func TestParseChunkIDGreedyPrefix(t *testing.T) {
	// A document ID that itself ends in a chunk-like suffix: only the final
	// suffix is stripped.
	docID, ordinal, ok := ParseChunkID("weird_chunk2_chunk7")
	require.True(t, ok)
	assert.Equal(t, "weird_chunk2", docID)
	assert.Equal(t, 7, ordinal)
}

func TestChunkRecordRoundTrip(t *testing.T) {
	dir := t.TempDir()

	rec := ChunkRecord{
		DocumentID: "canvas/guides/quiz.md",
		ChunkID:    "canvas/guides/quiz.md_chunk1",
		Content:    "# Quizzes\n\nHow quizzes work.",
		Metadata: map[string]string{
			MetaSystem:     "canvas",
			MetaChunkIndex: "1",
		},
	}

	path, err := WriteChunkRecord(dir, rec)
	require.NoError(t, err)
	assert.Equal(t, ChunkFilePath(dir, rec.ChunkID), path)

	loaded, err := ReadChunkRecord(path)
	require.NoError(t, err)
	assert.Equal(t, rec, loaded)
}

func TestReadChunkRecordMissingFile(t *testing.T) {
	_, err := ReadChunkRecord(t.TempDir() + "/nope.json")
	assert.Error(t, err)
}
