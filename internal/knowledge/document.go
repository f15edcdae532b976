// Package knowledge defines the document and chunk data model shared by
// indexing and retrieval.
package knowledge

import (
	"fmt"
	"regexp"
	"strconv"
)

// Metadata keys used across the pipeline. Metadata is an open mapping;
// these are the keys the core itself reads or writes.
const (
	MetaSystem      = "system"
	MetaCategory    = "category"
	MetaSubcategory = "subcategory"
	MetaSourcePath  = "sourcePath"
	MetaUpdatedAt   = "updatedAt"
	MetaChunkIndex  = "chunkIndex"
	MetaTotalChunks = "totalChunks"
	MetaHeaderPath  = "headerPath"
	MetaChunkFile   = "chunkFile"
)

// Document is one logical knowledge unit. Documents are immutable once
// chunked for a run and regenerated wholesale on the next run.
type Document struct {
	ID       string // Stable identifier, typically a relative path
	Text     string
	Metadata map[string]string
}

var chunkIDSuffix = regexp.MustCompile(`^(.*)_chunk(\d+)$`)

// ChunkID builds the chunk identifier for a document and 1-based ordinal.
func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s_chunk%d", documentID, ordinal)
}

// ParseChunkID splits a chunk identifier into its parent document ID and
// ordinal. ok is false when id does not carry a chunk suffix.
func ParseChunkID(id string) (documentID string, ordinal int, ok bool) {
	m := chunkIDSuffix.FindStringSubmatch(id)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}
