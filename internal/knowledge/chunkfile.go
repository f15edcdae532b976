package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ChunkRecord is the on-disk artifact written for every chunk at indexing
// time and read back during content resolution.
type ChunkRecord struct {
	DocumentID string            `json:"documentId"`
	ChunkID    string            `json:"chunkId"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata"`
}

// ChunkFilePath returns the canonical location of a chunk record under dir.
// Chunk IDs derived from relative paths keep their directory structure.
func ChunkFilePath(dir, chunkID string) string {
	return filepath.Join(dir, chunkID+".json")
}

// WriteChunkRecord serializes rec to its canonical path under dir, creating
// parent directories as needed.
func WriteChunkRecord(dir string, rec ChunkRecord) (string, error) {
	path := ChunkFilePath(dir, rec.ChunkID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create chunk dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal chunk record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write chunk record: %w", err)
	}
	return path, nil
}

// ReadChunkRecord loads a chunk record from path.
func ReadChunkRecord(path string) (ChunkRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ChunkRecord{}, fmt.Errorf("read chunk record: %w", err)
	}
	var rec ChunkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return ChunkRecord{}, fmt.Errorf("parse chunk record: %w", err)
	}
	return rec, nil
}
