// Package config collects environment configuration into one struct that
// callers pass down explicitly.
package config

import (
	"fmt"
	"os"

	"github.com/lmsbridge/kbindex/internal/vectorstore"
)

// Config is the process configuration, read once at startup.
type Config struct {
	// KnowledgeDir is the root of the generated knowledge base documents.
	KnowledgeDir string
	// ChunksDir is where chunk artifacts are written and resolved from.
	ChunksDir string
	// OpenAIAPIKey selects the real embedding provider when set.
	OpenAIAPIKey string
	// MaxTokens and OverlapTokens bound the chunker.
	MaxTokens     int
	OverlapTokens int
	// Store selects and parameterizes the vector store backend.
	Store vectorstore.Config
	// Port is the HTTP listen port for the MCP server.
	Port string
	// ServerMode serves MCP over HTTP instead of stdio.
	ServerMode bool
}

// FromEnv builds the configuration from environment variables, applying
// defaults for anything unset.
func FromEnv() Config {
	return Config{
		KnowledgeDir:  getEnv("KNOWLEDGE_DIR", "knowledge_base"),
		ChunksDir:     getEnv("CHUNKS_DIR", "knowledge_base/chunks"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		MaxTokens:     getEnvInt("CHUNK_MAX_TOKENS", 1500),
		OverlapTokens: getEnvInt("CHUNK_OVERLAP_TOKENS", 200),
		Store: vectorstore.Config{
			Backend:      getEnv("VECTOR_BACKEND", vectorstore.BackendMemory),
			Dimension:    getEnvInt("VECTOR_DIMENSION", 1536),
			Collection:   getEnv("VECTOR_COLLECTION", "knowledge_base"),
			QdrantHost:   getEnv("QDRANT_HOST", "localhost"),
			QdrantPort:   getEnvInt("QDRANT_PORT", 6334),
			QdrantAPIKey: os.Getenv("QDRANT_API_KEY"),
		},
		Port:       getEnv("PORT", "8080"),
		ServerMode: getEnv("SERVER_MODE", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
