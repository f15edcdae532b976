// Package mcp exposes the retrieval API over the Model Context Protocol.
package mcp

import "time"

// SearchKnowledgeInput defines the input parameters for the search_knowledge tool.
type SearchKnowledgeInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=The semantic search query for finding relevant knowledge documents"`
	// TopK is the maximum number of documents to return.
	TopK int `json:"top_k,omitempty" jsonschema:"minimum=1,maximum=20,default=5,description=Maximum number of documents to return"`
	// MinScore is the minimum relevance threshold (0-1).
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum=0,maximum=1,description=Minimum relevance score threshold (0-1)"`
	// System restricts results to one source system (e.g. canvas, discourse).
	System string `json:"system,omitempty" jsonschema:"description=Restrict results to a single source system"`
}

// SearchKnowledgeOutput contains the search results.
type SearchKnowledgeOutput struct {
	Query        string           `json:"query"`
	Timestamp    time.Time        `json:"timestamp"`
	ResultsCount int              `json:"results_count"`
	Documents    []DocumentResult `json:"documents"`
	// Message provides informational context (e.g. "No matching documents found").
	Message string `json:"message,omitempty"`
}

// DocumentResult is a single (merged) document match.
type DocumentResult struct {
	ID         string  `json:"id"`
	Score      float64 `json:"score"`
	System     string  `json:"system,omitempty"`
	Category   string  `json:"category,omitempty"`
	HeaderPath string  `json:"header_path,omitempty"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
	Content    string  `json:"content,omitempty"`
}

// GetContextInput defines the input parameters for the get_context tool.
type GetContextInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=The semantic search query to build context for"`
	// TopK is the maximum number of documents to draw from.
	TopK int `json:"top_k,omitempty" jsonschema:"minimum=1,maximum=20,default=5,description=Maximum number of documents to draw from"`
	// MaxChars bounds the assembled context length.
	MaxChars int `json:"max_chars,omitempty" jsonschema:"minimum=100,description=Character budget for the assembled context"`
}

// GetContextOutput contains the assembled context block.
type GetContextOutput struct {
	Context      string `json:"context"`
	ResultsCount int    `json:"results_count"`
}

// StatusInput defines the input for the index_status tool (none).
type StatusInput struct{}

// StatusOutput describes the vector index.
type StatusOutput struct {
	Backend   string `json:"backend"`
	Records   int    `json:"records"`
	Dimension int    `json:"dimension"`
}
