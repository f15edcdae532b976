package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lmsbridge/kbindex/internal/knowledge"
	"github.com/lmsbridge/kbindex/internal/retriever"
	"github.com/lmsbridge/kbindex/internal/vectorstore"
)

// makeSearchHandler creates the search_knowledge tool handler.
func makeSearchHandler(r *retriever.Retriever) func(
	context.Context, *mcp.CallToolRequest, SearchKnowledgeInput,
) (*mcp.CallToolResult, SearchKnowledgeOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchKnowledgeInput) (
		*mcp.CallToolResult, SearchKnowledgeOutput, error,
	) {
		opts := retriever.Options{
			TopK:     input.TopK,
			MinScore: input.MinScore,
		}
		if input.System != "" {
			opts.Filter = vectorstore.Filter{knowledge.MetaSystem: {input.System}}
		}

		resp, err := r.Search(ctx, input.Query, opts)
		if err != nil {
			return nil, SearchKnowledgeOutput{}, fmt.Errorf("search failed: %w", err)
		}

		docs := make([]DocumentResult, 0, len(resp.Documents))
		for _, doc := range resp.Documents {
			docs = append(docs, DocumentResult{
				ID:         doc.ID,
				Score:      doc.Score,
				System:     doc.Metadata[knowledge.MetaSystem],
				Category:   doc.Metadata[knowledge.MetaCategory],
				HeaderPath: doc.Metadata[knowledge.MetaHeaderPath],
				UpdatedAt:  doc.Metadata[knowledge.MetaUpdatedAt],
				Content:    doc.Content,
			})
		}

		out := SearchKnowledgeOutput{
			Query:        resp.Query,
			Timestamp:    resp.Timestamp,
			ResultsCount: resp.ResultsCount,
			Documents:    docs,
		}
		if len(docs) == 0 {
			out.Message = "No matching documents found. Try broader search terms."
		}
		return nil, out, nil
	}
}

// makeContextHandler creates the get_context tool handler.
func makeContextHandler(r *retriever.Retriever) func(
	context.Context, *mcp.CallToolRequest, GetContextInput,
) (*mcp.CallToolResult, GetContextOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetContextInput) (
		*mcp.CallToolResult, GetContextOutput, error,
	) {
		results, err := r.RetrieveDocuments(ctx, input.Query, retriever.Options{
			TopK: input.TopK,
		})
		if err != nil {
			return nil, GetContextOutput{}, fmt.Errorf("retrieval failed: %w", err)
		}

		text := retriever.GenerateContext(results, retriever.ContextOptions{
			MaxChars:        input.MaxChars,
			IncludeMetadata: true,
		})

		return nil, GetContextOutput{
			Context:      text,
			ResultsCount: len(results),
		}, nil
	}
}

// makeStatusHandler creates the index_status tool handler.
func makeStatusHandler(store vectorstore.Store) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		stats, err := store.Stats(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("stats failed: %w", err)
		}
		return nil, StatusOutput{
			Backend:   stats.Backend,
			Records:   stats.Records,
			Dimension: stats.Dimension,
		}, nil
	}
}
