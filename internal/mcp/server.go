package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lmsbridge/kbindex/internal/retriever"
	"github.com/lmsbridge/kbindex/internal/vectorstore"
)

// Server wraps the MCP server with its dependencies.
type Server struct {
	server    *mcp.Server
	retriever *retriever.Retriever
	store     vectorstore.Store
}

// Config holds server dependencies.
type Config struct {
	Retriever *retriever.Retriever
	Store     vectorstore.Store
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "kbindex-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search the knowledge base semantically. Returns ranked documents merged from their best-matching chunks.",
	}, makeSearchHandler(cfg.Retriever))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_context",
		Description: "Retrieve documents for a query and assemble them into a single budget-constrained context block.",
	}, makeContextHandler(cfg.Retriever))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_status",
		Description: "Get the current status of the vector index: backend, record count and vector dimension.",
	}, makeStatusHandler(cfg.Store))

	return &Server{
		server:    server,
		retriever: cfg.Retriever,
		store:     cfg.Store,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
