// Package main provides the kbindex CLI for knowledge-base indexing and
// retrieval.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lmsbridge/kbindex/internal/chunker"
	"github.com/lmsbridge/kbindex/internal/config"
	"github.com/lmsbridge/kbindex/internal/embedding"
	"github.com/lmsbridge/kbindex/internal/indexer"
	mcpserver "github.com/lmsbridge/kbindex/internal/mcp"
	"github.com/lmsbridge/kbindex/internal/retriever"
	"github.com/lmsbridge/kbindex/internal/source"
	"github.com/lmsbridge/kbindex/internal/tokens"
	"github.com/lmsbridge/kbindex/internal/vectorstore"
)

var rootCmd = &cobra.Command{
	Use:   "kbindex",
	Short: "Knowledge base indexing and semantic retrieval",
	Long: `kbindex chunks knowledge documents, embeds them and serves
similarity queries with hybrid reranking.

Environment variables:
  KNOWLEDGE_DIR        Knowledge base root (default: knowledge_base)
  CHUNKS_DIR           Chunk artifact directory (default: knowledge_base/chunks)
  VECTOR_BACKEND       memory | qdrant (default: memory)
  VECTOR_DIMENSION     Embedding dimension (default: 1536)
  VECTOR_COLLECTION    Collection name (default: knowledge_base)
  QDRANT_HOST          Qdrant hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_API_KEY       Qdrant API key (optional)
  OPENAI_API_KEY       OpenAI key; unset selects deterministic hash embeddings`,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Chunk, embed and store every knowledge document",
	RunE:  runIndex,
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run a retrieval query against the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the retrieval API over MCP",
	RunE:  runServe,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vector index statistics",
	RunE:  runStatus,
}

var (
	flagTopK     int
	flagMinScore float64
	flagSystem   string
	flagContext  bool
)

func init() {
	searchCmd.Flags().IntVar(&flagTopK, "top-k", 5, "maximum results")
	searchCmd.Flags().Float64Var(&flagMinScore, "min-score", 0, "minimum score threshold")
	searchCmd.Flags().StringVar(&flagSystem, "system", "", "restrict to one source system")
	searchCmd.Flags().BoolVar(&flagContext, "context", false, "print an assembled context block instead of results")

	rootCmd.AddCommand(indexCmd, searchCmd, serveCmd, statusCmd)
}

func main() {
	// Load .env if present (local development), ignore if missing.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStack builds the store, provider and retriever shared by commands.
func openStack(ctx context.Context, cfg config.Config) (vectorstore.Store, embedding.Provider, *retriever.Retriever, error) {
	store, err := vectorstore.Open(ctx, cfg.Store, slog.Default())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open vector store: %w", err)
	}
	provider := embedding.NewProvider(cfg.OpenAIAPIKey, cfg.Store.Dimension, slog.Default())
	r := retriever.New(store, provider, cfg.ChunksDir)
	return store, provider, r, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.FromEnv()
	start := time.Now()

	store, provider, _, err := openStack(ctx, cfg)
	if err != nil {
		return err
	}

	docs, err := source.NewLoader(cfg.KnowledgeDir).Load()
	if err != nil {
		return fmt.Errorf("load knowledge base: %w", err)
	}
	fmt.Printf("Found %d documents in %s\n", len(docs), cfg.KnowledgeDir)

	ch := chunker.New(tokens.NewEstimator())
	pipeline := indexer.NewPipeline(ch, provider, store, cfg.ChunksDir, indexer.Options{
		MaxTokens:     cfg.MaxTokens,
		OverlapTokens: cfg.OverlapTokens,
	}, slog.Default())

	result, err := pipeline.IndexAll(ctx, docs)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Indexing complete!")
	fmt.Printf("  Documents: %d/%d\n", result.SuccessfulDocs, result.TotalDocs)
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))

	if len(result.FailedDocs) > 0 {
		fmt.Println()
		fmt.Println("Failed documents:")
		for _, failed := range result.FailedDocs {
			fmt.Printf("  - %s: %s\n", failed.ID, failed.Reason)
		}
	}

	fmt.Printf("\nTotal time: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.FromEnv()

	_, _, r, err := openStack(ctx, cfg)
	if err != nil {
		return err
	}

	opts := retriever.Options{
		TopK:     flagTopK,
		MinScore: flagMinScore,
	}
	if flagSystem != "" {
		opts.Filter = vectorstore.Filter{"system": {flagSystem}}
	}

	if flagContext {
		results, err := r.RetrieveDocuments(ctx, args[0], opts)
		if err != nil {
			return err
		}
		fmt.Println(retriever.GenerateContext(results, retriever.ContextOptions{IncludeMetadata: true}))
		return nil
	}

	resp, err := r.Search(ctx, args[0], opts)
	if err != nil {
		return err
	}

	fmt.Printf("Query: %s (%d results)\n\n", resp.Query, resp.ResultsCount)
	for i, doc := range resp.Documents {
		fmt.Printf("%d. %s (score: %.3f)\n", i+1, doc.ID, doc.Score)
		if system := doc.Metadata["system"]; system != "" {
			fmt.Printf("   system: %s\n", system)
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.FromEnv()

	// Cancel on SIGTERM/SIGINT.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	store, _, r, err := openStack(ctx, cfg)
	if err != nil {
		return err
	}

	server := mcpserver.NewServer(&mcpserver.Config{
		Retriever: r,
		Store:     store,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(store))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))

	if cfg.ServerMode {
		addr := "0.0.0.0:" + cfg.Port
		log.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health)", addr)
		return http.ListenAndServe(addr, mux)
	}

	// Stdio mode keeps the health endpoint up in the background for
	// local testing.
	go func() {
		addr := "0.0.0.0:" + cfg.Port
		log.Printf("Starting health server on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("Health server error: %v", err)
		}
	}()

	log.Println("Starting kbindex MCP server (stdio mode)...")
	return server.Run(ctx)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.FromEnv()

	store, _, _, err := openStack(ctx, cfg)
	if err != nil {
		return err
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	fmt.Printf("Backend:   %s\n", stats.Backend)
	fmt.Printf("Records:   %d\n", stats.Records)
	fmt.Printf("Dimension: %d\n", stats.Dimension)
	return nil
}
