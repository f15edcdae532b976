package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lmsbridge/kbindex/internal/vectorstore"
)

// HealthResponse is the JSON body of the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Backend   string `json:"backend"`
	Records   int    `json:"records"`
	Timestamp string `json:"timestamp"`
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// The store's Stats call doubles as the connectivity probe.
func NewHealthHandler(store vectorstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		stats, err := store.Stats(ctx)

		response := HealthResponse{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")

		if err != nil {
			response.Status = "unhealthy"
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(response)
			return
		}

		response.Status = "healthy"
		response.Backend = stats.Backend
		response.Records = stats.Records
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}
