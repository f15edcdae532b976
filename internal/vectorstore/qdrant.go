package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// UpsertBatchSize bounds the number of points sent to Qdrant per upsert
// request. Larger inputs are split and processed sequentially.
const UpsertBatchSize = 100

// idKey is the payload field carrying the caller's record ID. Qdrant point
// IDs must be UUIDs, so record IDs are mapped through a deterministic UUIDv5
// and the original string is kept in the payload.
const idKey = "_id"

// pointID maps a record ID to a stable Qdrant point ID. The mapping is
// deterministic, so re-upserting a record overwrites rather than duplicates.
func pointID(id string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String())
}

// QdrantStore is the external-service backend. Storage and nearest-neighbor
// search are delegated to a Qdrant instance over gRPC.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
	logger     *slog.Logger
}

// NewQdrantStore creates a Qdrant-backed store and verifies the server is
// reachable. The health check retries with exponential backoff and fails
// with ErrQdrantUnreachable if the server never answers.
func NewQdrantStore(cfg Config, logger *slog.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		APIKey: cfg.QdrantAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	s := &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		logger:     logger,
	}

	if err := s.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return s, nil
}

// healthCheckWithRetry pings Qdrant with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		result, err := s.client.HealthCheck(ctx)
		if err != nil {
			return err
		}
		if result == nil || result.Title == "" {
			return fmt.Errorf("health check returned invalid response")
		}
		return nil
	}, backoff.WithContext(b, ctx))
}

// Initialize creates the collection with the configured dimension and
// cosine distance if it does not already exist, plus keyword indexes on
// the metadata fields used for filtering. Safe to call repeatedly.
func (s *QdrantStore) Initialize(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	for _, name := range collections {
		if name == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	// Without these indexes metadata filtering degrades badly at scale.
	for _, field := range []string{"system", "category"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create index for field %s: %w", field, err)
		}
	}

	return nil
}

// Upsert writes a single record.
func (s *QdrantStore) Upsert(ctx context.Context, rec Record) error {
	return s.UpsertBatch(ctx, []Record{rec})
}

// UpsertBatch writes records in groups of UpsertBatchSize, sequentially,
// retrying each group with exponential backoff.
func (s *QdrantStore) UpsertBatch(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}

	for i, rec := range recs {
		if len(rec.Vector) != s.dimension {
			return fmt.Errorf("%w: record %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(rec.Vector), s.dimension)
		}
	}

	for i := 0; i < len(recs); i += UpsertBatchSize {
		end := min(i+UpsertBatchSize, len(recs))
		batch := recs[i:end]

		points := make([]*qdrant.PointStruct, len(batch))
		for j, rec := range batch {
			payload := map[string]any{idKey: rec.ID}
			for k, v := range rec.Metadata {
				payload[k] = v
			}
			points[j] = &qdrant.PointStruct{
				Id:      pointID(rec.ID),
				Vectors: qdrant.NewVectors(rec.Vector...),
				Payload: qdrant.NewValueMap(payload),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// upsertWithRetry performs one upsert request with exponential backoff.
func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		})
		return err
	}, backoff.WithContext(b, ctx))
}

// Delete removes records by ID. Unknown IDs are a no-op on the server side.
func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	return nil
}

// Clear drops and recreates the collection.
func (s *QdrantStore) Clear(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return s.Initialize(ctx)
}

// FindSimilar issues a single Query request. Remote failures degrade to an
// empty result list: a missing page of results costs less than aborting a
// user-facing query.
func (s *QdrantStore) FindSimilar(ctx context.Context, vector []float32, opts SearchOptions) ([]SearchResult, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	limit := opts.TopK
	if limit <= 0 {
		limit = 10
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         translateFilter(opts.Filter),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		s.logger.Warn("qdrant query failed, returning empty results", "error", err)
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		id := point.Payload[idKey].GetStringValue()
		metadata := make(map[string]string, len(point.Payload))
		for k, v := range point.Payload {
			if k == idKey {
				continue
			}
			metadata[k] = v.GetStringValue()
		}
		results = append(results, SearchResult{
			ID:       id,
			Score:    float64(point.Score),
			Metadata: metadata,
		})
	}
	return results, nil
}

// Stats returns the collection point count and configured dimension.
func (s *QdrantStore) Stats(ctx context.Context) (Stats, error) {
	collection, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return Stats{}, fmt.Errorf("get collection: %w", err)
	}
	return Stats{
		Backend:   BackendQdrant,
		Records:   int(collection.GetPointsCount()),
		Dimension: s.dimension,
	}, nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// translateFilter converts the shared filter language into Qdrant Must
// conditions: one condition per field, keyword OR within a field.
func translateFilter(filter Filter) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}

	must := make([]*qdrant.Condition, 0, len(filter))
	for field, values := range filter {
		switch len(values) {
		case 0:
			continue
		case 1:
			must = append(must, qdrant.NewMatch(field, values[0]))
		default:
			must = append(must, qdrant.NewMatchKeywords(field, values...))
		}
	}
	return &qdrant.Filter{Must: must}
}
