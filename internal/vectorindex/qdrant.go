package vectorindex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"claimgraph/internal/embedding"
)

// originalIDField stores the real claim_id in point payload since Qdrant
// point ids must be a UUID or a positive integer.
const originalIDField = "_claim_id"

// QdrantIndex stores claim vectors in a Qdrant collection over gRPC.
// Grounded on the teacher's qdrant_vector.go backend.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimension  int
	metric     string
}

// NewQdrant connects to a Qdrant instance at dsn and ensures the backing
// collection exists with the given dimension and Euclidean distance. The
// metric argument is stored but not applied to the collection.
func NewQdrant(dsn, collection string, dimensions int, metric string) (*QdrantIndex, error) {
	if collection == "" {
		return nil, fmt.Errorf("vectorindex: qdrant collection name is required")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: parse qdrant dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: invalid qdrant port: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: create qdrant client: %w", err)
	}
	q := &QdrantIndex{client: client, collection: collection, dimension: dimensions, metric: metric}
	if err := q.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, err
	}
	return q, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("vectorindex: check qdrant collection: %w", err)
	}
	if exists {
		return nil
	}
	if q.dimension <= 0 {
		return fmt.Errorf("vectorindex: qdrant requires dimensions > 0")
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("vectorindex: create qdrant collection: %w", err)
	}
	return nil
}

func pointUUID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func (q *QdrantIndex) Index(id string, vector []float32, metadata map[string]string) error {
	ctx := context.Background()
	pid := pointUUID(id)

	existing, err := q.client.Get(ctx, &qdrant.GetPoints{CollectionName: q.collection, Ids: []*qdrant.PointId{qdrant.NewIDUUID(pid)}})
	if err == nil && len(existing) > 0 {
		return &ErrDuplicateID{ID: id}
	}

	payload := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		payload[k] = v
	}
	payload[originalIDField] = id

	vec := make([]float32, len(vector))
	copy(vec, vector)
	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(pid),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	return err
}

func (q *QdrantIndex) SearchByVector(vector []float32, k int, minSimilarity float64) ([]Hit, error) {
	if k <= 0 {
		k = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	limit := uint64(k)
	results, err := q.client.Query(context.Background(), &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	out := make([]Hit, 0, len(results))
	for _, r := range results {
		sim := 1.0 / (1.0 + float64(r.Score))
		if sim < minSimilarity {
			continue
		}
		metadata := map[string]string{}
		var claimID string
		if r.Payload != nil {
			for k, v := range r.Payload {
				if k == originalIDField {
					claimID = v.GetStringValue()
					continue
				}
				metadata[k] = v.GetStringValue()
			}
		}
		out = append(out, Hit{ClaimID: claimID, Similarity: sim, Metadata: metadata})
	}
	return out, nil
}

func (q *QdrantIndex) SearchByText(ctx context.Context, embedder embedding.Provider, text string, k int, minSimilarity float64) ([]Hit, error) {
	vecs, err := embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("vectorindex: embedding provider returned no vector")
	}
	return q.SearchByVector(vecs[0], k, minSimilarity)
}

func (q *QdrantIndex) Reconstruct(id string) ([]float32, bool) {
	ctx := context.Background()
	pts, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(pointUUID(id))},
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil || len(pts) == 0 {
		return nil, false
	}
	dense := pts[0].Vectors.GetVector().GetData()
	return dense, true
}

func (q *QdrantIndex) Snapshot(string) error { return nil }
func (q *QdrantIndex) Restore(string) error  { return nil }

func (q *QdrantIndex) Len() int {
	ctx := context.Background()
	n, err := q.client.Count(ctx, &qdrant.CountPoints{CollectionName: q.collection})
	if err != nil {
		return 0
	}
	return int(n)
}

func (q *QdrantIndex) Close() error { return q.client.Close() }

var _ Index = (*QdrantIndex)(nil)
