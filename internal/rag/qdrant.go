package rag

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant-backed index.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name. It is dropped and recreated
	// on every build.
	Collection string

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantIndex implements Index on top of a Qdrant collection. Point IDs are
// the corpus positions, so hits map straight back to the recipe store.
type QdrantIndex struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this index.
	cfg *QdrantConfig

	// embedder is the function the collection was built with.
	embedder Embedder

	// size is the number of points written at build time.
	size int

	// dim is the vector size of the collection.
	dim int
}

// BuildQdrantIndex connects to Qdrant, recreates the collection and upserts
// one point per text. The returned index owns the client; call Close when done.
func BuildQdrantIndex(ctx context.Context, cfg *QdrantConfig, emb Embedder, texts []string) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "recipes"
	}

	vectors, dim, err := embedCorpus(ctx, emb, texts)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	idx := &QdrantIndex{client: client, cfg: cfg, embedder: emb, size: len(vectors), dim: dim}
	if err := idx.recreate(ctx, vectors, texts); err != nil {
		_ = client.Close()
		return nil, err
	}
	return idx, nil
}

// recreate drops any existing collection and writes a fresh one. An empty
// corpus leaves no collection behind; Query short-circuits in that case.
func (q *QdrantIndex) recreate(ctx context.Context, vectors [][]float32, texts []string) error {
	exists, err := q.client.CollectionExists(ctx, q.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		if err := q.client.DeleteCollection(ctx, q.cfg.Collection); err != nil {
			return fmt.Errorf("qdrant: failed to drop collection %q: %w", q.cfg.Collection, err)
		}
	}
	if len(vectors) == 0 {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dim), //nolint:gosec // dimension is positive
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", q.cfg.Collection, err)
	}

	points := make([]*qdrant.PointStruct, 0, len(vectors))
	for i, v := range vectors {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(i)), //nolint:gosec // positions are non-negative
			Vectors: qdrant.NewVectors(v...),
			Payload: qdrant.NewValueMap(map[string]any{"text": texts[i]}),
		})
	}

	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.Collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}
	return nil
}

// Len returns the number of indexed entries.
func (q *QdrantIndex) Len() int { return q.size }

// Query embeds text, runs a cosine search and re-applies the stable
// (score desc, position asc) ordering to Qdrant's results.
func (q *QdrantIndex) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	k = clampK(k, q.size)
	if k == 0 {
		return []Hit{}, nil
	}

	vec, err := embedOne(ctx, q.embedder, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != q.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(vec), q.dim)
	}

	limit := uint64(k) //nolint:gosec // k is positive
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.Collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	return rankPoints(results, q.size, k), nil
}

// clampK bounds a requested result count to [0, size].
func clampK(k, size int) int {
	if k <= 0 || size <= 0 {
		return 0
	}
	return min(k, size)
}

// rankPoints converts Qdrant results to hits in the stable (score desc,
// position asc) order. Points whose id is not a corpus position are dropped.
func rankPoints(points []*qdrant.ScoredPoint, size, k int) []Hit {
	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		id := p.GetId().GetNum()
		if id >= uint64(size) { //nolint:gosec // size is non-negative
			continue
		}
		hits = append(hits, Hit{Index: int(id), Score: p.GetScore()}) //nolint:gosec // bounded by size
	}
	return topK(hits, k)
}

// Client exposes the underlying client for readiness probes.
func (q *QdrantIndex) Client() *qdrant.Client { return q.client }

// Close closes the underlying Qdrant gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}
