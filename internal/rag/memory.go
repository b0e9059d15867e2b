package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// MemoryIndex is a brute-force cosine-similarity index held in process
// memory. Vectors are L2-normalised at build time so a query is one dot
// product per entry.
type MemoryIndex struct {
	// embedder is the exact function used at build time; queries reuse it.
	embedder Embedder
	// vectors holds one normalised embedding per corpus position.
	vectors [][]float32
	// dim is the shared vector length (0 for an empty corpus).
	dim int
}

// BuildMemoryIndex embeds every text and returns a ready index. If emb
// implements Fitter it is fitted on texts first.
func BuildMemoryIndex(ctx context.Context, emb Embedder, texts []string) (*MemoryIndex, error) {
	vectors, dim, err := embedCorpus(ctx, emb, texts)
	if err != nil {
		return nil, err
	}
	for _, v := range vectors {
		normalize(v)
	}
	return &MemoryIndex{embedder: emb, vectors: vectors, dim: dim}, nil
}

// Len returns the number of indexed entries.
func (m *MemoryIndex) Len() int { return len(m.vectors) }

// Query embeds text and returns the top-k entries by cosine similarity.
func (m *MemoryIndex) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	if k <= 0 || len(m.vectors) == 0 {
		return []Hit{}, nil
	}

	q, err := embedOne(ctx, m.embedder, text)
	if err != nil {
		return nil, err
	}
	if len(q) != m.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(q), m.dim)
	}
	normalize(q)

	hits := make([]Hit, len(m.vectors))
	for i, v := range m.vectors {
		hits[i] = Hit{Index: i, Score: dot(q, v)}
	}
	return topK(hits, k), nil
}

// embedCorpus fits (when supported) and embeds texts, checking that the
// embedder returned one vector per text and that all share one dimension.
func embedCorpus(ctx context.Context, emb Embedder, texts []string) ([][]float32, int, error) {
	if emb == nil {
		return nil, 0, fmt.Errorf("rag: embedder must not be nil")
	}
	if f, ok := emb.(Fitter); ok {
		if err := f.Fit(texts); err != nil {
			return nil, 0, fmt.Errorf("rag: fit embedder: %w", err)
		}
	}
	if len(texts) == 0 {
		return [][]float32{}, 0, nil
	}

	vectors, err := emb.Embed(ctx, texts)
	if err != nil {
		return nil, 0, fmt.Errorf("rag: embedding corpus failed: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, 0, fmt.Errorf("rag: embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, 0, fmt.Errorf("rag: embedder returned an empty vector")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, 0, fmt.Errorf("%w: entry %d has %d, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return vectors, dim, nil
}

// embedOne embeds a single query text, through EmbedQuery when emb has it.
func embedOne(ctx context.Context, emb Embedder, text string) ([]float32, error) {
	if qe, ok := emb.(QueryEmbedder); ok {
		vec, err := qe.EmbedQuery(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("rag: embedding query failed: %w", err)
		}
		if len(vec) == 0 {
			return nil, fmt.Errorf("rag: embedder returned empty result for query")
		}
		return vec, nil
	}

	out, err := emb.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}
	return out[0], nil
}

// topK orders hits by score descending, position ascending, and truncates to k.
func topK(hits []Hit, k int) []Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Index < hits[j].Index
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

// normalize scales v to unit length in place. Zero vectors are left as-is.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	n := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / n)
	}
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
