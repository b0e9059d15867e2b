// Package rag defines the embedding index used for recipe retrieval: the
// Embedder that turns text into vectors and the Index that ranks stored
// vectors against a query. An Index is built once from a fixed corpus and is
// read-only afterwards; a changed corpus requires a full rebuild.
package rag

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when vectors in one index (or a query
// vector) do not share the same length.
var ErrDimensionMismatch = errors.New("rag: embedding dimension mismatch")

// Hit is one ranked index entry.
type Hit struct {
	// Index is the position of the entry in the corpus the index was built from.
	Index int
	// Score is the cosine similarity between the query and the entry.
	Score float32
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Fitter is implemented by embedders that derive their vector space from the
// corpus itself (e.g. TF-IDF). Index builders call Fit before embedding.
type Fitter interface {
	// Fit prepares the embedder for the given corpus.
	Fit(corpus []string) error
}

// QueryEmbedder is implemented by embedders that treat one-off query text
// differently from corpus text. A persistent cache, for instance, reads its
// stored vectors for a query but never writes the query back.
type QueryEmbedder interface {
	// EmbedQuery converts a single query text into an embedding.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Index ranks corpus entries by similarity to free text.
// Implementations must be safe to call from multiple goroutines.
type Index interface {
	// Query embeds text and returns up to k hits, highest score first, ties
	// broken by ascending corpus position. k larger than the corpus returns
	// every entry; k <= 0 or an empty corpus returns no hits.
	Query(ctx context.Context, text string, k int) ([]Hit, error)

	// Len returns the number of indexed entries.
	Len() int
}
