package embedder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/54b3r/recipeai-go/internal/rag"
)

// countingEmbedder returns [len(text), 1] and records every text it embeds.
type countingEmbedder struct {
	mu   sync.Mutex
	seen []string
	err  error
}

func (c *countingEmbedder) ModelID() string { return "test/counting" }

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.seen = append(c.seen, texts...)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (c *countingEmbedder) embedded() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func openTestCache(t *testing.T, path string, next *countingEmbedder) *Cache {
	t.Helper()
	c, err := OpenCache(path, next)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func Test_Cache_HitsSkipWrappedEmbedder(t *testing.T) {
	t.Parallel()
	next := &countingEmbedder{}
	c := openTestCache(t, ":memory:", next)
	ctx := context.Background()

	first, err := c.Embed(ctx, []string{"eggs", "butter"})
	if err != nil {
		t.Fatalf("first embed: %v", err)
	}
	second, err := c.Embed(ctx, []string{"butter", "milk", "eggs"})
	if err != nil {
		t.Fatalf("second embed: %v", err)
	}

	if n := next.embedded(); n != 3 {
		t.Errorf("wrapped embedder saw %d texts, want 3 (eggs, butter, milk)", n)
	}
	if second[0][0] != first[1][0] || second[2][0] != first[0][0] {
		t.Errorf("cached vectors out of place: first=%v second=%v", first, second)
	}
	if second[1][0] != 4 {
		t.Errorf("milk vector = %v, want [4 1]", second[1])
	}

	n, err := c.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 3 {
		t.Errorf("cache rows = %d, want 3", n)
	}
}

func Test_Cache_QueriesAreNotStored(t *testing.T) {
	t.Parallel()
	next := &countingEmbedder{}
	c := openTestCache(t, ":memory:", next)
	ctx := context.Background()

	idx, err := rag.BuildMemoryIndex(ctx, c, []string{"eggs", "butter", "milk"})
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	for i := range 50 {
		if _, err := idx.Query(ctx, fmt.Sprintf("query number %d", i), 2); err != nil {
			t.Fatalf("query %d: %v", i, err)
		}
	}

	n, err := c.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 3 {
		t.Errorf("cache rows after queries = %d, want 3 (corpus only)", n)
	}
}

func Test_Cache_QueryReusesCorpusVector(t *testing.T) {
	t.Parallel()
	next := &countingEmbedder{}
	c := openTestCache(t, ":memory:", next)
	ctx := context.Background()

	if _, err := c.Embed(ctx, []string{"butter"}); err != nil {
		t.Fatalf("embed: %v", err)
	}
	vec, err := c.EmbedQuery(ctx, "butter")
	if err != nil {
		t.Fatalf("embed query: %v", err)
	}
	if next.embedded() != 1 {
		t.Errorf("wrapped embedder saw %v, want only the corpus call", next.seen)
	}
	if vec[0] != 6 {
		t.Errorf("vector = %v, want [6 1]", vec)
	}
}

func Test_Cache_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "embeddings.db")
	ctx := context.Background()

	c1, err := OpenCache(path, &countingEmbedder{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := c1.Embed(ctx, []string{"lentils"}); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	next := &countingEmbedder{}
	c2 := openTestCache(t, path, next)
	out, err := c2.Embed(ctx, []string{"lentils"})
	if err != nil {
		t.Fatalf("embed after reopen: %v", err)
	}
	if next.embedded() != 0 {
		t.Errorf("expected a cache hit after reopen, wrapped embedder saw %v", next.seen)
	}
	if out[0][0] != 7 || out[0][1] != 1 {
		t.Errorf("vector = %v, want [7 1]", out[0])
	}
}

func Test_Cache_WrappedErrorNotCached(t *testing.T) {
	t.Parallel()
	boom := errors.New("backend down")
	next := &countingEmbedder{err: boom}
	c := openTestCache(t, ":memory:", next)

	if _, err := c.Embed(context.Background(), []string{"tofu"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	n, err := c.Len(context.Background())
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no rows after a failed embed, got %d", n)
	}
}

func Test_Cache_VectorCodec(t *testing.T) {
	t.Parallel()
	in := []float32{0, -1.5, 3.25, 1e-7}
	out, ok := decodeVector(encodeVector(in))
	if !ok || len(out) != len(in) {
		t.Fatalf("decode failed: ok=%v out=%v", ok, out)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("element %d: got %v, want %v", i, out[i], in[i])
		}
	}
	if _, ok := decodeVector([]byte{1, 2, 3}); ok {
		t.Error("expected a truncated blob to be rejected")
	}
}

func Test_Cache_NilEmbedder(t *testing.T) {
	t.Parallel()
	if _, err := OpenCache(":memory:", nil); err == nil {
		t.Error("expected an error for a nil wrapped embedder")
	}
}
