package embedder

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/54b3r/recipeai-go/internal/rag"
)

var recipeTexts = []string{
	"Spaghetti Carbonara Italian spaghetti eggs pancetta parmesan cheese",
	"Chicken and Mushroom Stir Fry Chinese chicken breast mushrooms soy sauce",
	"Beef Tacos Mexican ground beef tortillas cheese salsa",
	"Mushroom Risotto Italian arborio rice mushrooms heavy cream parmesan",
	"Greek Salad Greek tomatoes cucumber feta olives",
}

func TestTFIDF_EmbedBeforeFit(t *testing.T) {
	t.Parallel()

	_, err := NewTFIDFEmbedder().Embed(context.Background(), []string{"chicken"})
	if !errors.Is(err, ErrNotFitted) {
		t.Errorf("expected ErrNotFitted, got %v", err)
	}
}

func TestTFIDF_VectorsAreUnitLength(t *testing.T) {
	t.Parallel()

	e := NewTFIDFEmbedder()
	if err := e.Fit(recipeTexts); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	vecs, err := e.Embed(context.Background(), recipeTexts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i, v := range vecs {
		if len(v) != e.Dimension() {
			t.Fatalf("vector %d has dim %d, want %d", i, len(v), e.Dimension())
		}
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		if math.Abs(math.Sqrt(sum)-1) > 1e-5 {
			t.Errorf("vector %d norm = %f, want 1", i, math.Sqrt(sum))
		}
	}
}

func TestTFIDF_UnknownTermsGiveZeroVector(t *testing.T) {
	t.Parallel()

	e := NewTFIDFEmbedder()
	if err := e.Fit(recipeTexts); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	vecs, err := e.Embed(context.Background(), []string{"unobtainium", "", "the and of"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i, v := range vecs {
		for _, x := range v {
			if x != 0 {
				t.Errorf("text %d: expected zero vector, got %v", i, v)
				break
			}
		}
	}
}

func TestTFIDF_EmptyCorpus(t *testing.T) {
	t.Parallel()

	e := NewTFIDFEmbedder()
	if err := e.Fit(nil); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if e.Dimension() != 1 {
		t.Errorf("Dimension() = %d, want 1 for an empty corpus", e.Dimension())
	}
}

func TestTFIDF_Tokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"Show me PASTA recipes", []string{"pasta"}},
		{"chicken, mushrooms & rice!", []string{"chicken", "mushrooms", "rice"}},
		{"Shepherd's pie", []string{"shepherd's", "pie"}},
		{"  ", nil},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got := tokenize(tc.in)
			if len(got) != len(tc.want) {
				t.Fatalf("tokenize(%q) = %v, want %v", tc.in, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("tokenize(%q)[%d] = %q, want %q", tc.in, i, got[i], tc.want[i])
				}
			}
		})
	}
}

// A recipe containing both query terms must rank at or above any recipe
// sharing neither.
func TestTFIDF_MemoryIndexRanking(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx, err := rag.BuildMemoryIndex(ctx, NewTFIDFEmbedder(), recipeTexts)
	if err != nil {
		t.Fatalf("BuildMemoryIndex: %v", err)
	}
	hits, err := idx.Query(ctx, "chicken mushrooms", len(recipeTexts))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if hits[0].Index != 1 {
		t.Errorf("top hit = %d, want 1 (stir fry)", hits[0].Index)
	}

	pos := make(map[int]int, len(hits))
	for rank, h := range hits {
		pos[h.Index] = rank
	}
	for _, neither := range []int{0, 2, 4} {
		if pos[1] > pos[neither] {
			t.Errorf("stir fry ranked below recipe %d: %+v", neither, hits)
		}
	}
}

func TestTFIDF_RefitIsDeterministic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a, b := NewTFIDFEmbedder(), NewTFIDFEmbedder()
	if err := a.Fit(recipeTexts); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if err := b.Fit(recipeTexts); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	va, _ := a.Embed(ctx, []string{"parmesan mushrooms"})
	vb, _ := b.Embed(ctx, []string{"parmesan mushrooms"})
	for i := range va[0] {
		if va[0][i] != vb[0][i] {
			t.Fatalf("vectors differ at %d: %v vs %v", i, va[0][i], vb[0][i])
		}
	}
}
