// Package search answers free-text recipe queries against the recipe store
// using the embedding index, with a keyword scorer as a degraded mode.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/54b3r/recipeai-go/internal/logging"
	"github.com/54b3r/recipeai-go/internal/rag"
	"github.com/54b3r/recipeai-go/internal/recipe"
)

// DefaultTopK is the number of recipes returned for a non-empty query.
const DefaultTopK = 3

// Mode names how a result set was produced.
type Mode string

const (
	// ModeBrowse means the query was empty and the whole store was returned.
	ModeBrowse Mode = "browse"
	// ModeSemantic means the embedding index ranked the results.
	ModeSemantic Mode = "semantic"
	// ModeKeyword means the index failed and the keyword scorer was used.
	ModeKeyword Mode = "keyword"
)

// Engine maps queries to recipes. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	store *recipe.Store
	index rag.Index
	topK  int
}

// NewEngine wires a store to the index built from it. topK <= 0 selects
// DefaultTopK.
func NewEngine(store *recipe.Store, index rag.Index, topK int) (*Engine, error) {
	if store == nil || index == nil {
		return nil, fmt.Errorf("search: store and index are required")
	}
	if index.Len() != store.Len() {
		return nil, fmt.Errorf("search: index has %d entries but store has %d recipes", index.Len(), store.Len())
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Engine{store: store, index: index, topK: topK}, nil
}

// TopK returns the configured result count.
func (e *Engine) TopK() int { return e.topK }

// Search returns the recipes matching query. An empty or whitespace-only
// query returns every recipe in load order.
func (e *Engine) Search(ctx context.Context, query string) ([]recipe.Recipe, error) {
	recipes, _, err := e.SearchMode(ctx, query)
	return recipes, err
}

// SearchMode is Search that also reports which mode produced the result.
// If the index fails the keyword scorer answers instead; the error is logged,
// not returned.
func (e *Engine) SearchMode(ctx context.Context, query string) ([]recipe.Recipe, Mode, error) {
	if strings.TrimSpace(query) == "" {
		return e.store.All(), ModeBrowse, nil
	}

	hits, err := e.index.Query(ctx, query, e.topK)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", fmt.Errorf("search: %w", ctx.Err())
		}
		logging.FromContext(ctx).Warn("search: index query failed, falling back to keyword scoring",
			slog.String("error", err.Error()),
		)
		return e.keyword(query), ModeKeyword, nil
	}

	out := make([]recipe.Recipe, 0, len(hits))
	for _, h := range hits {
		if h.Index < 0 || h.Index >= e.store.Len() {
			return nil, "", fmt.Errorf("search: index returned position %d outside store of %d", h.Index, e.store.Len())
		}
		out = append(out, e.store.At(h.Index))
	}
	return out, ModeSemantic, nil
}

// DefaultSimilarK is the number of matches Similar returns when k <= 0.
const DefaultSimilarK = 5

var (
	// ErrRecipeNotFound is returned when a reference position is outside the store.
	ErrRecipeNotFound = errors.New("search: recipe not found")
	// ErrNoReference is returned when Similar is given neither a recipe nor text.
	ErrNoReference = errors.New("search: a reference recipe or text is required")
)

// Reference selects what Similar compares against. Position, when set, names
// a stored recipe and takes precedence over Text.
type Reference struct {
	Position *int
	Text     string
}

// Match is one recipe with its similarity to the reference.
type Match struct {
	Recipe recipe.Recipe `json:"recipe"`
	// Score is the cosine similarity in [-1, 1]; higher is closer.
	Score float32 `json:"similarity_score"`
}

// Similar ranks the stored recipes by similarity to ref and returns the best
// k with their scores. A reference recipe is compared by its search text, so
// it normally ranks first against itself. Unlike Search there is no keyword
// fallback: an index failure is returned, since keyword hits carry no score.
func (e *Engine) Similar(ctx context.Context, ref Reference, k int) ([]Match, error) {
	text := ref.Text
	if ref.Position != nil {
		pos := *ref.Position
		if pos < 0 || pos >= e.store.Len() {
			return nil, fmt.Errorf("%w: position %d of %d", ErrRecipeNotFound, pos, e.store.Len())
		}
		r := e.store.At(pos)
		text = r.SearchText()
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoReference
	}
	if k <= 0 {
		k = DefaultSimilarK
	}

	hits, err := e.index.Query(ctx, text, k)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("search: %w", ctx.Err())
		}
		return nil, fmt.Errorf("search: similar: %w", err)
	}

	out := make([]Match, 0, len(hits))
	for _, h := range hits {
		if h.Index < 0 || h.Index >= e.store.Len() {
			return nil, fmt.Errorf("search: index returned position %d outside store of %d", h.Index, e.store.Len())
		}
		out = append(out, Match{Recipe: e.store.At(h.Index), Score: h.Score})
	}
	return out, nil
}
