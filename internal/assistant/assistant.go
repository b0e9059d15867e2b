// Package assistant is the single entry point the CLI and HTTP layers talk
// to. It routes a request to recipe search, similar-recipe lookup, a grounded
// answer or ingredient substitution, classifying free text by trigger phrase
// when the caller does not state the intent explicitly.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/54b3r/recipeai-go/internal/logging"
	"github.com/54b3r/recipeai-go/internal/recipe"
	"github.com/54b3r/recipeai-go/internal/search"
	"github.com/54b3r/recipeai-go/internal/substitution"
)

// RequestKind selects the operation for Do.
type RequestKind string

const (
	// KindSearch runs a recipe search.
	KindSearch RequestKind = "search"
	// KindSubstitute asks for an ingredient substitution.
	KindSubstitute RequestKind = "substitute"
	// KindSimilar ranks recipes against a stored recipe or free text.
	KindSimilar RequestKind = "similar"
	// KindAnswer answers a question from the retrieved recipes.
	KindAnswer RequestKind = "answer"
)

// ResultKind tags the variant carried by a Result.
type ResultKind string

const (
	// ResultRecipes carries Items.
	ResultRecipes ResultKind = "recipes"
	// ResultSubstitution carries Text.
	ResultSubstitution ResultKind = "substitution"
	// ResultMatches carries Matches.
	ResultMatches ResultKind = "matches"
	// ResultAnswer carries Text and the recipes it was grounded on in Items.
	ResultAnswer ResultKind = "answer"
)

// Request is an explicit, already-classified request.
type Request struct {
	Kind RequestKind
	// Query is the search text (KindSearch), the question (KindAnswer) or the
	// reference text (KindSimilar).
	Query string
	// Ingredient is the ingredient to replace (KindSubstitute).
	Ingredient string
	// Recipe is the reference recipe position (KindSimilar). It wins over Query.
	Recipe *int
	// K is the number of matches (KindSimilar); <= 0 selects the default.
	K int
}

// Result is the tagged answer. Kind selects which of Items, Matches and Text
// are meaningful.
type Result struct {
	Kind    ResultKind      `json:"kind"`
	Items   []recipe.Recipe `json:"items"`
	Matches []search.Match  `json:"matches"`
	Text    string          `json:"text"`

	// Mode reports how a recipe result was produced.
	Mode search.Mode `json:"-"`
	// Source reports which step produced a substitution.
	Source substitution.Source `json:"-"`
}

// MarshalJSON writes only the fields Kind selects. Recipe lists are always
// arrays, never null.
func (r Result) MarshalJSON() ([]byte, error) {
	type wire struct {
		Kind    ResultKind       `json:"kind"`
		Items   *[]recipe.Recipe `json:"items,omitempty"`
		Matches *[]search.Match  `json:"matches,omitempty"`
		Text    *string          `json:"text,omitempty"`
	}
	w := wire{Kind: r.Kind}
	items := r.Items
	if items == nil {
		items = []recipe.Recipe{}
	}
	switch r.Kind {
	case ResultRecipes:
		w.Items = &items
	case ResultMatches:
		matches := r.Matches
		if matches == nil {
			matches = []search.Match{}
		}
		w.Matches = &matches
	case ResultSubstitution:
		w.Text = &r.Text
	case ResultAnswer:
		w.Items = &items
		w.Text = &r.Text
	}
	return json.Marshal(w)
}

// Searcher is the recipe search dependency.
type Searcher interface {
	SearchMode(ctx context.Context, query string) ([]recipe.Recipe, search.Mode, error)
	Similar(ctx context.Context, ref search.Reference, k int) ([]search.Match, error)
}

// Answerer writes a reply to question grounded on sources.
type Answerer interface {
	Answer(ctx context.Context, question string, sources []recipe.Recipe) (string, error)
}

// Resolver is the substitution dependency.
type Resolver interface {
	Resolve(ctx context.Context, ingredient string) substitution.Suggestion
}

// Assistant routes requests. It is immutable after construction.
type Assistant struct {
	search   Searcher
	resolver Resolver
	// answerer is nil when no chat model is configured.
	answerer Answerer
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithAnswerer enables grounded answers. Without one, KindAnswer returns the
// retrieved recipes as a plain listing.
func WithAnswerer(ans Answerer) Option {
	return func(a *Assistant) { a.answerer = ans }
}

// New builds an Assistant over the given engine and resolver.
func New(searcher Searcher, resolver Resolver, opts ...Option) *Assistant {
	a := &Assistant{search: searcher, resolver: resolver}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Grounded reports whether answers come from a chat model.
func (a *Assistant) Grounded() bool { return a.answerer != nil }

// Search runs a recipe search.
func (a *Assistant) Search(ctx context.Context, query string) ([]recipe.Recipe, error) {
	items, _, err := a.search.SearchMode(ctx, query)
	return items, err
}

// Substitute returns a substitution suggestion. It never fails.
func (a *Assistant) Substitute(ctx context.Context, ingredient string) string {
	return a.resolver.Resolve(ctx, ingredient).Text
}

// Similar ranks recipes by similarity to ref.
func (a *Assistant) Similar(ctx context.Context, ref search.Reference, k int) ([]search.Match, error) {
	return a.search.Similar(ctx, ref, k)
}

// Answer replies to question from the top search results. See KindAnswer.
func (a *Assistant) Answer(ctx context.Context, question string) (Result, error) {
	return a.Do(ctx, Request{Kind: KindAnswer, Query: question})
}

// Do executes an explicit request.
func (a *Assistant) Do(ctx context.Context, req Request) (Result, error) {
	switch req.Kind {
	case KindSearch:
		items, mode, err := a.search.SearchMode(ctx, req.Query)
		if err != nil {
			return Result{}, err
		}
		if items == nil {
			items = []recipe.Recipe{}
		}
		return Result{Kind: ResultRecipes, Items: items, Mode: mode}, nil
	case KindSubstitute:
		s := a.resolver.Resolve(ctx, req.Ingredient)
		return Result{Kind: ResultSubstitution, Text: s.Text, Source: s.Source}, nil
	case KindSimilar:
		matches, err := a.search.Similar(ctx, search.Reference{Position: req.Recipe, Text: req.Query}, req.K)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: ResultMatches, Matches: matches}, nil
	case KindAnswer:
		return a.answer(ctx, req.Query)
	default:
		return Result{}, fmt.Errorf("assistant: unknown request kind %q", req.Kind)
	}
}

// answer retrieves the top recipes for question and asks the model about them.
// A blank question, a missing model or a failed model call all degrade to
// the retrieved recipes as a plain listing.
func (a *Assistant) answer(ctx context.Context, question string) (Result, error) {
	items, mode, err := a.search.SearchMode(ctx, question)
	if err != nil {
		return Result{}, err
	}
	if items == nil {
		items = []recipe.Recipe{}
	}
	listing := Result{Kind: ResultRecipes, Items: items, Mode: mode}
	if a.answerer == nil || strings.TrimSpace(question) == "" {
		return listing, nil
	}

	text, err := a.answerer.Answer(ctx, question, items)
	if err != nil {
		logging.FromContext(ctx).Warn("assistant: answer failed, returning recipe listing",
			slog.String("error", err.Error()),
		)
		return listing, nil
	}
	return Result{Kind: ResultAnswer, Items: items, Text: text, Mode: mode}, nil
}

// Handle classifies free text and executes it.
func (a *Assistant) Handle(ctx context.Context, text string) (Result, error) {
	return a.Do(ctx, Classify(text))
}

// triggers are tested in this order; the first one present wins.
var triggers = []string{"substitute", "replacement", "instead of"}

// connectors are dropped once from the front of an extracted ingredient.
var connectors = []string{"for", "of"}

// Classify turns free text into a Request. Text containing a trigger phrase
// (case-insensitive) becomes a substitution for whatever follows the phrase;
// anything else is a search for the whole text.
func Classify(text string) Request {
	lower := strings.ToLower(text)
	for _, trig := range triggers {
		i := strings.Index(lower, trig)
		if i < 0 {
			continue
		}
		// Lower-casing may change byte lengths for some scripts; fall back to
		// the lower-cased remainder when offsets do not line up.
		rest := lower[i+len(trig):]
		if len(lower) == len(text) {
			rest = text[i+len(trig):]
		}
		// "substitutes", "substitution" and "replacements" match their trigger
		// as a prefix; skip the rest of that word.
		rest = strings.TrimLeftFunc(rest, unicode.IsLetter)
		return Request{Kind: KindSubstitute, Ingredient: extractIngredient(rest)}
	}
	return Request{Kind: KindSearch, Query: text}
}

// extractIngredient trims the remainder after a trigger phrase, strips one
// leading connector word and trailing punctuation.
func extractIngredient(rest string) string {
	s := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), "?!.,"))
	lower := strings.ToLower(s)
	for _, c := range connectors {
		if lower == c {
			return ""
		}
		if strings.HasPrefix(lower, c+" ") {
			return strings.TrimSpace(s[len(c):])
		}
	}
	return s
}
