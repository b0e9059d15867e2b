package embedder

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ErrNotFitted is returned by TFIDFEmbedder.Embed before Fit has been called.
var ErrNotFitted = errors.New("tfidf embedder: not fitted")

// tokenPattern matches runs of letters, keeping in-word apostrophes.
var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// TFIDFEmbedder is a local, deterministic embedder. Fit builds a sorted
// vocabulary and smoothed IDF weights from the recipe corpus; Embed then
// produces L2-normalised TF-IDF vectors over that vocabulary. The same corpus
// always yields the same vector space, so rebuilding an index is idempotent.
type TFIDFEmbedder struct {
	mu sync.RWMutex
	// vocabulary maps a term to its vector position.
	vocabulary map[string]int
	// idf holds one weight per vocabulary position.
	idf []float64
	// fitted is set once Fit has succeeded.
	fitted bool
}

// NewTFIDFEmbedder returns an unfitted embedder.
func NewTFIDFEmbedder() *TFIDFEmbedder {
	return &TFIDFEmbedder{vocabulary: map[string]int{}}
}

// ModelID identifies the embedding function for cache keys and logs.
func (e *TFIDFEmbedder) ModelID() string { return "local/tfidf" }

// Fit builds the vocabulary and IDF weights from corpus. An empty corpus (or
// one with no tokens) fits to a one-dimensional space so the index stays
// usable; every vector in it is zero.
func (e *TFIDFEmbedder) Fit(corpus []string) error {
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		vocab[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	if len(idf) == 0 {
		idf = []float64{0}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.vocabulary = vocab
	e.idf = idf
	e.fitted = true
	return nil
}

// Dimension returns the vector length, or 0 before Fit.
func (e *TFIDFEmbedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.fitted {
		return 0
	}
	return len(e.idf)
}

// Embed returns one TF-IDF vector per text. Terms outside the fitted
// vocabulary are ignored.
func (e *TFIDFEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.fitted {
		return nil, ErrNotFitted
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

// vector computes a single embedding. Callers hold e.mu.
func (e *TFIDFEmbedder) vector(text string) []float32 {
	vec := make([]float32, len(e.idf))

	tf := make(map[int]int)
	total := 0
	for _, tok := range tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec
	}

	weights := make([]float64, len(e.idf))
	var norm float64
	for idx, count := range tf {
		w := float64(count) / float64(total) * e.idf[idx]
		weights[idx] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for i, w := range weights {
		if w != 0 {
			vec[i] = float32(w / norm)
		}
	}
	return vec
}

// tokenize lower-cases text and returns its letter tokens minus stopwords.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// stopwords are dropped before weighting. The list includes request filler
// ("show", "me", "recipes") so conversational queries rank on their content words.
var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on",
		"at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "it", "this", "that",
		"these", "those", "from", "up", "into", "about", "until", "than", "so", "can", "will",
		"just", "should", "now", "i", "me", "my", "you", "some", "any", "what", "how", "show",
		"give", "find", "want", "recipe", "recipes", "make",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
