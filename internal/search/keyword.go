package search

import (
	"sort"
	"strings"

	"github.com/54b3r/recipeai-go/internal/recipe"
)

// Keyword weights: a whole-query match in the name counts most, then each
// matching ingredient, then the cuisine.
const (
	nameWeight       = 3
	ingredientWeight = 2
	cuisineWeight    = 1
)

// keywordScore scores r against an already lower-cased query by substring
// containment.
func keywordScore(r *recipe.Recipe, q string) int {
	score := 0
	if strings.Contains(strings.ToLower(r.Name), q) {
		score += nameWeight
	}
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing), q) {
			score += ingredientWeight
		}
	}
	if r.Cuisine != "" && strings.Contains(strings.ToLower(r.Cuisine), q) {
		score += cuisineWeight
	}
	return score
}

// keyword returns up to topK recipes with a positive score, best first, ties
// in load order.
func (e *Engine) keyword(query string) []recipe.Recipe {
	q := strings.ToLower(strings.TrimSpace(query))

	type scored struct {
		pos   int
		score int
	}
	all := e.store.All()
	ranked := make([]scored, 0, len(all))
	for i := range all {
		if s := keywordScore(&all[i], q); s > 0 {
			ranked = append(ranked, scored{pos: i, score: s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > e.topK {
		ranked = ranked[:e.topK]
	}

	out := make([]recipe.Recipe, len(ranked))
	for i, s := range ranked {
		out[i] = all[s.pos]
	}
	return out
}
