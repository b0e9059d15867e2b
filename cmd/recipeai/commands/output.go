package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/54b3r/recipeai-go/internal/assistant"
	"github.com/54b3r/recipeai-go/internal/recipe"
	"github.com/54b3r/recipeai-go/internal/search"
)

// printResult writes res as indented JSON or as plain text. The JSON shape is
// the one Result.MarshalJSON defines, shared with the HTTP API.
func printResult(w io.Writer, res assistant.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	switch res.Kind {
	case assistant.ResultSubstitution:
		_, err := fmt.Fprintln(w, res.Text)
		return err
	case assistant.ResultMatches:
		return printMatches(w, res.Matches)
	case assistant.ResultAnswer:
		if _, err := fmt.Fprintf(w, "%s\n\nBased on:\n", res.Text); err != nil {
			return err
		}
	}
	return printRecipes(w, res.Items)
}

// printMatches renders a numbered list of recipes with similarity scores.
func printMatches(w io.Writer, matches []search.Match) error {
	if len(matches) == 0 {
		_, err := fmt.Fprintln(w, "No recipes found.")
		return err
	}
	var b strings.Builder
	for i, m := range matches {
		fmt.Fprintf(&b, "%d. %s [%.3f]", i+1, m.Recipe.Name, m.Score)
		if meta := recipeMeta(m.Recipe); meta != "" {
			fmt.Fprintf(&b, " (%s)", meta)
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// printRecipes renders a numbered recipe list.
func printRecipes(w io.Writer, items []recipe.Recipe) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No recipes found.")
		return err
	}
	var b strings.Builder
	for i, r := range items {
		fmt.Fprintf(&b, "%d. %s", i+1, r.Name)
		if meta := recipeMeta(r); meta != "" {
			fmt.Fprintf(&b, " (%s)", meta)
		}
		b.WriteByte('\n')
		if len(r.Ingredients) > 0 {
			fmt.Fprintf(&b, "   Ingredients: %s\n", strings.Join(r.Ingredients, ", "))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func recipeMeta(r recipe.Recipe) string {
	var parts []string
	if r.Cuisine != "" {
		parts = append(parts, r.Cuisine)
	}
	if r.PrepTime != "" {
		parts = append(parts, "prep "+r.PrepTime)
	}
	if r.CookTime != "" {
		parts = append(parts, "cook "+r.CookTime)
	}
	if r.Servings > 0 {
		parts = append(parts, fmt.Sprintf("serves %d", r.Servings))
	}
	return strings.Join(parts, ", ")
}
