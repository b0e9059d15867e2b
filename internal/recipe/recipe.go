// Package recipe holds the Recipe record and the read-only Store loaded from
// the static dataset at startup. A Store is never mutated after Load returns,
// so it is safe to share across goroutines without locking.
package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoName is returned when a dataset entry has an empty name.
var ErrNoName = errors.New("recipe: name is required")

// Recipe is a single dataset entry.
type Recipe struct {
	// Name is the display name. Required; uniqueness is not enforced.
	Name string `json:"name"`
	// Cuisine is an optional cuisine label (e.g. "Italian").
	Cuisine string `json:"cuisine,omitempty"`
	// PrepTime is a free-form display string (e.g. "15 minutes").
	PrepTime string `json:"prep_time,omitempty"`
	// CookTime is a free-form display string.
	CookTime string `json:"cook_time,omitempty"`
	// Servings is the number of portions; zero means unknown.
	Servings int `json:"servings,omitempty"`
	// Ingredients is the ordered ingredient list.
	Ingredients []string `json:"ingredients"`
	// Instructions is the ordered list of steps.
	Instructions Steps `json:"instructions"`
}

// Steps is an ordered list of instruction steps. Legacy datasets store the
// whole method as one string; UnmarshalJSON accepts both shapes.
type Steps []string

// UnmarshalJSON decodes either a JSON array of strings or a single string.
func (s *Steps) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("recipe: instructions must be a string or a list of strings: %w", err)
	}
	if strings.TrimSpace(single) == "" {
		*s = Steps{}
		return nil
	}
	*s = Steps{single}
	return nil
}

// Validate reports whether r is usable.
func (r *Recipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrNoName
	}
	return nil
}

// SearchText returns the text embedded for r: name, cuisine, ingredients and
// instructions concatenated in that order.
func (r *Recipe) SearchText() string {
	parts := make([]string, 0, 2+len(r.Ingredients)+len(r.Instructions))
	parts = append(parts, r.Name)
	if r.Cuisine != "" {
		parts = append(parts, r.Cuisine)
	}
	parts = append(parts, r.Ingredients...)
	parts = append(parts, r.Instructions...)
	return strings.Join(parts, " ")
}
