package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Store is the ordered, immutable recipe collection.
type Store struct {
	// recipes is the load-ordered sequence. Never mutated after construction.
	recipes []Recipe
}

// dataset is the on-disk wrapper layout: {"recipes": [...]}.
type dataset struct {
	Recipes []Recipe `json:"recipes"`
}

// NewStore builds a Store from recipes, validating every entry. The slice is
// copied so later changes by the caller do not leak into the store.
func NewStore(recipes []Recipe) (*Store, error) {
	for i := range recipes {
		if err := recipes[i].Validate(); err != nil {
			return nil, fmt.Errorf("recipe %d: %w", i, err)
		}
	}
	cp := make([]Recipe, len(recipes))
	copy(cp, recipes)
	return &Store{recipes: cp}, nil
}

// Load reads the dataset file at path. A failure here is a startup error.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("recipe: open %s: %w", path, err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("recipe: load %s: %w", path, err)
	}
	return s, nil
}

// Decode parses a dataset from r. Both the wrapped object form and a bare
// JSON array are accepted.
func Decode(r io.Reader) (*Store, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("recipe: read dataset: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("recipe: dataset is empty")
	}

	var recipes []Recipe
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &recipes); err != nil {
			return nil, fmt.Errorf("recipe: parse dataset: %w", err)
		}
	} else {
		var ds dataset
		if err := json.Unmarshal(trimmed, &ds); err != nil {
			return nil, fmt.Errorf("recipe: parse dataset: %w", err)
		}
		recipes = ds.Recipes
	}

	return NewStore(recipes)
}

// Len returns the number of recipes.
func (s *Store) Len() int { return len(s.recipes) }

// At returns the recipe at position i. It panics if i is out of range, like
// a slice index; callers only pass positions produced by the index.
func (s *Store) At(i int) Recipe { return s.recipes[i] }

// All returns every recipe in load order. The returned slice is a copy.
func (s *Store) All() []Recipe {
	out := make([]Recipe, len(s.recipes))
	copy(out, s.recipes)
	return out
}

// Texts returns the searchable text of every recipe, parallel to load order.
func (s *Store) Texts() []string {
	out := make([]string, len(s.recipes))
	for i := range s.recipes {
		out[i] = s.recipes[i].SearchText()
	}
	return out
}
