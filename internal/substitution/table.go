// Package substitution suggests replacements for cooking ingredients. A
// Resolver answers from a static Table first, then from an optional chat
// model, and finally from a fixed fallback text; it never returns an error.
package substitution

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Replacement is one suggested substitute with an optional ratio note.
type Replacement struct {
	// Replacement is the substitute ingredient (e.g. "coconut cream").
	Replacement string `yaml:"replacement"`
	// Ratio is an optional free-form note (e.g. "1:1", "1 tbsp per egg").
	Ratio string `yaml:"ratio,omitempty"`
}

// String renders r as "replacement (ratio)", or just the replacement when no
// ratio is recorded.
func (r Replacement) String() string {
	if r.Ratio == "" {
		return r.Replacement
	}
	return fmt.Sprintf("%s (%s)", r.Replacement, r.Ratio)
}

// Table maps normalized ingredient names to their replacements. It is built
// once and read-only afterwards, so concurrent lookups need no locking.
type Table struct {
	entries map[string][]Replacement
}

// tableFile is the on-disk YAML layout.
type tableFile struct {
	Substitutions map[string][]Replacement `yaml:"substitutions"`
}

// defaultEntries is the built-in table used when no file is configured.
var defaultEntries = map[string]string{
	"chicken breast":       "tofu",
	"beef":                 "mushrooms",
	"milk":                 "almond milk",
	"cream":                "coconut cream",
	"soy sauce":            "coconut aminos",
	"eggs":                 "flax eggs",
	"butter":               "olive oil",
	"cheese":               "nutritional yeast",
	"heavy cream":          "coconut cream",
	"ground beef":          "lentils",
	"fish sauce":           "coconut aminos",
	"oyster sauce":         "mushroom sauce",
	"worcestershire sauce": "soy sauce",
}

// DefaultTable returns the built-in substitution table.
func DefaultTable() *Table {
	entries := make(map[string][]Replacement, len(defaultEntries))
	for name, repl := range defaultEntries {
		entries[name] = []Replacement{{Replacement: repl}}
	}
	return &Table{entries: entries}
}

// NewTable builds a table from explicit entries. Keys are normalized; entries
// with no usable replacement are rejected so a lookup hit always has text.
func NewTable(entries map[string][]Replacement) (*Table, error) {
	t := &Table{entries: make(map[string][]Replacement, len(entries))}
	for name, repls := range entries {
		key := Normalize(name)
		if key == "" {
			return nil, fmt.Errorf("substitution: empty ingredient name in table")
		}
		var kept []Replacement
		for _, r := range repls {
			r.Replacement = strings.TrimSpace(r.Replacement)
			r.Ratio = strings.TrimSpace(r.Ratio)
			if r.Replacement == "" {
				return nil, fmt.Errorf("substitution: entry %q has an empty replacement", name)
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			return nil, fmt.Errorf("substitution: entry %q has no replacements", name)
		}
		if _, dup := t.entries[key]; dup {
			return nil, fmt.Errorf("substitution: duplicate entry %q after normalization", key)
		}
		t.entries[key] = kept
	}
	return t, nil
}

// LoadTable reads a YAML table file. The file replaces the built-in table
// entirely.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("substitution: failed to read %s: %w", path, err)
	}
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("substitution: failed to parse %s: %w", path, err)
	}
	t, err := NewTable(f.Substitutions)
	if err != nil {
		return nil, fmt.Errorf("%w (in %s)", err, path)
	}
	return t, nil
}

// Lookup returns the rendered suggestion for ingredient and whether it was
// found. Replacements are joined with " or ".
func (t *Table) Lookup(ingredient string) (string, bool) {
	repls, ok := t.entries[Normalize(ingredient)]
	if !ok {
		return "", false
	}
	parts := make([]string, len(repls))
	for i, r := range repls {
		parts[i] = r.String()
	}
	return strings.Join(parts, " or "), true
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Names returns the table's ingredient names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for n := range t.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Normalize trims and lower-cases an ingredient name.
func Normalize(ingredient string) string {
	return strings.ToLower(strings.TrimSpace(ingredient))
}
