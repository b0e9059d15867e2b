// Package version holds build-time version information for the recipeai binary.
// The variables in this package are populated at build time via -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/recipeai-go/internal/version.Version=v0.3.0 \
//	                    -X github.com/54b3r/recipeai-go/internal/version.Commit=abc1234 \
//	                    -X github.com/54b3r/recipeai-go/internal/version.BuildDate=2026-01-01"
//
// Without ldflags the values fall back to readable defaults.
package version

import "fmt"

// Version is the semantic version of the binary (e.g. "v1.2.3").
var Version = "dev"

// Commit is the short git SHA the binary was built from.
var Commit = "unknown"

// BuildDate is the UTC build date (RFC3339).
var BuildDate = "unknown"

// String renders the one-line form printed by `recipeai version`.
func String() string {
	return fmt.Sprintf("recipeai %s (commit %s, built %s)", Version, Commit, BuildDate)
}
