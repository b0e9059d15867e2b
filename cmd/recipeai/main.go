// Command recipeai is the entry point for the recipe assistant. It provides
// a CLI (via Cobra) for one-off searches and substitutions and an HTTP server
// exposing the same operations as a JSON API.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/recipeai-go/cmd/recipeai/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
