package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/recipeai-go/internal/assistant"
	"github.com/54b3r/recipeai-go/internal/logging"
	"github.com/54b3r/recipeai-go/internal/search"
)

// NewSimilarCmd constructs the `recipeai similar` command.
func NewSimilarCmd() *cobra.Command {
	var (
		asJSON bool
		recipe int
		k      int
	)

	cmd := &cobra.Command{
		Use:   "similar [text]",
		Short: "Find recipes similar to a recipe or a description",
		Long: `Rank recipes by similarity and print them with their scores. Pass
either a description as arguments or --recipe with a dataset position
(starting at 1, as printed by "recipeai search").

Examples:
  recipeai similar "creamy mushroom dinner"
  recipeai similar --recipe 8 -k 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := assistant.Request{Kind: assistant.KindSimilar, Query: strings.Join(args, " "), K: k}
			if cmd.Flags().Changed("recipe") {
				if recipe < 1 {
					return fmt.Errorf("similar: --recipe must be 1 or more, got %d", recipe)
				}
				pos := recipe - 1
				req.Recipe = &pos
			} else if strings.TrimSpace(req.Query) == "" {
				return fmt.Errorf("similar: %w", search.ErrNoReference)
			}

			ctx := cmd.Context()
			a, err := buildApp(ctx, logging.FromContext(ctx), nil)
			if err != nil {
				return fmt.Errorf("similar: %w", err)
			}
			defer a.Close()

			res, err := a.assistant.Do(ctx, req)
			if err != nil {
				return fmt.Errorf("similar: %w", err)
			}
			return printResult(cmd.OutOrStdout(), res, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().IntVar(&recipe, "recipe", 0, "Reference recipe by its 1-based dataset position")
	cmd.Flags().IntVarP(&k, "top-k", "k", search.DefaultSimilarK, "Number of matches to return")
	return cmd
}
