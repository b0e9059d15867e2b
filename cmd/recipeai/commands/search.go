package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/recipeai-go/internal/assistant"
	"github.com/54b3r/recipeai-go/internal/logging"
)

// NewSearchCmd constructs the `recipeai search` command.
func NewSearchCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Find recipes by meaning",
		Long: `Search the recipe dataset. With no query every recipe is listed in
dataset order.

Examples:
  recipeai search "quick chicken dinner"
  recipeai search --json pasta
  recipeai search`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, logging.FromContext(ctx), nil)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer a.Close()

			res, err := a.assistant.Do(ctx, assistant.Request{
				Kind:  assistant.KindSearch,
				Query: strings.Join(args, " "),
			})
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			return printResult(cmd.OutOrStdout(), res, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
