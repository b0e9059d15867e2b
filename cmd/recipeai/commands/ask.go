package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/recipeai-go/internal/logging"
)

// NewAskCmd constructs the `recipeai ask` command, which classifies free text
// and routes it to search or substitution.
func NewAskCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask [text]",
		Short: "Ask in plain language",
		Long: `Ask a free-text question. Text mentioning "substitute", "replacement"
or "instead of" is treated as a substitution request; anything else is a
recipe search.

Examples:
  recipeai ask "What can I substitute for butter?"
  recipeai ask "Show me pasta recipes"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, logging.FromContext(ctx), nil)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer a.Close()

			res, err := a.assistant.Handle(ctx, strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			return printResult(cmd.OutOrStdout(), res, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
