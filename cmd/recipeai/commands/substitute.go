package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/recipeai-go/internal/assistant"
	"github.com/54b3r/recipeai-go/internal/logging"
)

// NewSubstituteCmd constructs the `recipeai substitute` command.
func NewSubstituteCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "substitute [ingredient]",
		Short: "Suggest a replacement for an ingredient",
		Long: `Suggest a replacement for an ingredient. The built-in table is checked
first, then the chat model (if MODEL_PROVIDER is set).

Examples:
  recipeai substitute butter
  recipeai substitute "heavy cream"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, logging.FromContext(ctx), nil)
			if err != nil {
				return fmt.Errorf("substitute: %w", err)
			}
			defer a.Close()

			res, err := a.assistant.Do(ctx, assistant.Request{
				Kind:       assistant.KindSubstitute,
				Ingredient: strings.Join(args, " "),
			})
			if err != nil {
				return fmt.Errorf("substitute: %w", err)
			}
			return printResult(cmd.OutOrStdout(), res, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
