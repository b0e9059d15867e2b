package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/recipeai-go/internal/logging"
)

// NewAnswerCmd constructs the `recipeai answer` command.
func NewAnswerCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "answer [question]",
		Short: "Answer a cooking question from the matching recipes",
		Long: `Retrieve the recipes that best match the question and ask the chat
model to answer from them. Without MODEL_PROVIDER, or if the model call
fails, the matching recipes are listed instead.

Examples:
  recipeai answer "What can I cook with mushrooms and rice?"
  MODEL_PROVIDER=ollama recipeai answer "Which pasta dish is vegetarian?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, logging.FromContext(ctx), nil)
			if err != nil {
				return fmt.Errorf("answer: %w", err)
			}
			defer a.Close()

			res, err := a.assistant.Answer(ctx, strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("answer: %w", err)
			}
			return printResult(cmd.OutOrStdout(), res, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
