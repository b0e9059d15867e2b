// Package commands defines all Cobra CLI commands for the recipeai binary.
package commands

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/54b3r/recipeai-go/internal/audit"
	"github.com/54b3r/recipeai-go/internal/config"
	"github.com/54b3r/recipeai-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "recipeai",
		Short: "Recipe search and ingredient substitution assistant",
		Long: `recipeai finds recipes in a local dataset by meaning rather than exact
keywords, ranks recipes similar to one you like and suggests replacements
for ingredients you are missing.

Substitutions come from a built-in table first; when MODEL_PROVIDER is set,
unknown ingredients are sent to a chat model before falling back to a
fixed message. The same model answers free-form cooking questions from the
best matching recipes.

Configuration is read from a .env file, a YAML config file
(~/.recipeai/config.yaml or --config) and environment variables, with the
environment always winning.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			bootLog := logging.New()
			path, err := config.Load(configPath, bootLog)
			if err != nil {
				return err
			}

			// Rebuild after the YAML file may have set LOG_LEVEL / LOG_FORMAT.
			log := logging.New()
			cmd.SetContext(logging.WithLogger(cmd.Context(), log))

			audit.LogCommandStart(cmd.Context(), log, cmd.Name(), path)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.recipeai/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewSearchCmd(),
		NewSubstituteCmd(),
		NewAskCmd(),
		NewSimilarCmd(),
		NewAnswerCmd(),
		NewVersionCmd(),
	)

	return root
}
