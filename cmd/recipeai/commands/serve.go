package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/recipeai-go/internal/logging"
	"github.com/54b3r/recipeai-go/internal/server"
)

// NewServeCmd constructs the `recipeai serve` command, which builds the index
// and starts the HTTP API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the recipe assistant HTTP API",
		Long: `Build the recipe index and serve the JSON API.

Endpoints:
  POST /api/search       {"query": "..."}
  POST /api/substitute   {"ingredient": "..."}
  POST /api/ask          {"text": "..."}
  GET  /api/health, /api/ready, /metrics

Examples:
  recipeai serve
  recipeai serve --port 5000
  MODEL_PROVIDER=ollama recipeai serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.FromContext(ctx)

			metrics := server.NewMetrics(prometheus.DefaultRegisterer)

			a, err := buildApp(ctx, log, metrics)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer a.Close()

			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("RECIPEAI_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("RECIPEAI_PORT", port)
			}

			srv, err := server.New(a.assistant, &server.Config{
				Host:        host,
				Port:        port,
				Logger:      log,
				Pingers:     a.pingers,
				RateLimit:   getEnvFloat("RECIPEAI_RATE_LIMIT", 0),
				RateBurst:   getEnvInt("RECIPEAI_RATE_BURST", 0),
				CORSOrigins: getEnvList("RECIPEAI_CORS_ORIGINS"),
				Metrics:     metrics,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			log.Info("serve starting", slog.Int("readiness_probes", len(a.pingers)))
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to (env RECIPEAI_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on (env RECIPEAI_PORT)")

	return cmd
}
