package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/54b3r/recipeai-go/internal/answer"
	"github.com/54b3r/recipeai-go/internal/assistant"
	"github.com/54b3r/recipeai-go/internal/embedder"
	"github.com/54b3r/recipeai-go/internal/provider"
	"github.com/54b3r/recipeai-go/internal/rag"
	"github.com/54b3r/recipeai-go/internal/recipe"
	"github.com/54b3r/recipeai-go/internal/search"
	"github.com/54b3r/recipeai-go/internal/server"
	"github.com/54b3r/recipeai-go/internal/substitution"
	"github.com/54b3r/recipeai-go/internal/tracing"
)

// defaultDataPath is the recipe dataset used when RECIPEAI_DATA is unset.
const defaultDataPath = "data/recipes.json"

// app bundles everything a command needs, plus the resources to release.
type app struct {
	assistant *assistant.Assistant
	// pingers are the readiness probes for the dependencies actually in use.
	pingers []server.Pinger
	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp loads the dataset, builds the index and wires the model steps.
// metrics may be nil for one-shot CLI commands.
func buildApp(ctx context.Context, log *slog.Logger, metrics *server.Metrics) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	dataPath := getEnvOrDefault("RECIPEAI_DATA", defaultDataPath)
	store, err := recipe.Load(dataPath)
	if err != nil {
		return nil, err
	}
	log.Info("dataset loaded", slog.String("path", dataPath), slog.Int("recipes", store.Len()))

	if err := embedder.Validate(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, err
	}
	if o, ok := emb.(*embedder.OllamaEmbedder); ok {
		a.pingers = append(a.pingers, server.NewOllamaPinger(o.Host()))
	}
	emb, closeCache, err := embedder.WithCacheFromEnv(emb)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if cerr := closeCache(); cerr != nil {
			log.Warn("embedding cache: close failed", slog.Any("error", cerr))
		}
	})

	index, err := buildIndex(ctx, log, a, emb, store.Texts())
	if err != nil {
		return nil, err
	}

	engine, err := search.NewEngine(store, index, getEnvInt("SEARCH_TOP_K", search.DefaultTopK))
	if err != nil {
		return nil, err
	}

	resolver, answerer, err := buildModelSteps(ctx, log, a, metrics)
	if err != nil {
		return nil, err
	}

	var opts []assistant.Option
	if answerer != nil {
		opts = append(opts, assistant.WithAnswerer(answerer))
	}
	a.assistant = assistant.New(engine, resolver, opts...)
	return a, nil
}

// buildIndex builds the vector index selected by INDEX_BACKEND.
func buildIndex(ctx context.Context, log *slog.Logger, a *app, emb rag.Embedder, texts []string) (rag.Index, error) {
	start := time.Now()
	switch backend := strings.ToLower(getEnvOrDefault("INDEX_BACKEND", "memory")); backend {
	case "memory":
		idx, err := rag.BuildMemoryIndex(ctx, emb, texts)
		if err != nil {
			return nil, err
		}
		log.Info("index built",
			slog.String("backend", backend),
			slog.Int("documents", idx.Len()),
			slog.Duration("took", time.Since(start)),
		)
		return idx, nil

	case "qdrant":
		idx, err := rag.BuildQdrantIndex(ctx, &rag.QdrantConfig{
			Host:       os.Getenv("QDRANT_HOST"),
			Port:       getEnvInt("QDRANT_PORT", 0),
			Collection: os.Getenv("QDRANT_COLLECTION"),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		}, emb, texts)
		if err != nil {
			return nil, err
		}
		a.pingers = append(a.pingers, server.NewQdrantPinger(idx.Client()))
		a.closers = append(a.closers, func() { _ = idx.Close() })
		log.Info("index built",
			slog.String("backend", backend),
			slog.Int("documents", idx.Len()),
			slog.Duration("took", time.Since(start)),
		)
		return idx, nil

	default:
		return nil, fmt.Errorf("index: unknown INDEX_BACKEND %q (valid: memory, qdrant)", backend)
	}
}

// buildModelSteps wires the substitution table and, when a chat model is
// configured, the model step of the resolver and the grounded answerer. Both
// share one outbound call budget, tracing and metrics. The answerer is nil
// without a model.
func buildModelSteps(ctx context.Context, log *slog.Logger, a *app, metrics *server.Metrics) (*substitution.Resolver, *answer.Generator, error) {
	table := substitution.DefaultTable()
	if path := os.Getenv("SUBSTITUTIONS_FILE"); path != "" {
		t, err := substitution.LoadTable(path)
		if err != nil {
			return nil, nil, err
		}
		table = t
		log.Info("substitution table loaded", slog.String("path", path), slog.Int("entries", t.Len()))
	}

	providerCfg := provider.ConfigFromEnv()
	chat, err := provider.New(ctx, providerCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	if !providerCfg.Enabled() {
		log.Info("chat model disabled; unknown ingredients use the fallback message and answers list recipes")
		return substitution.NewResolver(table, nil), nil, nil
	}
	log.Info("chat model initialised",
		slog.String("provider", string(providerCfg.Backend)),
		slog.String("model", providerCfg.ModelName()),
	)
	if providerCfg.Backend == provider.BackendOllama {
		a.pingers = append(a.pingers, server.NewOllamaPinger(providerCfg.Ollama.Host))
	}

	subOpts := []substitution.Option{
		substitution.WithTimeout(getEnvDuration("SUBSTITUTE_TIMEOUT", substitution.DefaultTimeout)),
	}
	ansOpts := []answer.Option{
		answer.WithTimeout(getEnvDuration("ANSWER_TIMEOUT", answer.DefaultTimeout)),
	}
	if rps := getEnvFloat("SUBSTITUTE_MODEL_RPS", 0); rps > 0 {
		budget := rate.NewLimiter(rate.Limit(rps), max(getEnvInt("SUBSTITUTE_MODEL_BURST", 1), 1))
		subOpts = append(subOpts, substitution.WithLimiter(budget))
		ansOpts = append(ansOpts, answer.WithLimiter(budget))
	}
	if handler, flush, ok := tracing.Setup(); ok {
		subOpts = append(subOpts, substitution.WithCallbacks(handler))
		ansOpts = append(ansOpts, answer.WithCallbacks(handler))
		a.closers = append(a.closers, flush)
		log.Info("langfuse tracing enabled")
	}
	if metrics != nil {
		subOpts = append(subOpts, substitution.WithModelObserver(metrics.ObserveModelCall))
		ansOpts = append(ansOpts, answer.WithModelObserver(metrics.ObserveModelCall))
	}

	gen, err := answer.New(chat, ansOpts...)
	if err != nil {
		return nil, nil, err
	}
	return substitution.NewResolver(table, chat, subOpts...), gen, nil
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of key, or fallback if unset or invalid.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration syntax ("10s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
