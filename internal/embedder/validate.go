package embedder

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// knownChatModelPrefixes contains name fragments that identify chat/completion
// models which are NOT suitable for embedding.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"mistral",
	"mixtral",
	"gemma",
	"phi3",
	"deepseek",
	"qwen",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// Validate is a pre-flight check of the embedding configuration, run before
// the index is built so operators get a clear error at startup rather than a
// failure on the first embed call. It returns an error for clearly broken
// settings and logs the suspicious ones:
//
//   - EMBEDDING_MODEL naming a chat model
//   - INDEX_BACKEND=qdrant paired with the local embedder, whose vector space
//     is refitted on every start
func Validate(log *slog.Logger) error {
	backend := ResolveBackend()

	switch backend {
	case BackendLocal, BackendOllama:
	case BackendOpenAI:
		if firstEnv("EMBEDDING_API_KEY", "OPENAI_API_KEY") == "" {
			return fmt.Errorf("embedder: EMBEDDING_PROVIDER=openai but no API key found; set OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
	case BackendAzure:
		if firstEnv("EMBEDDING_API_KEY", "AZURE_OPENAI_API_KEY") == "" {
			return fmt.Errorf("embedder: EMBEDDING_PROVIDER=azure but no API key found; set AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		if firstEnv("EMBEDDING_ENDPOINT", "AZURE_OPENAI_ENDPOINT") == "" {
			return fmt.Errorf("embedder: EMBEDDING_PROVIDER=azure but no endpoint found; set AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT")
		}
	default:
		return fmt.Errorf("embedder: unknown backend %q (valid: local, ollama, openai, azure)", backend)
	}

	if backend == BackendLocal && strings.EqualFold(os.Getenv("INDEX_BACKEND"), "qdrant") {
		log.Info("embedder: local TF-IDF vectors are rebuilt into Qdrant on every start",
			slog.String("hint", "set EMBEDDING_PROVIDER=ollama (or openai/azure) for model embeddings"),
		)
	}

	if model := os.Getenv("EMBEDDING_MODEL"); model != "" && looksLikeChatModel(model) {
		log.Warn("embedder: EMBEDDING_MODEL looks like a chat model, not an embedding model",
			slog.String("model", model),
			slog.String("hint", "use a dedicated embedding model e.g. nomic-embed-text, text-embedding-3-small"),
		)
	}

	return nil
}
