// Package provider selects and constructs the optional chat model that the
// substitution resolver consults when an ingredient is not in its table and
// that writes grounded answers.
// Supported backends: Ollama, OpenAI, Azure OpenAI, Google Gemini and Ark.
// The default backend is "none": the resolver then answers from its table and
// fallback text only.
package provider

import (
	"fmt"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendNone disables the model step entirely.
	BackendNone Backend = "none"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
	// BackendArk selects the Volcano Engine Ark runtime.
	BackendArk Backend = "ark"
)

// ProviderOllama holds Ollama settings.
type ProviderOllama struct {
	// Host is the Ollama API endpoint (OLLAMA_HOST).
	Host string
	// Model is the chat model name (OLLAMA_MODEL).
	Model string
}

// ProviderOpenAI holds OpenAI settings.
type ProviderOpenAI struct {
	// APIKey is OPENAI_API_KEY.
	APIKey string
	// Model is OPENAI_MODEL.
	Model string
}

// ProviderAzureOpenAI holds Azure OpenAI settings.
type ProviderAzureOpenAI struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
}

// ProviderGemini holds Google Gemini settings.
type ProviderGemini struct {
	// APIKey is GOOGLE_API_KEY.
	APIKey string
	// Model is GEMINI_MODEL.
	Model string
}

// ProviderArk holds Volcano Engine Ark settings.
type ProviderArk struct {
	APIKey  string
	Model   string
	BaseURL string
}

// SharedTuning holds generation parameters common to all backends.
type SharedTuning struct {
	// MaxTokens caps the response length. A substitution is a short phrase.
	MaxTokens int
	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
}

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values. Only the block matching
// Backend is consulted.
type Config struct {
	Backend     Backend
	Ollama      ProviderOllama
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Gemini      ProviderGemini
	Ark         ProviderArk
	Tuning      SharedTuning
}

// Enabled reports whether a model backend is configured.
func (c *Config) Enabled() bool {
	return c.Backend != "" && c.Backend != BackendNone
}

// Validate checks that the settings required by the selected backend are
// present. Errors name the environment variable to set.
func (c *Config) Validate() error {
	require := func(value, env string) error {
		if value == "" {
			return fmt.Errorf("provider: %s is required for %s backend", env, c.Backend)
		}
		return nil
	}

	var checks []error
	switch c.Backend {
	case "", BackendNone:
		return nil
	case BackendOllama:
		checks = []error{require(c.Ollama.Host, "OLLAMA_HOST"), require(c.Ollama.Model, "OLLAMA_MODEL")}
	case BackendOpenAI:
		checks = []error{require(c.OpenAI.APIKey, "OPENAI_API_KEY"), require(c.OpenAI.Model, "OPENAI_MODEL")}
	case BackendAzure:
		checks = []error{
			require(c.AzureOpenAI.APIKey, "AZURE_OPENAI_API_KEY"),
			require(c.AzureOpenAI.Endpoint, "AZURE_OPENAI_ENDPOINT"),
			require(c.AzureOpenAI.Deployment, "AZURE_OPENAI_DEPLOYMENT"),
		}
	case BackendGemini:
		checks = []error{require(c.Gemini.APIKey, "GOOGLE_API_KEY"), require(c.Gemini.Model, "GEMINI_MODEL")}
	case BackendArk:
		checks = []error{require(c.Ark.APIKey, "ARK_API_KEY"), require(c.Ark.Model, "ARK_MODEL")}
	default:
		return fmt.Errorf("provider: unknown backend %q (valid: none, ollama, openai, azure, gemini, ark)", c.Backend)
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// ModelName returns the model or deployment the selected backend will call,
// for logs and metrics labels.
func (c *Config) ModelName() string {
	switch c.Backend {
	case BackendOllama:
		return c.Ollama.Model
	case BackendOpenAI:
		return c.OpenAI.Model
	case BackendAzure:
		return c.AzureOpenAI.Deployment
	case BackendGemini:
		return c.Gemini.Model
	case BackendArk:
		return c.Ark.Model
	default:
		return ""
	}
}
