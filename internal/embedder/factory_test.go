package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestNewFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantID  string
		wantErr string
	}{
		{name: "default is local", env: nil, wantID: "local/tfidf"},
		{name: "ollama default model", env: map[string]string{"EMBEDDING_PROVIDER": "ollama"}, wantID: "ollama/nomic-embed-text"},
		{
			name:   "openai with key",
			env:    map[string]string{"EMBEDDING_PROVIDER": "openai", "OPENAI_API_KEY": "sk-test"},
			wantID: "openai/text-embedding-3-small@1536",
		},
		{
			name:    "openai without key",
			env:     map[string]string{"EMBEDDING_PROVIDER": "openai"},
			wantErr: "requires OPENAI_API_KEY",
		},
		{
			name:    "azure without endpoint",
			env:     map[string]string{"EMBEDDING_PROVIDER": "azure", "AZURE_OPENAI_API_KEY": "k"},
			wantErr: "requires AZURE_OPENAI_ENDPOINT",
		},
		{
			name: "azure with custom dims",
			env: map[string]string{
				"EMBEDDING_PROVIDER": "azure", "AZURE_OPENAI_API_KEY": "k",
				"AZURE_OPENAI_ENDPOINT": "https://x.openai.azure.com", "EMBEDDING_DIMENSIONS": "512",
			},
			wantID: "azure/text-embedding-3-small@512",
		},
		{name: "unknown", env: map[string]string{"EMBEDDING_PROVIDER": "bedrock"}, wantErr: "unknown backend"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, k := range []string{
				"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_API_KEY", "EMBEDDING_ENDPOINT",
				"EMBEDDING_DIMENSIONS", "OPENAI_API_KEY", "AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT",
			} {
				t.Setenv(k, "")
			}
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			emb, err := NewFromEnv()
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFromEnv: %v", err)
			}
			id, ok := emb.(Identified)
			if !ok {
				t.Fatalf("%T does not report a model id", emb)
			}
			if id.ModelID() != tc.wantID {
				t.Errorf("ModelID() = %q, want %q", id.ModelID(), tc.wantID)
			}
		})
	}
}

func TestWithCacheFromEnv(t *testing.T) {
	t.Setenv("EMBEDDING_CACHE_DB", "")
	local := NewTFIDFEmbedder()
	got, closeFn, err := WithCacheFromEnv(local)
	if err != nil || got != local {
		t.Fatalf("expected passthrough without EMBEDDING_CACHE_DB, got %T, %v", got, err)
	}
	_ = closeFn()

	t.Setenv("EMBEDDING_CACHE_DB", ":memory:")
	got, closeFn, err = WithCacheFromEnv(local)
	if err != nil || got != local {
		t.Errorf("local embedder must never be cached, got %T, %v", got, err)
	}
	_ = closeFn()

	remote := NewOllamaEmbedder(&OllamaConfig{Host: "http://localhost:11434", Model: "nomic-embed-text"})
	got, closeFn, err = WithCacheFromEnv(remote)
	if err != nil {
		t.Fatalf("WithCacheFromEnv: %v", err)
	}
	defer func() { _ = closeFn() }()
	if _, ok := got.(*Cache); !ok {
		t.Errorf("expected *Cache for a remote embedder, got %T", got)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "azure")
	t.Setenv("EMBEDDING_API_KEY", "")
	t.Setenv("AZURE_OPENAI_API_KEY", "")
	if err := Validate(slog.New(slog.DiscardHandler)); err == nil {
		t.Error("expected an error for azure without a key")
	}

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("EMBEDDING_MODEL", "llama3.1:8b")
	if err := Validate(log); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !strings.Contains(buf.String(), "looks like a chat model") {
		t.Errorf("expected a chat-model warning, got %q", buf.String())
	}
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		var req ollamaEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := ollamaEmbedResponse{}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{1, 0})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL + "/", Model: "m"})
	out, err := emb.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("expected 2 vectors, got %d", len(out))
	}
}

func TestOpenAIEmbedder_BatchesAndReorders(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
			return
		}
		var req openaiEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		var resp openaiEmbedResponse
		// Respond in reverse order to exercise index placement.
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{float32(len(req.Input[i]))}, Index: i})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	emb := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test", Model: "m", BatchSize: 2})
	out, err := emb.Embed(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("expected 2 batched requests, got %d", n)
	}
	for i, want := range []float32{1, 2, 3} {
		if out[i][0] != want {
			t.Errorf("vector %d = %v, want [%v]", i, out[i], want)
		}
	}

	bad := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "wrong", Model: "m"})
	if _, err := bad.Embed(context.Background(), []string{"a"}); err == nil || !strings.Contains(err.Error(), "bad key") {
		t.Errorf("expected API error message, got %v", err)
	}
}
