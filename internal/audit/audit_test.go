package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/54b3r/recipeai-go/internal/logging"
)

func TestSanitiseKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		key, value, want string
	}{
		{"OPENAI_API_KEY", "sk-abc123", "set"},
		{"OPENAI_API_KEY", "", "unset"},
		{"ARK_API_KEY", "ak-1", "set"},
		{"LANGFUSE_SECRET_KEY", "sk-lf", "set"},
		{"MODEL_PROVIDER", "ollama", "ollama"},
		{"MODEL_PROVIDER", "", "unset"},
		{"INDEX_BACKEND", "qdrant", "qdrant"},
	}
	for _, tc := range cases {
		if got := SanitiseKey(tc.key, tc.value); got != tc.want {
			t.Errorf("SanitiseKey(%q, %q) = %q, want %q", tc.key, tc.value, got, tc.want)
		}
	}
}

func TestSecretKeysNeverLogged(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-super-secret")
	t.Setenv("QDRANT_API_KEY", "qd-secret")
	t.Setenv("MODEL_PROVIDER", "openai")

	var buf bytes.Buffer
	log := logging.NewWithOptions(logging.Options{Output: &buf})
	LogCommandStart(context.Background(), log, "serve", "")

	if bytes.Contains(buf.Bytes(), []byte("secret")) {
		t.Fatalf("secret value leaked into audit log: %s", buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("audit record is not JSON: %v", err)
	}
	if rec["OPENAI_API_KEY"] != "set" || rec["QDRANT_API_KEY"] != "set" {
		t.Errorf("secret keys should be logged as set: %v", rec)
	}
	if rec["MODEL_PROVIDER"] != "openai" {
		t.Errorf("MODEL_PROVIDER = %v, want openai", rec["MODEL_PROVIDER"])
	}
	if rec["command"] != "serve" || rec["config_file"] != "none" {
		t.Errorf("command fields = %v / %v", rec["command"], rec["config_file"])
	}
}

func TestSnapshot_CoversEveryKey(t *testing.T) {
	t.Parallel()

	attrs := Snapshot()
	if len(attrs) != len(auditKeys) {
		t.Fatalf("Snapshot returned %d attrs, want %d", len(attrs), len(auditKeys))
	}
	for i, a := range attrs {
		if a.Key != auditKeys[i].key {
			t.Errorf("attr %d = %q, want %q", i, a.Key, auditKeys[i].key)
		}
	}
}

func TestSanitiseConfigPath(t *testing.T) {
	t.Parallel()
	if got := sanitiseConfigPath(""); got != "none" {
		t.Errorf("expected 'none', got %q", got)
	}
	if got := sanitiseConfigPath("/tmp/config.yaml"); got != "/tmp/config.yaml" {
		t.Errorf("expected '/tmp/config.yaml', got %q", got)
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" && home != "/" {
		p := filepath.Join(home, ".recipeai", "config.yaml")
		if got := sanitiseConfigPath(p); got != "~/.recipeai/config.yaml" {
			t.Errorf("expected '~/.recipeai/config.yaml', got %q", got)
		}
	}
}
