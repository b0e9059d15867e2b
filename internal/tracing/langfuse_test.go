package tracing

import "testing"

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LANGFUSE_HOST", "")
	t.Setenv("LANGFUSE_PUBLIC_KEY", "pk")
	t.Setenv("LANGFUSE_SECRET_KEY", "")

	cfg := ConfigFromEnv()
	if cfg.Host != defaultHost {
		t.Errorf("Host = %q, want %q", cfg.Host, defaultHost)
	}
	if cfg.Enabled() {
		t.Error("config without secret key must be disabled")
	}
}

func TestNew_Disabled(t *testing.T) {
	t.Parallel()

	handler, flush, ok := New(Config{PublicKey: "pk"})
	if ok || handler != nil {
		t.Fatalf("expected disabled tracing, got ok=%v handler=%v", ok, handler)
	}
	flush()
}
