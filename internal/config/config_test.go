package config

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/widget")
	t.Setenv("DEFAULT_OPENAI_KEY", " sk-platform ")
	t.Setenv("EMBEDDING_API_KEY", "")
	t.Setenv("EMBEDDING_PROVIDER", "")
	t.Setenv("PROVIDER_TIMEOUT", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig err: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port: got %q", cfg.Port)
	}
	if cfg.ProviderTimeout != 30*time.Second {
		t.Errorf("provider timeout: got %v", cfg.ProviderTimeout)
	}
	if cfg.EmbeddingProvider != "openai" {
		t.Errorf("embedding provider: got %q", cfg.EmbeddingProvider)
	}
	if cfg.EmbeddingAPIKey != "sk-platform" {
		t.Errorf("embedding key should fall back to the trimmed default key, got %q", cfg.EmbeddingAPIKey)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("allowed origins: got %v", cfg.AllowedOrigins)
	}
	if cfg.KnowledgeChunkLimit != 300 {
		t.Errorf("chunk limit: got %d", cfg.KnowledgeChunkLimit)
	}
}

func TestLoadConfigRejectsUnknownEmbeddingProvider(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/widget")
	t.Setenv("EMBEDDING_PROVIDER", "cohere")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unsupported embedding provider")
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("GEMINI_API_KEYS", " a, ,b ,c")
	got := getEnvList("GEMINI_API_KEYS", nil)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
