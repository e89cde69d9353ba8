package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.AI.Timeout != 30*time.Second {
		t.Errorf("expected 30s AI timeout, got %v", cfg.AI.Timeout)
	}
	if cfg.AI.ProbeInterval != 5*time.Minute {
		t.Errorf("expected 5m probe interval, got %v", cfg.AI.ProbeInterval)
	}
	if cfg.AI.CandidateSize != 200 {
		t.Errorf("expected 200 candidates, got %d", cfg.AI.CandidateSize)
	}
	if cfg.AI.Groq.Model != "llama-3.1-8b-instant" {
		t.Errorf("unexpected Groq model: %q", cfg.AI.Groq.Model)
	}
	if cfg.AI.Groq.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("unexpected Groq base URL: %q", cfg.AI.Groq.BaseURL)
	}
	if cfg.AI.OpenRouter.Model != "deepseek/deepseek-chat-v3.1:free" {
		t.Errorf("unexpected OpenRouter model: %q", cfg.AI.OpenRouter.Model)
	}
	if cfg.AI.OpenRouter.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("unexpected OpenRouter base URL: %q", cfg.AI.OpenRouter.BaseURL)
	}
	if cfg.AI.Gemini.EmbeddingModel != "text-embedding-004" {
		t.Errorf("unexpected embedding model: %q", cfg.AI.Gemini.EmbeddingModel)
	}
	if cfg.AI.Gemini.EmbeddingDimensions != 768 {
		t.Errorf("expected 768 dimensions, got %d", cfg.AI.Gemini.EmbeddingDimensions)
	}
}

func TestLoadUnprefixedEnvAliases(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "groq-test-key")
	t.Setenv("OPENROUTER_API_KEY", "or-test-key")
	t.Setenv("GEMINI_API_KEY", "gemini-test-key")
	t.Setenv("DATABASE_URL", "postgres://localhost/suggest_test")
	t.Setenv("ADMIN_TOKEN", "hunter2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AI.Groq.APIKey != "groq-test-key" {
		t.Errorf("GROQ_API_KEY not bound, got %q", cfg.AI.Groq.APIKey)
	}
	if cfg.AI.OpenRouter.APIKey != "or-test-key" {
		t.Errorf("OPENROUTER_API_KEY not bound, got %q", cfg.AI.OpenRouter.APIKey)
	}
	if cfg.AI.Gemini.APIKey != "gemini-test-key" {
		t.Errorf("GEMINI_API_KEY not bound, got %q", cfg.AI.Gemini.APIKey)
	}
	if cfg.Database.URL != "postgres://localhost/suggest_test" {
		t.Errorf("DATABASE_URL not bound, got %q", cfg.Database.URL)
	}
	if cfg.Server.AdminToken != "hunter2" {
		t.Errorf("ADMIN_TOKEN not bound, got %q", cfg.Server.AdminToken)
	}
}

func TestLoadPrefixedEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SUGGEST_SERVER_PORT", "9090")
	t.Setenv("SUGGEST_AI_TIMEOUT", "10s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("SUGGEST_SERVER_PORT should override default, got %d", cfg.Server.Port)
	}
	if cfg.AI.Timeout != 10*time.Second {
		t.Errorf("SUGGEST_AI_TIMEOUT should override default, got %v", cfg.AI.Timeout)
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	t.Setenv("SUGGEST_SERVER_PORT", "70000")

	if _, err := Load(""); err == nil {
		t.Error("expected validation error for out-of-range port")
	}
}
