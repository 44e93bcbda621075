package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative max reviews", func(c *Config) { c.Collector.MaxReviews = -1 }},
		{"zero retries", func(c *Config) { c.Collector.MaxRetries = 0 }},
		{"unknown extractor", func(c *Config) { c.Collector.Extractor = "regex" }},
		{"unknown provider", func(c *Config) { c.Analysis.Provider = "bard" }},
		{"zero batch size", func(c *Config) { c.Analysis.BatchSize = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"mongo without uri", func(c *Config) { c.Storage.Mongo.Enabled = true; c.Storage.Mongo.URI = "" }},
		{"no user agents", func(c *Config) { c.Browser.UserAgents = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	good := []string{"https://shop.example.com/products/x", "http://localhost:8080/p"}
	for _, u := range good {
		if err := ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v", u, err)
		}
	}
	bad := []string{"ftp://example.com", "not a url", "https://"}
	for _, u := range bad {
		if err := ValidateURL(u); !errors.Is(err, types.ErrInvalidURL) {
			t.Errorf("ValidateURL(%q) = %v, want ErrInvalidURL", u, err)
		}
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reviewgoat.yaml")
	yaml := `
collector:
  max_reviews: 40
analysis:
  provider: openai
  model: gpt-4o-mini
  batch_delay: 250ms
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("REVIEWGOAT_COLLECTOR_MAX_RETRIES", "5")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Collector.MaxReviews != 40 {
		t.Errorf("expected max_reviews 40, got %d", cfg.Collector.MaxReviews)
	}
	if cfg.Collector.MaxRetries != 5 {
		t.Errorf("expected env override max_retries 5, got %d", cfg.Collector.MaxRetries)
	}
	if cfg.Analysis.BatchDelay != 250*time.Millisecond {
		t.Errorf("expected batch_delay 250ms, got %v", cfg.Analysis.BatchDelay)
	}
	if cfg.Analysis.APIKey != "sk-test" {
		t.Errorf("expected provider key from environment, got %q", cfg.Analysis.APIKey)
	}
	if cfg.Analysis.BatchSize != 5 {
		t.Errorf("expected default batch size 5, got %d", cfg.Analysis.BatchSize)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadProviderEndpoints(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"mistral", "https://api.mistral.ai/v1"},
		{"openai", "https://api.openai.com/v1"},
		{"ollama", "http://localhost:11434"},
		{"anthropic", ""},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "reviewgoat.yaml")
			if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o644); err != nil {
				t.Fatal(err)
			}
			t.Setenv("REVIEWGOAT_ANALYSIS_PROVIDER", tt.provider)

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.Analysis.Provider != tt.provider {
				t.Fatalf("expected provider %s, got %s", tt.provider, cfg.Analysis.Provider)
			}
			if err := Validate(cfg); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if cfg.Analysis.Endpoint != "" {
				t.Errorf("endpoint should be unset by default, got %q", cfg.Analysis.Endpoint)
			}
			if got := cfg.Analysis.ResolvedEndpoint(); got != tt.want {
				t.Errorf("ResolvedEndpoint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		endpoint string
		wantErr  bool
	}{
		{"default mistral", "mistral", "", false},
		{"custom needs endpoint", "custom", "", true},
		{"custom with endpoint", "custom", "https://llm.internal/v1/generate", false},
		{"openai proxy", "openai", "http://localhost:4000/v1", false},
		{"openai key to mistral", "openai", "https://api.mistral.ai/v1", true},
		{"anthropic key to openai", "anthropic", "https://api.openai.com/v1", true},
		{"no scheme", "ollama", "localhost:11434", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Analysis.Provider = tt.provider
			cfg.Analysis.Endpoint = tt.endpoint
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
