package config

import (
	"fmt"
	"net/url"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Browser.PageLoadTimeout <= 0 {
		return fmt.Errorf("browser.page_load_timeout must be > 0")
	}
	if len(cfg.Browser.UserAgents) == 0 {
		return fmt.Errorf("browser.user_agents must not be empty")
	}

	if cfg.Collector.MaxReviews < 0 {
		return fmt.Errorf("collector.max_reviews must be >= 0, got %d", cfg.Collector.MaxReviews)
	}
	if cfg.Collector.MaxRetries < 1 {
		return fmt.Errorf("collector.max_retries must be >= 1, got %d", cfg.Collector.MaxRetries)
	}
	if cfg.Collector.RetryDelay < 0 || cfg.Collector.PageDelay < 0 {
		return fmt.Errorf("collector delays must be >= 0")
	}
	if cfg.Collector.MaxPages < 1 {
		return fmt.Errorf("collector.max_pages must be >= 1, got %d", cfg.Collector.MaxPages)
	}
	if cfg.Collector.WidgetTimeout <= 0 || cfg.Collector.ElementTimeout <= 0 {
		return fmt.Errorf("collector timeouts must be > 0")
	}
	if cfg.Collector.Extractor != "script" && cfg.Collector.Extractor != "html" {
		return fmt.Errorf("collector.extractor must be 'script' or 'html', got %q", cfg.Collector.Extractor)
	}

	validProviders := map[string]bool{
		"mistral": true, "openai": true, "ollama": true, "anthropic": true, "custom": true,
	}
	if !validProviders[cfg.Analysis.Provider] {
		return fmt.Errorf("analysis.provider %q is not supported (valid: mistral, openai, ollama, anthropic, custom)", cfg.Analysis.Provider)
	}
	if cfg.Analysis.Model == "" {
		return fmt.Errorf("analysis.model must not be empty")
	}
	if err := validateEndpoint(cfg.Analysis); err != nil {
		return err
	}
	if cfg.Analysis.BatchSize < 1 {
		return fmt.Errorf("analysis.batch_size must be >= 1, got %d", cfg.Analysis.BatchSize)
	}
	if cfg.Analysis.MaxRetries < 0 {
		return fmt.Errorf("analysis.max_retries must be >= 0, got %d", cfg.Analysis.MaxRetries)
	}
	if cfg.Analysis.BackoffStep < 0 || cfg.Analysis.BatchDelay < 0 {
		return fmt.Errorf("analysis delays must be >= 0")
	}

	if cfg.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir must not be empty")
	}
	if cfg.Storage.Mongo.Enabled && cfg.Storage.Mongo.URI == "" {
		return fmt.Errorf("storage.mongo.uri is required when mongo is enabled")
	}
	if cfg.Storage.SQLite.Enabled && cfg.Storage.SQLite.Path == "" {
		return fmt.Errorf("storage.sqlite.path is required when sqlite is enabled")
	}
	if cfg.Cache.Enabled && cfg.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when cache is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}

	return nil
}

// validateEndpoint rejects a malformed endpoint and one that points at
// another hosted provider, which would receive this provider's API key.
func validateEndpoint(cfg AnalysisConfig) error {
	if cfg.Endpoint == "" {
		if cfg.Provider == "custom" {
			return fmt.Errorf("analysis.endpoint is required for the custom provider")
		}
		return nil
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid analysis.endpoint %q", cfg.Endpoint)
	}
	if owner, ok := providerHosts[u.Hostname()]; ok && owner != cfg.Provider {
		return fmt.Errorf("analysis.endpoint %q belongs to %s, not provider %s", cfg.Endpoint, owner, cfg.Provider)
	}
	return nil
}

// ValidateURL checks if a URL string is a usable product page address.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", types.ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", types.ErrInvalidURL)
	}
	return nil
}
