package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// providerKeyEnv names the conventional API key variable of each hosted provider.
var providerKeyEnv = map[string]string{
	"mistral":   "MISTRAL_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("REVIEWGOAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("reviewgoat")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".reviewgoat"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Analysis.APIKey == "" {
		if name, ok := providerKeyEnv[cfg.Analysis.Provider]; ok {
			cfg.Analysis.APIKey = os.Getenv(name)
		}
	}

	return cfg, nil
}

// setDefaults registers default values in viper. Every key must be
// registered here for AutomaticEnv to pick up its variable.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.bin_path", cfg.Browser.BinPath)
	v.SetDefault("browser.page_load_timeout", cfg.Browser.PageLoadTimeout)
	v.SetDefault("browser.settle_delay", cfg.Browser.SettleDelay)
	v.SetDefault("browser.user_agents", cfg.Browser.UserAgents)

	v.SetDefault("collector.max_reviews", cfg.Collector.MaxReviews)
	v.SetDefault("collector.max_retries", cfg.Collector.MaxRetries)
	v.SetDefault("collector.retry_delay", cfg.Collector.RetryDelay)
	v.SetDefault("collector.page_delay", cfg.Collector.PageDelay)
	v.SetDefault("collector.max_pages", cfg.Collector.MaxPages)
	v.SetDefault("collector.widget_timeout", cfg.Collector.WidgetTimeout)
	v.SetDefault("collector.element_timeout", cfg.Collector.ElementTimeout)
	v.SetDefault("collector.extractor", cfg.Collector.Extractor)
	v.SetDefault("collector.redact_pii", cfg.Collector.RedactPII)

	v.SetDefault("analysis.provider", cfg.Analysis.Provider)
	v.SetDefault("analysis.model", cfg.Analysis.Model)
	v.SetDefault("analysis.endpoint", cfg.Analysis.Endpoint)
	v.SetDefault("analysis.api_key", cfg.Analysis.APIKey)
	v.SetDefault("analysis.max_tokens", cfg.Analysis.MaxTokens)
	v.SetDefault("analysis.temperature", cfg.Analysis.Temperature)
	v.SetDefault("analysis.timeout", cfg.Analysis.Timeout)
	v.SetDefault("analysis.batch_size", cfg.Analysis.BatchSize)
	v.SetDefault("analysis.max_retries", cfg.Analysis.MaxRetries)
	v.SetDefault("analysis.backoff_step", cfg.Analysis.BackoffStep)
	v.SetDefault("analysis.batch_delay", cfg.Analysis.BatchDelay)

	v.SetDefault("storage.output_dir", cfg.Storage.OutputDir)
	v.SetDefault("storage.reviews_file", cfg.Storage.ReviewsFile)
	v.SetDefault("storage.progress_file", cfg.Storage.ProgressFile)
	v.SetDefault("storage.mongo.enabled", cfg.Storage.Mongo.Enabled)
	v.SetDefault("storage.mongo.uri", cfg.Storage.Mongo.URI)
	v.SetDefault("storage.mongo.database", cfg.Storage.Mongo.Database)
	v.SetDefault("storage.sqlite.enabled", cfg.Storage.SQLite.Enabled)
	v.SetDefault("storage.sqlite.path", cfg.Storage.SQLite.Path)

	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.addr", cfg.Cache.Addr)
	v.SetDefault("cache.password", cfg.Cache.Password)
	v.SetDefault("cache.db", cfg.Cache.DB)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)

	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.run_timeout", cfg.Server.RunTimeout)
	v.SetDefault("server.watch_enabled", cfg.Server.WatchEnabled)

	v.SetDefault("watch.schedule", cfg.Watch.Schedule)
	v.SetDefault("watch.timezone", cfg.Watch.Timezone)
	v.SetDefault("watch.urls", cfg.Watch.URLs)
	v.SetDefault("watch.max_reviews", cfg.Watch.MaxReviews)
	v.SetDefault("watch.job_timeout", cfg.Watch.JobTimeout)
}
