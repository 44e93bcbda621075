package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for ReviewGoat.
type Config struct {
	Browser   BrowserConfig   `mapstructure:"browser"   yaml:"browser"`
	Collector CollectorConfig `mapstructure:"collector" yaml:"collector"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"  yaml:"analysis"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Cache     CacheConfig     `mapstructure:"cache"     yaml:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
	Server    ServerConfig    `mapstructure:"server"    yaml:"server"`
	Watch     WatchConfig     `mapstructure:"watch"     yaml:"watch"`
}

// BrowserConfig controls the headless browser session.
type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless"          yaml:"headless"`
	Stealth         bool          `mapstructure:"stealth"           yaml:"stealth"`
	BinPath         string        `mapstructure:"bin_path"          yaml:"bin_path"`
	PageLoadTimeout time.Duration `mapstructure:"page_load_timeout" yaml:"page_load_timeout"`
	SettleDelay     time.Duration `mapstructure:"settle_delay"      yaml:"settle_delay"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
}

// CollectorConfig controls review pagination and extraction.
type CollectorConfig struct {
	MaxReviews     int           `mapstructure:"max_reviews"     yaml:"max_reviews"` // 0 = advertised total
	MaxRetries     int           `mapstructure:"max_retries"     yaml:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"     yaml:"retry_delay"`
	PageDelay      time.Duration `mapstructure:"page_delay"      yaml:"page_delay"`
	MaxPages       int           `mapstructure:"max_pages"       yaml:"max_pages"`
	WidgetTimeout  time.Duration `mapstructure:"widget_timeout"  yaml:"widget_timeout"`
	ElementTimeout time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
	Extractor      string        `mapstructure:"extractor"       yaml:"extractor"` // script, html
	RedactPII      bool          `mapstructure:"redact_pii"      yaml:"redact_pii"`
}

// AnalysisConfig controls the model client and batching.
type AnalysisConfig struct {
	Provider    string        `mapstructure:"provider"     yaml:"provider"` // mistral, openai, ollama, anthropic, custom
	Model       string        `mapstructure:"model"        yaml:"model"`
	Endpoint    string        `mapstructure:"endpoint"     yaml:"endpoint"`
	APIKey      string        `mapstructure:"api_key"      yaml:"api_key"`
	MaxTokens   int           `mapstructure:"max_tokens"   yaml:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"  yaml:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"      yaml:"timeout"`
	BatchSize   int           `mapstructure:"batch_size"   yaml:"batch_size"`
	MaxRetries  int           `mapstructure:"max_retries"  yaml:"max_retries"`
	BackoffStep time.Duration `mapstructure:"backoff_step" yaml:"backoff_step"`
	BatchDelay  time.Duration `mapstructure:"batch_delay"  yaml:"batch_delay"`
}

// providerEndpoints are the base URLs used when analysis.endpoint is unset.
// Anthropic is left to its SDK default; custom has no default.
var providerEndpoints = map[string]string{
	"mistral": "https://api.mistral.ai/v1",
	"openai":  "https://api.openai.com/v1",
	"ollama":  "http://localhost:11434",
}

// providerHosts maps hosted API hosts to the provider that owns them.
var providerHosts = map[string]string{
	"api.mistral.ai":    "mistral",
	"api.openai.com":    "openai",
	"api.anthropic.com": "anthropic",
}

// ResolvedEndpoint returns the configured endpoint, or the provider's default.
func (c AnalysisConfig) ResolvedEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return providerEndpoints[c.Provider]
}

// StorageConfig controls output/storage.
type StorageConfig struct {
	OutputDir    string       `mapstructure:"output_dir"    yaml:"output_dir"`
	ReviewsFile  string       `mapstructure:"reviews_file"  yaml:"reviews_file"`
	ProgressFile string       `mapstructure:"progress_file" yaml:"progress_file"`
	Mongo        MongoConfig  `mapstructure:"mongo"         yaml:"mongo"`
	SQLite       SQLiteConfig `mapstructure:"sqlite"        yaml:"sqlite"`
}

// MongoConfig controls the optional MongoDB sink.
type MongoConfig struct {
	Enabled  bool   `mapstructure:"enabled"  yaml:"enabled"`
	URI      string `mapstructure:"uri"      yaml:"uri"`
	Database string `mapstructure:"database" yaml:"database"`
}

// SQLiteConfig controls the run history database.
type SQLiteConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// CacheConfig controls the Redis run cache.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"  yaml:"enabled"`
	Addr     string        `mapstructure:"addr"     yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db"       yaml:"db"`
	TTL      time.Duration `mapstructure:"ttl"      yaml:"ttl"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port         int           `mapstructure:"port"          yaml:"port"`
	RunTimeout   time.Duration `mapstructure:"run_timeout"   yaml:"run_timeout"`
	WatchEnabled bool          `mapstructure:"watch_enabled" yaml:"watch_enabled"`
}

// WatchConfig controls scheduled re-analysis of product pages.
type WatchConfig struct {
	Schedule   string        `mapstructure:"schedule"    yaml:"schedule"`
	Timezone   string        `mapstructure:"timezone"    yaml:"timezone"`
	URLs       []string      `mapstructure:"urls"        yaml:"urls"`
	MaxReviews int           `mapstructure:"max_reviews" yaml:"max_reviews"`
	JobTimeout time.Duration `mapstructure:"job_timeout" yaml:"job_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:        true,
			Stealth:         true,
			PageLoadTimeout: 30 * time.Second,
			SettleDelay:     2 * time.Second,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 Edg/119.0.0.0",
			},
		},
		Collector: CollectorConfig{
			MaxReviews:     0,
			MaxRetries:     3,
			RetryDelay:     1 * time.Second,
			PageDelay:      1 * time.Second,
			MaxPages:       500,
			WidgetTimeout:  10 * time.Second,
			ElementTimeout: 5 * time.Second,
			Extractor:      "script",
		},
		Analysis: AnalysisConfig{
			Provider:    "mistral",
			Model:       "mistral-large-latest",
			MaxTokens:   2048,
			Temperature: 0.2,
			Timeout:     120 * time.Second,
			BatchSize:   5,
			MaxRetries:  3,
			BackoffStep: 5 * time.Second,
			BatchDelay:  1 * time.Second,
		},
		Storage: StorageConfig{
			OutputDir:    "./output",
			ReviewsFile:  "review.json",
			ProgressFile: "review_analysis_progress.json",
			Mongo: MongoConfig{
				URI:      "mongodb://localhost:27017",
				Database: "reviewgoat",
			},
			SQLite: SQLiteConfig{
				Path: "./output/history.db",
			},
		},
		Cache: CacheConfig{
			Addr: "localhost:6379",
			TTL:  6 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
		Server: ServerConfig{
			Port:       8080,
			RunTimeout: 15 * time.Minute,
		},
		Watch: WatchConfig{
			Schedule:   "0 */6 * * *",
			Timezone:   "UTC",
			JobTimeout: 30 * time.Minute,
		},
	}
}
