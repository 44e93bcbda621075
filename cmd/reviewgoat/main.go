package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/observability"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reviewgoat",
		Short: "ReviewGoat — product review collector and analyzer",
		Long: `ReviewGoat collects customer reviews from a product page's review widget
and has a language model summarize, classify and score them.

Features:
  • Headless Chromium pagination with stealth fingerprinting
  • Batched model analysis with rate-limit backoff and fallbacks
  • Confidence score, recommendation checklist and image gallery
  • JSON output, optional MongoDB sink, SQLite run history, Redis run cache
  • Scheduled re-analysis of watched products
  • Prometheus metrics endpoint`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(reanalyzeCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads and validates configuration and builds the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, observability.NewLogger(cfg.Logging, verbose), nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ReviewGoat %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Browser:\n")
			fmt.Printf("  Headless:          %v\n", cfg.Browser.Headless)
			fmt.Printf("  Stealth:           %v\n", cfg.Browser.Stealth)
			fmt.Printf("  Page Load Timeout: %s\n", cfg.Browser.PageLoadTimeout)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Browser.UserAgents))
			fmt.Printf("\nCollector:\n")
			fmt.Printf("  Max Reviews:       %d (0 = advertised total)\n", cfg.Collector.MaxReviews)
			fmt.Printf("  Max Retries:       %d\n", cfg.Collector.MaxRetries)
			fmt.Printf("  Max Pages:         %d\n", cfg.Collector.MaxPages)
			fmt.Printf("  Extractor:         %s\n", cfg.Collector.Extractor)
			fmt.Printf("  Redact PII:        %v\n", cfg.Collector.RedactPII)
			fmt.Printf("\nAnalysis:\n")
			fmt.Printf("  Provider:          %s\n", cfg.Analysis.Provider)
			fmt.Printf("  Model:             %s\n", cfg.Analysis.Model)
			fmt.Printf("  API Key:           %s\n", maskKey(cfg.Analysis.APIKey))
			fmt.Printf("  Batch Size:        %d\n", cfg.Analysis.BatchSize)
			fmt.Printf("  Max Retries:       %d (backoff step %s)\n", cfg.Analysis.MaxRetries, cfg.Analysis.BackoffStep)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Output Dir:        %s\n", cfg.Storage.OutputDir)
			fmt.Printf("  MongoDB:           %v\n", cfg.Storage.Mongo.Enabled)
			fmt.Printf("  SQLite History:    %v (%s)\n", cfg.Storage.SQLite.Enabled, cfg.Storage.SQLite.Path)
			fmt.Printf("\nCache:\n")
			fmt.Printf("  Enabled:           %v (%s, ttl %s)\n", cfg.Cache.Enabled, cfg.Cache.Addr, cfg.Cache.TTL)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			fmt.Printf("\nServer:\n")
			fmt.Printf("  Port:              %d\n", cfg.Server.Port)
			fmt.Printf("  Watch Enabled:     %v (%d URLs, %s)\n", cfg.Server.WatchEnabled, len(cfg.Watch.URLs), cfg.Watch.Schedule)
			return nil
		},
	}
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
