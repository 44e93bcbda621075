package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/ReviewGoat/internal/ai"
	"github.com/IshaanNene/ReviewGoat/internal/analyzer"
	"github.com/IshaanNene/ReviewGoat/internal/cache"
	"github.com/IshaanNene/ReviewGoat/internal/collector"
	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/engine"
	"github.com/IshaanNene/ReviewGoat/internal/fetcher"
	"github.com/IshaanNene/ReviewGoat/internal/observability"
	"github.com/IshaanNene/ReviewGoat/internal/pipeline"
	"github.com/IshaanNene/ReviewGoat/internal/storage"
)

// app holds the wired components shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	files   *storage.FileStorage
	store   storage.Storage
	history *storage.SQLiteHistory
	cache   *cache.RunCache
	engine  *engine.Engine

	closers []func() error
}

// newApp builds the engine and its optional backends from cfg.
// withAnalyzer=false wires a collect-only engine that needs no API key.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, withAnalyzer bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if cfg.Metrics.Enabled {
		a.metrics = observability.NewMetrics(logger)
	}

	files, err := storage.NewFileStorage(cfg.Storage.OutputDir, cfg.Storage.ReviewsFile, cfg.Storage.ProgressFile, logger)
	if err != nil {
		return nil, fmt.Errorf("create file storage: %w", err)
	}
	a.files = files
	a.store = files

	if cfg.Storage.Mongo.Enabled {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		mongo, err := storage.NewMongoStorage(connectCtx, cfg.Storage.Mongo.URI, cfg.Storage.Mongo.Database, logger)
		cancel()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, mongo.Close)
		a.store = storage.NewMultiStorage([]storage.Storage{files, mongo}, logger)
	}

	var engineOpts []engine.Option
	engineOpts = append(engineOpts,
		engine.WithStorage(a.store),
		engine.WithPipeline(pipeline.Default(cfg.Collector.RedactPII, logger)),
		engine.WithMetrics(a.metrics),
	)

	if cfg.Storage.SQLite.Enabled {
		h, err := storage.NewSQLiteHistory(cfg.Storage.SQLite.Path)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.history = h
		a.closers = append(a.closers, h.Close)
		engineOpts = append(engineOpts, engine.WithHistory(h))
	}

	if cfg.Cache.Enabled {
		a.cache = cache.New(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, cfg.Cache.TTL, a.metrics)
		a.closers = append(a.closers, a.cache.Close)
		engineOpts = append(engineOpts, engine.WithCache(a.cache))
	}

	extractor, err := collector.NewExtractor(cfg.Collector.Extractor, collector.StampedSelectors())
	if err != nil {
		a.Close()
		return nil, err
	}
	launcher := fetcher.NewBrowserLauncher(cfg.Browser, logger)
	col := collector.New(launcher, cfg.Collector, logger,
		collector.WithExtractor(extractor),
		collector.WithMetrics(a.metrics),
	)

	var an engine.Analyzer
	if withAnalyzer {
		if cfg.Analysis.APIKey == "" && needsKey(cfg.Analysis.Provider) {
			a.Close()
			return nil, fmt.Errorf("no API key for provider %s: set analysis.api_key or the provider's key variable", cfg.Analysis.Provider)
		}
		client := ai.NewLLMClient(ai.ConfigFromAnalysis(cfg.Analysis), logger)
		opts := append(analyzer.OptionsFromConfig(cfg.Analysis),
			analyzer.WithMetrics(a.metrics),
		)
		an = analyzer.New(client, cfg.Analysis.Model, logger, opts...)
	}

	a.engine = engine.New(col, an, logger, engineOpts...)
	return a, nil
}

func needsKey(provider string) bool {
	switch ai.LLMProvider(provider) {
	case ai.ProviderOllama, ai.ProviderCustom:
		return false
	default:
		return true
	}
}

// Close releases every backend, logging failures.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
