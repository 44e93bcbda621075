package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/ReviewGoat/internal/analyzer"
	"github.com/IshaanNene/ReviewGoat/internal/collector"
	"github.com/IshaanNene/ReviewGoat/internal/observability"
	"github.com/IshaanNene/ReviewGoat/internal/pipeline"
	"github.com/IshaanNene/ReviewGoat/internal/storage"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// State represents the engine's current lifecycle state.
type State int32

const (
	StateIdle    State = 0
	StateRunning State = 1
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Collector gathers reviews for a product page.
type Collector interface {
	Collect(ctx context.Context, url string, maxReviews int) (*collector.Result, error)
}

// Analyzer annotates reviews and aggregates a report.
type Analyzer interface {
	Analyze(ctx context.Context, reviews []types.Review) (*analyzer.Result, error)
}

// History records finished runs.
type History interface {
	RecordRun(ctx context.Context, run *types.Run) error
}

// RunCache serves recent completed runs without re-scraping.
type RunCache interface {
	Get(ctx context.Context, url string) (*types.Run, error)
	Set(ctx context.Context, run *types.Run) error
}

// RunOptions tunes a single run.
type RunOptions struct {
	MaxReviews  int
	SkipCache   bool
	CollectOnly bool
}

// Engine runs the collect-then-analyze flow for one product URL at a time.
type Engine struct {
	collector Collector
	analyzer  Analyzer
	storage   storage.Storage
	pipeline  *pipeline.Pipeline
	history   History
	cache     RunCache
	metrics   *observability.Metrics
	logger    *slog.Logger
	state     atomic.Int32
	now       func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithStorage persists collected reviews.
func WithStorage(s storage.Storage) Option {
	return func(e *Engine) { e.storage = s }
}

// WithPipeline cleans collected reviews before they are saved or analyzed.
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(e *Engine) { e.pipeline = p }
}

// WithHistory records each finished run.
func WithHistory(h History) Option {
	return func(e *Engine) { e.history = h }
}

// WithCache short-circuits runs for recently analyzed URLs.
func WithCache(c RunCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithMetrics records run counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine. analyzer may be nil for collect-only use.
func New(c Collector, a Analyzer, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		collector: c,
		analyzer:  a,
		logger:    logger.With("component", "engine"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Run collects and analyzes url, returning a new Run. A failed run is
// returned alongside its error so callers can still show what happened.
func (e *Engine) Run(ctx context.Context, url string, opts RunOptions) (*types.Run, error) {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, types.ErrRunInProgress
	}
	defer e.state.Store(int32(StateIdle))

	if e.cache != nil && !opts.SkipCache && !opts.CollectOnly {
		if cached := e.cachedRun(ctx, url, opts.MaxReviews); cached != nil {
			return cached, nil
		}
	}

	run := &types.Run{
		ID:         uuid.NewString(),
		URL:        url,
		MaxReviews: opts.MaxReviews,
		StartedAt:  e.now(),
	}
	logger := e.logger.With("run_id", run.ID, "url", url)
	logger.Info("run started", "max_reviews", opts.MaxReviews)

	res, err := e.collector.Collect(ctx, url, opts.MaxReviews)
	if err != nil {
		return e.fail(ctx, run, fmt.Errorf("collect: %w", err))
	}

	reviews := res.Reviews
	if e.pipeline != nil {
		reviews = e.pipeline.Run(reviews)
	}

	run.Collected = len(reviews)
	run.AdvertisedTotal = res.AdvertisedTotal
	run.Pages = res.Pages
	run.ProductImage = res.ProductImage
	run.Reviews = reviews
	if res.Partial() {
		run.Warn(fmt.Sprintf("collection stopped after repeated page failures; %d reviews collected", len(reviews)))
	}

	if e.storage != nil {
		if err := e.storage.SaveReviews(ctx, reviews); err != nil {
			logger.Warn("failed to save reviews", "error", err)
			run.Warn("reviews could not be saved")
		}
	}

	if len(reviews) == 0 {
		run.Status = types.RunNoReviews
		logger.Info("no reviews found")
		e.finish(ctx, run)
		return run, nil
	}

	if opts.CollectOnly || e.analyzer == nil {
		run.Status = types.RunCompleted
		e.finish(ctx, run)
		return run, nil
	}

	ares, err := e.analyzer.Analyze(ctx, reviews)
	if err != nil {
		return e.fail(ctx, run, fmt.Errorf("analyze: %w", err))
	}

	run.Reviews = ares.Reviews
	run.Report = ares.Report
	run.FailedBatches = ares.FailedBatches
	if e.storage != nil {
		if err := e.storage.SaveProgress(ctx, run.Reviews); err != nil {
			logger.Warn("failed to save analysis progress", "error", err)
			run.Warn("analysis progress could not be saved")
		}
	}
	if ares.FailedBatches > 0 {
		run.Warn(fmt.Sprintf("%d of %d batches could not be analyzed; fallback annotations used", ares.FailedBatches, ares.Batches))
	}

	run.Status = types.RunCompleted
	e.finish(ctx, run)
	return run, nil
}

// Reanalyze re-runs analysis for reviews whose annotation is missing or a
// fallback, keeps every other annotation, and re-aggregates. It returns
// the merged result and how many reviews were retried.
func (e *Engine) Reanalyze(ctx context.Context, reviews []types.Review) (*analyzer.Result, int, error) {
	if e.analyzer == nil {
		return nil, 0, errors.New("no analyzer configured")
	}

	merged := make([]types.Review, len(reviews))
	copy(merged, reviews)

	var idx []int
	var pending []types.Review
	for i, r := range merged {
		if r.Analysis == nil || r.Analysis.IsFallback() {
			idx = append(idx, i)
			pending = append(pending, r)
		}
	}

	res := &analyzer.Result{Reviews: merged}
	if len(pending) > 0 {
		ares, err := e.analyzer.Analyze(ctx, pending)
		if err != nil {
			return nil, 0, err
		}
		for j, i := range idx {
			merged[i].Analysis = ares.Reviews[j].Analysis
		}
		res.Batches = ares.Batches
		res.FailedBatches = ares.FailedBatches
	}

	res.Report = analyzer.Aggregate(merged)
	res.Report.FailedBatches = res.FailedBatches

	if e.storage != nil && len(pending) > 0 {
		if err := e.storage.SaveProgress(ctx, merged); err != nil {
			e.logger.Warn("failed to save analysis progress", "error", err)
		}
	}

	e.logger.Info("reanalysis finished", "retried", len(pending), "failed_batches", res.FailedBatches)
	return res, len(pending), nil
}

// cachedRun returns a completed run for url collected with the same review
// limit, rewriting the output files from it so they match what is served.
func (e *Engine) cachedRun(ctx context.Context, url string, maxReviews int) *types.Run {
	cached, err := e.cache.Get(ctx, url)
	switch {
	case errors.Is(err, types.ErrCacheMiss):
		return nil
	case err != nil:
		e.logger.Warn("run cache unavailable", "error", err)
		return nil
	case cached.MaxReviews != maxReviews:
		e.logger.Debug("cached run has a different review limit",
			"url", url, "cached_max", cached.MaxReviews, "max", maxReviews)
		return nil
	}

	if e.storage != nil {
		if err := e.restoreFiles(ctx, cached); err != nil {
			e.logger.Warn("cached run could not be written to storage, running fresh", "run_id", cached.ID, "error", err)
			return nil
		}
	}

	e.logger.Info("serving cached run", "url", url, "run_id", cached.ID)
	return cached
}

// restoreFiles writes a cached run's collected and annotated reviews back to storage.
func (e *Engine) restoreFiles(ctx context.Context, run *types.Run) error {
	collected := make([]types.Review, len(run.Reviews))
	copy(collected, run.Reviews)
	for i := range collected {
		collected[i].Analysis = nil
	}
	if err := e.storage.SaveReviews(ctx, collected); err != nil {
		return err
	}
	if run.Report == nil {
		return nil
	}
	return e.storage.SaveProgress(ctx, run.Reviews)
}

func (e *Engine) fail(ctx context.Context, run *types.Run, err error) (*types.Run, error) {
	run.Status = types.RunFailed
	run.Error = err.Error()
	e.logger.Error("run failed", "run_id", run.ID, "url", run.URL, "error", err)
	e.finish(ctx, run)
	return run, err
}

// finish stamps the run and records it. Recording failures only log.
func (e *Engine) finish(ctx context.Context, run *types.Run) {
	run.FinishedAt = e.now()
	e.metrics.ObserveRun(string(run.Status), run.Duration())

	// Recording must outlive a cancelled run context.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if e.history != nil {
		if err := e.history.RecordRun(recordCtx, run); err != nil {
			e.logger.Warn("failed to record run", "run_id", run.ID, "error", err)
		}
	}
	// Collect-only runs carry no report and must not answer a later analysis.
	if e.cache != nil && run.Report != nil {
		if err := e.cache.Set(recordCtx, run); err != nil {
			e.logger.Warn("failed to cache run", "run_id", run.ID, "error", err)
		}
	}

	e.logger.Info("run finished",
		"run_id", run.ID,
		"status", run.Status,
		"reviews", len(run.Reviews),
		"duration", run.Duration(),
		"warnings", len(run.Warnings),
	)
}
