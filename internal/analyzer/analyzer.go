package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/IshaanNene/ReviewGoat/internal/ai"
	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/observability"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Result is the outcome of one analysis.
type Result struct {
	Reviews       []types.Review
	Report        *types.AggregateReport
	Batches       int
	FailedBatches int
}

// Analyzer annotates reviews in batches and aggregates the results.
type Analyzer struct {
	gen       Generator
	model     string
	batchSize int
	policy    RetryPolicy
	limiter   *rate.Limiter
	metrics   *observability.Metrics
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures the Analyzer.
type Option func(*Analyzer)

// WithRetryPolicy overrides the rate-limit retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(a *Analyzer) { a.policy = p }
}

// WithBatchSize sets how many reviews share one model call.
func WithBatchSize(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.batchSize = n
		}
	}
}

// WithBatchDelay sets the minimum spacing between batch submissions.
func WithBatchDelay(d time.Duration) Option {
	return func(a *Analyzer) { a.limiter = newLimiter(d) }
}

// WithMetrics records model call counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithSleep replaces the backoff pause, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Analyzer) { a.sleep = fn }
}

// New creates an Analyzer calling model through gen.
func New(gen Generator, model string, logger *slog.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		gen:       gen,
		model:     model,
		batchSize: 5,
		policy:    DefaultRetryPolicy(),
		limiter:   newLimiter(time.Second),
		logger:    logger.With("component", "analyzer"),
		sleep:     sleepCtx,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OptionsFromConfig maps the analysis section onto Analyzer options.
func OptionsFromConfig(cfg config.AnalysisConfig) []Option {
	return []Option{
		WithBatchSize(cfg.BatchSize),
		WithBatchDelay(cfg.BatchDelay),
		WithRetryPolicy(RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			Backoff:    LinearBackoff(cfg.BackoffStep),
		}),
	}
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Analyze attaches exactly one annotation to every review, preserving
// order, and aggregates them. Failed batches receive fallback annotations
// rather than failing the run; only context cancellation returns an error.
func (a *Analyzer) Analyze(ctx context.Context, reviews []types.Review) (*Result, error) {
	out := make([]types.Review, len(reviews))
	copy(out, reviews)

	if len(out) == 0 {
		return &Result{Reviews: out, Report: Aggregate(out)}, nil
	}

	batches := Partition(out, a.batchSize)
	res := &Result{Reviews: out, Batches: len(batches)}

	a.logger.Info("analyzing reviews",
		"reviews", len(out),
		"batches", len(batches),
		"model", a.model,
	)

	for i, batch := range batches {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		annotations, err := a.analyzeBatch(ctx, i, batch)
		a.metrics.ObserveBatch(time.Since(start))

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res.FailedBatches++
			a.metrics.IncFallback(len(batch))
			a.logger.Warn("batch failed, using fallback annotations",
				"batch", i+1,
				"size", len(batch),
				"error", err,
			)
			annotations = make([]*types.Annotation, len(batch))
			for j := range annotations {
				annotations[j] = types.FallbackAnnotation()
			}
		}

		for j := range batch {
			batch[j].Analysis = annotations[j]
		}

		a.logger.Debug("batch done", "batch", i+1, "of", len(batches))
	}

	res.Report = Aggregate(out)
	res.Report.FailedBatches = res.FailedBatches

	a.logger.Info("analysis finished",
		"reviews", len(out),
		"failed_batches", res.FailedBatches,
		"percent_positive", res.Report.PercentPositive,
	)

	return res, nil
}

// analyzeBatch submits one batch, retrying rate limits per the policy.
func (a *Analyzer) analyzeBatch(ctx context.Context, index int, batch []types.Review) ([]*types.Annotation, error) {
	prompt := BuildPrompt(batch)

	var lastErr error
	for attempt := 0; attempt <= a.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := a.policy.wait(attempt, lastErr)
			a.metrics.IncModelRetries()
			a.logger.Info("rate limited, retrying batch",
				"batch", index+1,
				"retry", attempt,
				"wait", wait,
			)
			if err := a.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		reply, err := a.gen.Generate(ctx, a.model, prompt)
		if err == nil {
			a.metrics.ObserveModel("ok")
			annotations, missing := placeRecords(ParseReply(reply), len(batch))
			if missing > 0 {
				a.metrics.IncFallback(missing)
				a.logger.Warn("model reply missing reviews", "batch", index+1, "missing", missing)
			}
			return annotations, nil
		}

		lastErr = err
		if !ai.IsRateLimit(err) {
			a.metrics.ObserveModel("error")
			return nil, &types.BatchError{Batch: index + 1, Attempts: attempt + 1, Err: err}
		}
		a.metrics.ObserveModel("rate_limited")
	}

	return nil, &types.BatchError{
		Batch:    index + 1,
		Attempts: a.policy.MaxRetries + 1,
		Err:      fmt.Errorf("%w: %v", types.ErrMaxRetries, lastErr),
	}
}
