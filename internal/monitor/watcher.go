package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/engine"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Runner executes one collect-then-analyze run.
type Runner interface {
	Run(ctx context.Context, url string, opts engine.RunOptions) (*types.Run, error)
}

// Watcher re-runs a fixed set of product URLs on a cron schedule and
// reports how their reviews changed since the previous run. One cron job
// walks the URLs in order, since the engine admits a single run at a time.
type Watcher struct {
	cron       *cron.Cron
	entry      cron.EntryID
	runner     Runner
	schedule   string
	maxReviews int
	jobTimeout time.Duration
	onRun      func(*types.Run, *Delta)
	logger     *slog.Logger

	// ctx bounds scheduled ticks; Stop cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	urls []string
	last map[string]*types.Run
}

// Option configures the Watcher.
type Option func(*Watcher)

// WithOnRun is called after every finished watch run.
func WithOnRun(fn func(*types.Run, *Delta)) Option {
	return func(w *Watcher) { w.onRun = fn }
}

// NewWatcher schedules every URL in cfg.URLs.
func NewWatcher(runner Runner, cfg config.WatchConfig, logger *slog.Logger, opts ...Option) (*Watcher, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", cfg.Timezone, err)
	}

	logger = logger.With("component", "watcher")
	cl := cronLogger{logger}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner:     runner,
		schedule:   cfg.Schedule,
		maxReviews: cfg.MaxReviews,
		jobTimeout: cfg.JobTimeout,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		last:       make(map[string]*types.Run),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.entry, err = w.cron.AddFunc(cfg.Schedule, func() {
		if err := w.RunAll(w.ctx); err != nil {
			w.logger.Error("watch tick finished with errors", "error", err)
		}
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}

	for _, u := range cfg.URLs {
		if err := w.Add(u); err != nil {
			cancel()
			return nil, err
		}
	}
	return w, nil
}

// Add watches url on the next tick. Adding a URL twice is a no-op.
func (w *Watcher) Add(url string) error {
	if err := config.ValidateURL(url); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if slices.Contains(w.urls, url) {
		return nil
	}
	w.urls = append(w.urls, url)
	w.logger.Info("watching product", "url", url, "schedule", w.schedule)
	return nil
}

// Remove stops watching url.
func (w *Watcher) Remove(url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i := slices.Index(w.urls, url); i >= 0 {
		w.urls = slices.Delete(w.urls, i, i+1)
		delete(w.last, url)
	}
}

// URLs returns the watched URLs in run order.
func (w *Watcher) URLs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.urls)
}

// RunAll runs every watched URL one after another, each under the job
// timeout. A failed URL does not stop the rest; cancellation of ctx does.
func (w *Watcher) RunAll(ctx context.Context) error {
	var errs []error
	for _, url := range w.URLs() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		jobCtx, cancel := ctx, context.CancelFunc(func() {})
		if w.jobTimeout > 0 {
			jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		}
		_, err := w.RunOnce(jobCtx, url)
		cancel()
		if err != nil {
			w.logger.Error("watch job failed", "url", url, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
		}
	}
	return errors.Join(errs...)
}

// RunOnce runs url immediately and diffs it against the previous watch run.
func (w *Watcher) RunOnce(ctx context.Context, url string) (*Delta, error) {
	start := time.Now()
	run, err := w.runner.Run(ctx, url, engine.RunOptions{
		MaxReviews: w.maxReviews,
		SkipCache:  true,
	})
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	prev := w.last[url]
	if run.Status == types.RunCompleted {
		w.last[url] = run
	}
	w.mu.Unlock()

	delta := Compare(prev, run)
	if delta.Changed() {
		w.logger.Info("reviews changed",
			"url", url,
			"new_reviews", delta.NewReviews,
			"removed_reviews", delta.RemovedReviews,
			"positive_shift", delta.PositiveShift,
		)
	} else {
		w.logger.Debug("no review changes", "url", url)
	}
	w.logger.Info("watch run finished", "url", url, "status", run.Status, "duration", time.Since(start))

	if w.onRun != nil {
		w.onRun(run, delta)
	}
	return delta, nil
}

// Start begins running scheduled ticks.
func (w *Watcher) Start() {
	w.logger.Info("starting watcher", "urls", len(w.URLs()))
	w.cron.Start()
}

// Stop halts the scheduler and cancels a running tick. The returned context
// is done once that tick has returned.
func (w *Watcher) Stop() context.Context {
	w.logger.Info("stopping watcher")
	w.cancel()
	return w.cron.Stop()
}

// JobInfo describes one watched URL.
type JobInfo struct {
	URL     string    `json:"url"`
	NextRun time.Time `json:"next_run"`
	LastRun time.Time `json:"last_run"`
}

// Jobs lists watched URLs with the next and previous tick times.
func (w *Watcher) Jobs() []JobInfo {
	e := w.cron.Entry(w.entry)
	urls := w.URLs()
	infos := make([]JobInfo, 0, len(urls))
	for _, url := range urls {
		infos = append(infos, JobInfo{URL: url, NextRun: e.Next, LastRun: e.Prev})
	}
	return infos
}

// cronLogger routes cron's scheduler logs through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
