package observability

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for collection and analysis.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ReviewsCollected prometheus.Counter
	PagesVisited     prometheus.Counter
	PageRetries      prometheus.Counter
	ModelRequests    *prometheus.CounterVec // outcome: ok|rate_limited|error
	ModelRetries     prometheus.Counter
	FallbackReviews  prometheus.Counter
	Runs             *prometheus.CounterVec // status
	BatchDuration    prometheus.Histogram
	RunDuration      prometheus.Histogram
	CacheEvents      *prometheus.CounterVec // event: hit|miss|set

	logger *slog.Logger
}

// NewMetrics creates a Metrics instance with its own registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ReviewsCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reviewgoat", Name: "reviews_collected_total", Help: "Unique reviews collected.",
		}),
		PagesVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reviewgoat", Name: "pages_visited_total", Help: "Review pages extracted.",
		}),
		PageRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reviewgoat", Name: "page_retries_total", Help: "Page extractions that yielded nothing new or failed.",
		}),
		ModelRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reviewgoat", Name: "model_requests_total", Help: "Model requests by outcome.",
		}, []string{"outcome"}),
		ModelRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reviewgoat", Name: "model_retries_total", Help: "Batch retries after a rate limit.",
		}),
		FallbackReviews: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reviewgoat", Name: "fallback_annotations_total", Help: "Reviews given a fallback annotation.",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reviewgoat", Name: "runs_total", Help: "Finished runs by status.",
		}, []string{"status"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reviewgoat", Name: "batch_duration_seconds", Help: "Batch analysis duration including retries.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reviewgoat", Name: "run_duration_seconds", Help: "End-to-end run duration.",
			Buckets: prometheus.ExponentialBuckets(5, 2, 8),
		}),
		CacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reviewgoat", Name: "cache_events_total", Help: "Run cache hits/misses/sets.",
		}, []string{"event"}),
		logger: logger.With("component", "metrics"),
	}

	m.registry.MustRegister(
		m.ReviewsCollected, m.PagesVisited, m.PageRetries,
		m.ModelRequests, m.ModelRetries, m.FallbackReviews,
		m.Runs, m.BatchDuration, m.RunDuration, m.CacheEvents,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves metrics in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncReviews(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ReviewsCollected.Add(float64(n))
}

func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesVisited.Inc()
}

func (m *Metrics) IncPageRetries() {
	if m == nil {
		return
	}
	m.PageRetries.Inc()
}

// ObserveModel records one model request outcome.
func (m *Metrics) ObserveModel(outcome string) {
	if m == nil {
		return
	}
	m.ModelRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncModelRetries() {
	if m == nil {
		return
	}
	m.ModelRetries.Inc()
}

func (m *Metrics) IncFallback(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.FallbackReviews.Add(float64(n))
}

func (m *Metrics) ObserveBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.BatchDuration.Observe(d.Seconds())
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveCache(event string) {
	if m == nil {
		return
	}
	m.CacheEvents.WithLabelValues(event).Inc()
}

// StartServer starts a metrics HTTP server on the given port.
func (m *Metrics) StartServer(port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		m.logger.Info("metrics server starting", "port", port, "path", path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return server
}
