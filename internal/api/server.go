package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/IshaanNene/ReviewGoat/internal/analyzer"
	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/dashboard"
	"github.com/IshaanNene/ReviewGoat/internal/engine"
	"github.com/IshaanNene/ReviewGoat/internal/storage"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Runner executes one collect-then-analyze run.
type Runner interface {
	Run(ctx context.Context, url string, opts engine.RunOptions) (*types.Run, error)
}

// HistoryLister lists recorded runs, newest first.
type HistoryLister interface {
	ListRuns(ctx context.Context, url string, limit int) ([]storage.RunSummary, error)
}

// Server exposes runs over a small JSON API.
type Server struct {
	router     chi.Router
	runner     Runner
	history    HistoryLister
	port       int
	runTimeout time.Duration
	logger     *slog.Logger

	mu     sync.RWMutex
	latest *types.Run
}

// Option configures the Server.
type Option func(*Server)

// WithHistory enables GET /api/runs.
func WithHistory(h HistoryLister) Option {
	return func(s *Server) { s.history = h }
}

// WithMetricsHandler mounts h at path.
func WithMetricsHandler(path string, h http.Handler) Option {
	return func(s *Server) { s.router.Handle(path, h) }
}

// NewServer creates a new API server.
func NewServer(runner Runner, cfg config.ServerConfig, logger *slog.Logger, opts ...Option) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	s := &Server{
		router:     r,
		runner:     runner,
		port:       cfg.Port,
		runTimeout: cfg.RunTimeout,
		logger:     logger.With("component", "api_server"),
	}
	r.Use(s.requestLogger)

	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Latest returns the most recent run, or nil.
func (s *Server) Latest() *types.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// SetLatest replaces the most recent run. Watcher jobs report through it.
func (s *Server) SetLatest(run *types.Run) {
	if run == nil {
		return
	}
	s.mu.Lock()
	s.latest = run
	s.mu.Unlock()
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("API server stopping")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.router.Method(http.MethodGet, "/", dashboard.New(config.Version, s.logger))
	s.router.Get("/api/health", s.handleHealth)

	s.router.Route("/api/runs", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Post("/", s.handleCreateRun)
		r.Get("/latest", s.handleLatest)
		r.Get("/latest/gallery", s.handleGallery)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL        string `json:"url"`
		MaxReviews int    `json:"max_reviews"`
		NoCache    bool   `json:"no_cache"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := config.ValidateURL(body.URL); err != nil {
		s.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.MaxReviews < 0 {
		s.jsonError(w, http.StatusBadRequest, "max_reviews must be >= 0")
		return
	}

	ctx := r.Context()
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	run, err := s.runner.Run(ctx, body.URL, engine.RunOptions{
		MaxReviews: body.MaxReviews,
		SkipCache:  body.NoCache,
	})
	s.SetLatest(run)

	if err != nil {
		s.jsonResponse(w, statusFor(err), map[string]any{
			"error": err.Error(),
			"run":   run,
		})
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	run := s.Latest()
	if run == nil {
		s.jsonError(w, http.StatusNotFound, "no runs yet")
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	run := s.Latest()
	if run == nil {
		s.jsonError(w, http.StatusNotFound, "no runs yet")
		return
	}
	items := analyzer.Gallery(run.Reviews)
	if items == nil {
		items = []types.GalleryItem{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"product_image": run.ProductImage,
		"items":         items,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.jsonError(w, http.StatusServiceUnavailable, "run history disabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.jsonError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.history.ListRuns(r.Context(), r.URL.Query().Get("url"), limit)
	if err != nil {
		s.logger.Error("list runs failed", "error", err)
		s.jsonError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	if runs == nil {
		runs = []storage.RunSummary{}
	}
	s.jsonResponse(w, http.StatusOK, runs)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, types.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

func (s *Server) jsonError(w http.ResponseWriter, status int, msg string) {
	s.jsonResponse(w, status, map[string]string{"error": msg})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
