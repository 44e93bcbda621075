package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/engine"
	"github.com/IshaanNene/ReviewGoat/internal/storage"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRunner struct {
	run  *types.Run
	err  error
	url  string
	opts engine.RunOptions
}

func (f *fakeRunner) Run(ctx context.Context, url string, opts engine.RunOptions) (*types.Run, error) {
	f.url, f.opts = url, opts
	return f.run, f.err
}

type fakeHistory struct {
	runs  []storage.RunSummary
	limit int
}

func (f *fakeHistory) ListRuns(ctx context.Context, url string, limit int) ([]storage.RunSummary, error) {
	f.limit = limit
	return f.runs, nil
}

func newTestServer(runner Runner, opts ...Option) *Server {
	return NewServer(runner, config.ServerConfig{Port: 0, RunTimeout: time.Minute}, testLogger(), opts...)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func sampleRun() *types.Run {
	return &types.Run{
		ID:           "run-1",
		URL:          "https://shop.example.com/products/widget",
		Status:       types.RunCompleted,
		ProductImage: "https://cdn.example.com/p.jpg",
		Reviews: []types.Review{
			{Reviewer: "Ann", Rating: "5", Images: []string{"https://cdn.example.com/a.jpg"},
				Analysis: &types.Annotation{Summary: "Great", Sentiment: types.SentimentPositive, Category: types.CategoryQuality}},
			{Reviewer: "Bob", Rating: "2"},
		},
	}
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(&fakeRunner{}), http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["status"] != "ok" || body["version"] != config.Version {
		t.Errorf("body = %v", body)
	}
}

func TestDashboardMounted(t *testing.T) {
	rec := do(t, newTestServer(&fakeRunner{}), http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("dashboard = %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
}

func TestCreateRun(t *testing.T) {
	runner := &fakeRunner{run: sampleRun()}
	s := newTestServer(runner)

	rec := do(t, s, http.MethodPost, "/api/runs",
		`{"url":"https://shop.example.com/products/widget","max_reviews":25,"no_cache":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	if runner.opts.MaxReviews != 25 || !runner.opts.SkipCache {
		t.Errorf("opts = %+v", runner.opts)
	}

	var got types.Run
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "run-1" {
		t.Errorf("run id = %q", got.ID)
	}
	if s.Latest() == nil || s.Latest().ID != "run-1" {
		t.Error("latest run not stored")
	}
}

func TestCreateRunBadRequest(t *testing.T) {
	s := newTestServer(&fakeRunner{})

	cases := map[string]string{
		"bad json":     `{`,
		"bad scheme":   `{"url":"ftp://example.com"}`,
		"negative max": `{"url":"https://example.com/p","max_reviews":-1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/runs", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d", rec.Code)
			}
		})
	}
}

func TestCreateRunErrorStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"in progress", types.ErrRunInProgress, http.StatusConflict},
		{"collector", &types.CollectError{Stage: "widget", Err: types.ErrWidgetNotFound}, http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(&fakeRunner{err: tc.err})
			rec := do(t, s, http.MethodPost, "/api/runs", `{"url":"https://example.com/p"}`)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestLatestAndGallery(t *testing.T) {
	s := newTestServer(&fakeRunner{})

	if rec := do(t, s, http.MethodGet, "/api/runs/latest", ""); rec.Code != http.StatusNotFound {
		t.Errorf("latest before any run = %d", rec.Code)
	}

	s.SetLatest(sampleRun())

	rec := do(t, s, http.MethodGet, "/api/runs/latest", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("latest = %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/runs/latest/gallery", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("gallery = %d", rec.Code)
	}
	var body struct {
		ProductImage string              `json:"product_image"`
		Items        []types.GalleryItem `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.ProductImage == "" || len(body.Items) != 1 || body.Items[0].Reviewer != "Ann" {
		t.Errorf("gallery = %+v", body)
	}
}

func TestListRuns(t *testing.T) {
	if rec := do(t, newTestServer(&fakeRunner{}), http.MethodGet, "/api/runs", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("without history = %d", rec.Code)
	}

	hist := &fakeHistory{runs: []storage.RunSummary{{ID: "a"}, {ID: "b"}}}
	s := newTestServer(&fakeRunner{}, WithHistory(hist))

	rec := do(t, s, http.MethodGet, "/api/runs?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if hist.limit != 5 {
		t.Errorf("limit = %d", hist.limit)
	}
	var runs []storage.RunSummary
	json.NewDecoder(rec.Body).Decode(&runs)
	if len(runs) != 2 {
		t.Errorf("runs = %d", len(runs))
	}

	if rec := do(t, s, http.MethodGet, "/api/runs?limit=zero", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit = %d", rec.Code)
	}
}

func TestMetricsHandlerMounted(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "reviewgoat_runs_total 1\n")
	})
	s := newTestServer(&fakeRunner{}, WithMetricsHandler("/metrics", h))

	rec := do(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "reviewgoat_runs_total") {
		t.Errorf("metrics = %d %q", rec.Code, rec.Body.String())
	}
}

func TestStatusForWrapped(t *testing.T) {
	err := errors.Join(errors.New("collect"), types.ErrRunInProgress)
	if statusFor(err) != http.StatusConflict {
		t.Error("wrapped ErrRunInProgress should map to 409")
	}
}
