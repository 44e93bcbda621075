package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/IshaanNene/ReviewGoat/internal/collector"
	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/engine"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type queuedRunner struct {
	runs []*types.Run
	opts []engine.RunOptions
	err  error
}

func (q *queuedRunner) Run(ctx context.Context, url string, opts engine.RunOptions) (*types.Run, error) {
	q.opts = append(q.opts, opts)
	if q.err != nil {
		return nil, q.err
	}
	r := q.runs[0]
	q.runs = q.runs[1:]
	return r, nil
}

func run(id string, positive float64, reviewers ...string) *types.Run {
	r := &types.Run{ID: id, URL: "https://shop.example.com/p", Status: types.RunCompleted}
	for _, name := range reviewers {
		r.Reviews = append(r.Reviews, types.Review{Reviewer: name, Text: "t", Date: "01/01/2024"})
	}
	r.Report = &types.AggregateReport{PercentPositive: positive, Checklist: map[string]string{
		types.ChecklistQuality: types.VerdictGood,
	}}
	return r
}

func watchConfig(urls ...string) config.WatchConfig {
	return config.WatchConfig{
		Schedule:   "0 */6 * * *",
		Timezone:   "UTC",
		URLs:       urls,
		MaxReviews: 50,
		JobTimeout: time.Minute,
	}
}

func TestCompareFirstRun(t *testing.T) {
	d := Compare(nil, run("a", 50, "ann", "bob"))
	if d.NewReviews != 2 || !d.Changed() {
		t.Errorf("delta = %+v", d)
	}
}

func TestCompareDetectsNewAndRemoved(t *testing.T) {
	prev := run("a", 50, "ann", "bob")
	cur := run("b", 75, "bob", "cat", "dan")
	cur.Report.Checklist[types.ChecklistQuality] = types.VerdictMixed

	d := Compare(prev, cur)
	if d.NewReviews != 2 || d.RemovedReviews != 1 {
		t.Errorf("new=%d removed=%d", d.NewReviews, d.RemovedReviews)
	}
	if d.PositiveShift != 25 {
		t.Errorf("shift = %v", d.PositiveShift)
	}
	if got := d.ChecklistChange[types.ChecklistQuality]; got != [2]string{types.VerdictGood, types.VerdictMixed} {
		t.Errorf("checklist change = %v", got)
	}
}

func TestCompareUnchanged(t *testing.T) {
	d := Compare(run("a", 50, "ann"), run("b", 50, "ann"))
	if d.Changed() {
		t.Errorf("expected no change, got %+v", d)
	}
}

func TestWatcherRunOnce(t *testing.T) {
	runner := &queuedRunner{runs: []*types.Run{
		run("a", 50, "ann"),
		run("b", 50, "ann", "bob"),
	}}

	var reported []*Delta
	w, err := NewWatcher(runner, watchConfig("https://shop.example.com/p"), testLogger(),
		WithOnRun(func(r *types.Run, d *Delta) { reported = append(reported, d) }))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	if _, err := w.RunOnce(context.Background(), "https://shop.example.com/p"); err != nil {
		t.Fatal(err)
	}
	d, err := w.RunOnce(context.Background(), "https://shop.example.com/p")
	if err != nil {
		t.Fatal(err)
	}
	if d.PreviousRunID != "a" || d.NewReviews != 1 {
		t.Errorf("delta = %+v", d)
	}
	if len(reported) != 2 {
		t.Errorf("onRun calls = %d", len(reported))
	}
	for _, o := range runner.opts {
		if !o.SkipCache || o.MaxReviews != 50 {
			t.Errorf("opts = %+v", o)
		}
	}
}

func TestWatcherRunOnceError(t *testing.T) {
	runner := &queuedRunner{err: types.ErrRunInProgress}
	w, err := NewWatcher(runner, watchConfig(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.RunOnce(context.Background(), "https://shop.example.com/p"); !errors.Is(err, types.ErrRunInProgress) {
		t.Errorf("err = %v", err)
	}
}

func TestWatcherSchedulesURLs(t *testing.T) {
	w, err := NewWatcher(&queuedRunner{}, watchConfig("https://a.example.com/p", "https://b.example.com/p"), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Add("https://a.example.com/p"); err != nil {
		t.Fatal(err)
	}
	if n := len(w.Jobs()); n != 2 {
		t.Fatalf("jobs = %d, want 2", n)
	}

	w.Start()
	defer w.Stop()
	for _, j := range w.Jobs() {
		if j.NextRun.IsZero() {
			t.Errorf("%s has no next run", j.URL)
		}
	}

	w.Remove("https://a.example.com/p")
	if n := len(w.Jobs()); n != 1 {
		t.Errorf("jobs after remove = %d", n)
	}
}

func TestNewWatcherRejectsBadInput(t *testing.T) {
	cfg := watchConfig()
	cfg.Timezone = "Mars/Olympus"
	if _, err := NewWatcher(&queuedRunner{}, cfg, testLogger()); err == nil {
		t.Error("expected timezone error")
	}

	cfg = watchConfig("ftp://example.com")
	if _, err := NewWatcher(&queuedRunner{}, cfg, testLogger()); !errors.Is(err, types.ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL, got %v", err)
	}

	cfg = watchConfig("https://example.com/p")
	cfg.Schedule = "not a schedule"
	if _, err := NewWatcher(&queuedRunner{}, cfg, testLogger()); err == nil {
		t.Error("expected schedule error")
	}
}

// slowCollector returns one review per URL after a pause, long enough for
// overlapping runs to collide on the engine.
type slowCollector struct {
	mu   sync.Mutex
	urls []string
}

func (c *slowCollector) Collect(ctx context.Context, url string, max int) (*collector.Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	c.mu.Lock()
	c.urls = append(c.urls, url)
	c.mu.Unlock()
	return &collector.Result{
		Reviews:    []types.Review{{Reviewer: "ann", Text: "fine " + url, Date: "01/01/2024", Rating: "4"}},
		Pages:      1,
		StopReason: collector.StopNoNextPage,
	}, nil
}

func TestWatcherRunAllRunsEveryURL(t *testing.T) {
	col := &slowCollector{}
	eng := engine.New(col, nil, testLogger())
	urls := []string{"https://a.example.com/p", "https://b.example.com/p"}

	w, err := NewWatcher(eng, watchConfig(urls...), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.RunAll(context.Background()); err != nil {
		t.Fatalf("RunAll: %v", err)
	}

	if len(col.urls) != 2 || col.urls[0] != urls[0] || col.urls[1] != urls[1] {
		t.Errorf("collected %v, want %v in order", col.urls, urls)
	}
}

func TestWatcherTickRunsEveryURL(t *testing.T) {
	col := &slowCollector{}
	eng := engine.New(col, nil, testLogger())
	urls := []string{"https://a.example.com/p", "https://b.example.com/p"}

	cfg := watchConfig(urls...)
	cfg.Schedule = "@every 1s"

	var mu sync.Mutex
	done := make(map[string]types.RunStatus)
	finished := make(chan struct{}, 4)
	w, err := NewWatcher(eng, cfg, testLogger(), WithOnRun(func(r *types.Run, d *Delta) {
		mu.Lock()
		done[r.URL] = r.Status
		mu.Unlock()
		finished <- struct{}{}
	}))
	if err != nil {
		t.Fatal(err)
	}

	w.Start()
	defer func() { <-w.Stop().Done() }()

	timeout := time.After(5 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case <-finished:
		case <-timeout:
			t.Fatalf("only %d of 2 URLs ran in one tick", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, u := range urls {
		if done[u] != types.RunCompleted {
			t.Errorf("%s status = %q, want completed", u, done[u])
		}
	}
}

func TestWatcherRunAllKeepsGoingAfterFailure(t *testing.T) {
	runner := &queuedRunner{err: errors.New("browser crashed")}
	w, err := NewWatcher(runner, watchConfig("https://a.example.com/p", "https://b.example.com/p"), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	if err := w.RunAll(context.Background()); err == nil {
		t.Fatal("expected joined error")
	}
	if len(runner.opts) != 2 {
		t.Errorf("runs attempted = %d, want 2", len(runner.opts))
	}
}
