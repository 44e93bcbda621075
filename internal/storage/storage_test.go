package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleReviews() []types.Review {
	return []types.Review{
		{Reviewer: "ann", Rating: "5", Title: "Great", Text: "Loved it", Date: "2024-01-01", Verified: true, Images: []string{"https://x/1.jpg"}},
		{Reviewer: "bob", Rating: "2", Title: "Late", Text: "Took weeks", Date: "2024-01-02",
			Analysis: &types.Annotation{Summary: "Slow delivery", Sentiment: types.SentimentNegative, Category: types.CategoryDelivery}},
	}
}

// --- File Storage Tests ---

func TestFileStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStorage(filepath.Join(dir, "out"), "review.json", "review_analysis_progress.json", testLogger)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}

	if err := fs.SaveReviews(context.Background(), sampleReviews()); err != nil {
		t.Fatalf("SaveReviews: %v", err)
	}
	got, err := LoadReviews(fs.ReviewsPath())
	if err != nil {
		t.Fatalf("LoadReviews: %v", err)
	}
	if len(got) != 2 || got[0].Reviewer != "ann" || !got[0].Verified {
		t.Errorf("unexpected reviews %+v", got)
	}

	if err := fs.SaveProgress(context.Background(), sampleReviews()[1:]); err != nil {
		t.Fatalf("SaveProgress: %v", err)
	}
	progress, err := fs.LoadProgress()
	if err != nil {
		t.Fatalf("LoadProgress: %v", err)
	}
	if len(progress) != 1 || progress[0].Analysis == nil || progress[0].Analysis.Category != types.CategoryDelivery {
		t.Errorf("unexpected progress %+v", progress)
	}

	if _, err := os.Stat(fs.ReviewsPath() + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Error("temp file should not remain after write")
	}
}

func TestFileStorageOverwrites(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir(), "review.json", "progress.json", testLogger)
	if err != nil {
		t.Fatal(err)
	}
	_ = fs.SaveReviews(context.Background(), sampleReviews())
	_ = fs.SaveReviews(context.Background(), nil)

	got, err := LoadReviews(fs.ReviewsPath())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty array after overwrite, got %v", got)
	}
}

func TestLoadReviewsMissing(t *testing.T) {
	got, err := LoadReviews(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil || got != nil {
		t.Errorf("expected nil, nil for missing file; got %v, %v", got, err)
	}
}

// --- Multi Storage Tests ---

type failingStorage struct{ calls int }

func (f *failingStorage) SaveReviews(ctx context.Context, r []types.Review) error {
	f.calls++
	return errors.New("down")
}
func (f *failingStorage) SaveProgress(ctx context.Context, r []types.Review) error {
	f.calls++
	return errors.New("down")
}
func (f *failingStorage) Close() error { return nil }
func (f *failingStorage) Name() string { return "failing" }

func TestMultiStorageContinuesPastFailure(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir(), "review.json", "progress.json", testLogger)
	if err != nil {
		t.Fatal(err)
	}
	bad := &failingStorage{}
	multi := NewMultiStorage([]Storage{bad, fs}, testLogger)

	if err := multi.SaveReviews(context.Background(), sampleReviews()); err == nil {
		t.Error("expected first backend error")
	}
	got, _ := LoadReviews(fs.ReviewsPath())
	if len(got) != 2 {
		t.Errorf("later backends must still be written, got %d reviews", len(got))
	}
	if bad.calls != 1 {
		t.Errorf("expected 1 call to failing backend, got %d", bad.calls)
	}
}

// --- SQLite History Tests ---

func TestSQLiteHistory(t *testing.T) {
	h, err := NewSQLiteHistory(filepath.Join(t.TempDir(), "hist", "history.db"))
	if err != nil {
		t.Fatalf("NewSQLiteHistory: %v", err)
	}
	defer h.Close()

	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	runs := []*types.Run{
		{ID: "r1", URL: "https://a/p", Status: types.RunCompleted, StartedAt: base, FinishedAt: base.Add(time.Minute),
			Reviews: sampleReviews(), Report: &types.AggregateReport{PercentPositive: 50, AverageRating: 3.5, Narrative: "n1"}},
		{ID: "r2", URL: "https://b/p", Status: types.RunNoReviews, StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour)},
		{ID: "r3", URL: "https://a/p", Status: types.RunCompleted, StartedAt: base.Add(2 * time.Hour), FinishedAt: base.Add(3 * time.Hour),
			Warnings: []string{"partial"}},
	}
	for _, r := range runs {
		if err := h.RecordRun(ctx, r); err != nil {
			t.Fatalf("RecordRun(%s): %v", r.ID, err)
		}
	}

	all, err := h.ListRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 3 || all[0].ID != "r3" {
		t.Fatalf("expected 3 runs newest first, got %+v", all)
	}
	if len(all[0].Warnings) != 1 {
		t.Errorf("expected warnings round trip, got %v", all[0].Warnings)
	}

	forA, err := h.ListRuns(ctx, "https://a/p", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(forA) != 2 {
		t.Fatalf("expected 2 runs for product a, got %d", len(forA))
	}
	if forA[1].ReviewCount != 2 || forA[1].PercentPositive != 50 || forA[1].Narrative != "n1" {
		t.Errorf("unexpected summary %+v", forA[1])
	}
}
