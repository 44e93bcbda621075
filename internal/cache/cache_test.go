package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

func newTestCache(t *testing.T) (*RunCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0, time.Hour, nil)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRunCacheSetGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	run := &types.Run{
		ID:     "run-1",
		URL:    "https://shop.example.com/p",
		Status: types.RunCompleted,
		Reviews: []types.Review{
			{Reviewer: "ann", Text: "good", Analysis: &types.Annotation{Sentiment: types.SentimentPositive}},
		},
		Report: &types.AggregateReport{Total: 1, PercentPositive: 100},
	}
	if err := c.Set(ctx, run); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := c.Get(ctx, run.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "run-1" || len(got.Reviews) != 1 || got.Reviews[0].Analysis.Sentiment != types.SentimentPositive {
		t.Errorf("unexpected cached run %+v", got)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := c.Get(ctx, run.URL); !errors.Is(err, types.ErrCacheMiss) {
		t.Errorf("expected miss after TTL, got %v", err)
	}
}

func TestRunCacheSkipsIncompleteRuns(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	run := &types.Run{URL: "https://shop.example.com/empty", Status: types.RunNoReviews}
	if err := c.Set(ctx, run); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, run.URL); !errors.Is(err, types.ErrCacheMiss) {
		t.Errorf("expected miss for no_reviews run, got %v", err)
	}
}

func TestRunCacheInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	run := &types.Run{URL: "https://shop.example.com/p", Status: types.RunCompleted}
	_ = c.Set(ctx, run)
	if err := c.Invalidate(ctx, run.URL); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, run.URL); !errors.Is(err, types.ErrCacheMiss) {
		t.Errorf("expected miss after invalidate, got %v", err)
	}
}

func TestKeyStable(t *testing.T) {
	if Key("https://a") != Key("https://a") || Key("https://a") == Key("https://b") {
		t.Error("keys must be stable and distinct per URL")
	}
}
