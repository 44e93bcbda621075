package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// RunSummary is one row of run history.
type RunSummary struct {
	ID              string          `json:"id"`
	URL             string          `json:"url"`
	Status          types.RunStatus `json:"status"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
	ReviewCount     int             `json:"review_count"`
	AdvertisedTotal int             `json:"advertised_total"`
	PercentPositive float64         `json:"percent_positive"`
	AverageRating   float64         `json:"average_rating"`
	FailedBatches   int             `json:"failed_batches"`
	Narrative       string          `json:"narrative,omitempty"`
	Warnings        []string        `json:"warnings,omitempty"`
}

// SQLiteHistory records finished runs in a SQLite database.
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory opens (creating if needed) the history database at path.
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Err: err}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: err}
	}
	db.SetMaxOpenConns(1)

	h := &SQLiteHistory{db: db}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("migrate: %w", err)}
	}
	return h, nil
}

func (h *SQLiteHistory) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		review_count INTEGER NOT NULL DEFAULT 0,
		advertised_total INTEGER NOT NULL DEFAULT 0,
		percent_positive REAL NOT NULL DEFAULT 0,
		average_rating REAL NOT NULL DEFAULT 0,
		failed_batches INTEGER NOT NULL DEFAULT 0,
		narrative TEXT,
		warnings TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_url ON runs(url, started_at);
	`
	_, err := h.db.Exec(schema)
	return err
}

// RecordRun stores or replaces the summary of run.
func (h *SQLiteHistory) RecordRun(ctx context.Context, run *types.Run) error {
	var pct, avg float64
	var failed int
	var narrative string
	if run.Report != nil {
		pct = run.Report.PercentPositive
		avg = run.Report.AverageRating
		failed = run.Report.FailedBatches
		narrative = run.Report.Narrative
	}
	warnings, _ := json.Marshal(run.Warnings)

	_, err := h.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(id, url, status, started_at, finished_at, review_count, advertised_total,
			 percent_positive, average_rating, failed_batches, narrative, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.URL, string(run.Status), run.StartedAt.UTC(), run.FinishedAt.UTC(),
		len(run.Reviews), run.AdvertisedTotal, pct, avg, failed, narrative, string(warnings),
	)
	if err != nil {
		return &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("insert run: %w", err)}
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. An empty url lists all products.
func (h *SQLiteHistory) ListRuns(ctx context.Context, url string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, url, status, started_at, finished_at, review_count, advertised_total,
		percent_positive, average_rating, failed_batches, narrative, warnings
		FROM runs`
	args := []any{}
	if url != "" {
		query += ` WHERE url = ?`
		args = append(args, url)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: err}
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s         RunSummary
			status    string
			narrative sql.NullString
			warnings  sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.URL, &status, &s.StartedAt, &s.FinishedAt,
			&s.ReviewCount, &s.AdvertisedTotal, &s.PercentPositive, &s.AverageRating,
			&s.FailedBatches, &narrative, &warnings); err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Err: err}
		}
		s.Status = types.RunStatus(status)
		s.Narrative = narrative.String
		if warnings.Valid && warnings.String != "" {
			_ = json.Unmarshal([]byte(warnings.String), &s.Warnings)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}
