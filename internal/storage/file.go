package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// FileStorage writes reviews and analysis progress as JSON arrays.
// Each save overwrites the previous file atomically.
type FileStorage struct {
	reviewsPath  string
	progressPath string
	mu           sync.Mutex
	logger       *slog.Logger
}

// NewFileStorage creates a file storage rooted at dir.
func NewFileStorage(dir, reviewsFile, progressFile string, logger *slog.Logger) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "file", Err: fmt.Errorf("create output dir: %w", err)}
	}
	return &FileStorage{
		reviewsPath:  filepath.Join(dir, reviewsFile),
		progressPath: filepath.Join(dir, progressFile),
		logger:       logger.With("component", "file_storage"),
	}, nil
}

func (s *FileStorage) Name() string { return "file" }

// ReviewsPath is where collected reviews are written.
func (s *FileStorage) ReviewsPath() string { return s.reviewsPath }

// ProgressPath is where annotated reviews are written.
func (s *FileStorage) ProgressPath() string { return s.progressPath }

func (s *FileStorage) SaveReviews(ctx context.Context, reviews []types.Review) error {
	return s.write(s.reviewsPath, reviews)
}

func (s *FileStorage) SaveProgress(ctx context.Context, reviews []types.Review) error {
	return s.write(s.progressPath, reviews)
}

func (s *FileStorage) Close() error { return nil }

func (s *FileStorage) write(path string, reviews []types.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reviews == nil {
		reviews = []types.Review{}
	}
	if err := writeJSONAtomic(path, reviews); err != nil {
		return &types.StorageError{Backend: "file", Err: err}
	}
	s.logger.Debug("reviews written", "path", path, "count", len(reviews))
	return nil
}

// writeJSONAtomic writes v to a temp file then renames it over path.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// LoadReviews reads a reviews or progress file. A missing file yields nil, nil.
func LoadReviews(path string) ([]types.Review, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var reviews []types.Review
	if err := json.Unmarshal(data, &reviews); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return reviews, nil
}

// LoadProgress reads the annotated reviews of the last analysis, if any.
func (s *FileStorage) LoadProgress() ([]types.Review, error) {
	return LoadReviews(s.progressPath)
}
