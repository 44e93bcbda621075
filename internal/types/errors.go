package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrWidgetNotFound = errors.New("reviews widget not found")
	ErrNoReviews      = errors.New("no reviews found")
	ErrInvalidURL     = errors.New("invalid URL")
	ErrRunInProgress  = errors.New("a run is already in progress")
	ErrMaxRetries     = errors.New("max retries exceeded")
	ErrCacheMiss      = errors.New("cache miss")
)

// CollectError wraps errors that stop collection for a URL.
type CollectError struct {
	URL   string
	Stage string // launch, navigate, widget
	Err   error
}

func (e *CollectError) Error() string {
	return fmt.Sprintf("collect error for %s at %s: %v", e.URL, e.Stage, e.Err)
}

func (e *CollectError) Unwrap() error { return e.Err }

// BatchError wraps a failed model call for one batch.
type BatchError struct {
	Batch    int
	Attempts int
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d failed after %d attempt(s): %v", e.Batch, e.Attempts, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
