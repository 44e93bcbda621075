package storage

import (
	"context"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Storage is the interface for all review storage backends.
type Storage interface {
	// SaveReviews persists the collected reviews, replacing the previous set.
	SaveReviews(ctx context.Context, reviews []types.Review) error

	// SaveProgress persists annotated reviews so an analysis can be recovered.
	SaveProgress(ctx context.Context, reviews []types.Review) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}
