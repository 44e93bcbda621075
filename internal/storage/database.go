package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// MongoStorage upserts reviews into MongoDB, keyed by review identity.
type MongoStorage struct {
	client   *mongo.Client
	reviews  *mongo.Collection
	analyses *mongo.Collection
	logger   *slog.Logger
}

// NewMongoStorage creates a new MongoDB storage backend.
func NewMongoStorage(ctx context.Context, uri, database string, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	db := client.Database(database)
	return &MongoStorage{
		client:   client,
		reviews:  db.Collection("reviews"),
		analyses: db.Collection("analyses"),
		logger:   logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

func (s *MongoStorage) SaveReviews(ctx context.Context, reviews []types.Review) error {
	return s.upsert(ctx, s.reviews, reviews)
}

func (s *MongoStorage) SaveProgress(ctx context.Context, reviews []types.Review) error {
	return s.upsert(ctx, s.analyses, reviews)
}

func (s *MongoStorage) upsert(ctx context.Context, coll *mongo.Collection, reviews []types.Review) error {
	if len(reviews) == 0 {
		return nil
	}

	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(reviews))
	for i := range reviews {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": reviews[i].Key()}).
			SetReplacement(reviewDocument(&reviews[i], now)).
			SetUpsert(true))
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("bulk write %s: %w", coll.Name(), err)}
	}

	s.logger.Debug("reviews upserted",
		"collection", coll.Name(),
		"upserted", res.UpsertedCount,
		"modified", res.ModifiedCount,
	)
	return nil
}

// reviewDocument is the stored shape of a review.
func reviewDocument(r *types.Review, savedAt time.Time) bson.M {
	doc := bson.M{
		"_id":      r.Key(),
		"reviewer": r.Reviewer,
		"rating":   r.Rating,
		"title":    r.Title,
		"text":     r.Text,
		"date":     r.Date,
		"verified": r.Verified,
		"images":   r.Images,
		"saved_at": savedAt,
	}
	if r.Location != "" {
		doc["location"] = r.Location
	}
	if r.Analysis != nil {
		doc["analysis"] = r.Analysis
	}
	return doc
}

func (s *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// MultiStorage writes to multiple backends simultaneously.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage that fans out to multiple backends.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string { return "multi" }

func (s *MultiStorage) SaveReviews(ctx context.Context, reviews []types.Review) error {
	return s.each(func(b Storage) error { return b.SaveReviews(ctx, reviews) })
}

func (s *MultiStorage) SaveProgress(ctx context.Context, reviews []types.Review) error {
	return s.each(func(b Storage) error { return b.SaveProgress(ctx, reviews) })
}

func (s *MultiStorage) Close() error {
	return s.each(func(b Storage) error { return b.Close() })
}

// each calls fn on every backend and returns the first error.
func (s *MultiStorage) each(fn func(Storage) error) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := fn(backend); err != nil {
			s.logger.Error("backend failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
