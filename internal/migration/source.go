package migration

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"contrast_engine/internal/catalog/models"
)

// Source yields pages of staging listings. Next returns an empty page when
// the source is exhausted.
type Source interface {
	Next(ctx context.Context, limit int) ([]models.RawListing, error)
	Close(ctx context.Context) error
}

// MongoSource streams a staging collection through a single cursor with a
// matching server-side batch size, so a page costs one round trip.
type MongoSource struct {
	collection *mongo.Collection
	cursor     *mongo.Cursor
}

func NewMongoSource(collection *mongo.Collection) *MongoSource {
	return &MongoSource{collection: collection}
}

func (s *MongoSource) Next(ctx context.Context, limit int) ([]models.RawListing, error) {
	if s.cursor == nil {
		cursor, err := s.collection.Find(ctx, bson.D{},
			options.Find().SetBatchSize(int32(limit)))
		if err != nil {
			return nil, fmt.Errorf("failed to open staging cursor: %w", err)
		}
		s.cursor = cursor
	}

	listings := make([]models.RawListing, 0, limit)
	for len(listings) < limit && s.cursor.Next(ctx) {
		var listing models.RawListing
		if err := s.cursor.Decode(&listing); err != nil {
			return nil, fmt.Errorf("failed to decode staging document: %w", err)
		}
		listings = append(listings, listing)
	}
	if err := s.cursor.Err(); err != nil {
		return nil, fmt.Errorf("staging cursor failed: %w", err)
	}
	return listings, nil
}

func (s *MongoSource) Close(ctx context.Context) error {
	if s.cursor == nil {
		return nil
	}
	return s.cursor.Close(ctx)
}

// SliceSource serves listings from memory, used by tests and backfills.
type SliceSource struct {
	listings []models.RawListing
	offset   int
}

func NewSliceSource(listings []models.RawListing) *SliceSource {
	return &SliceSource{listings: listings}
}

func (s *SliceSource) Next(_ context.Context, limit int) ([]models.RawListing, error) {
	if s.offset >= len(s.listings) {
		return nil, nil
	}
	end := s.offset + limit
	if end > len(s.listings) {
		end = len(s.listings)
	}
	page := s.listings[s.offset:end]
	s.offset = end
	return page, nil
}

func (s *SliceSource) Close(_ context.Context) error { return nil }
