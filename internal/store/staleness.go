package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"streaming-catalog/internal/models"
)

// stalenessFilter selects items due for a refresh of the given kind
// ("enrichment" or "provider"): never processed, or last refreshed before
// cutoff. An empty contentType matches both content types.
func stalenessFilter(kind, contentType string, cutoff int64) bson.M {
	filter := bson.M{
		"$or": []bson.M{
			{kind + "_status": models.StatusNeedsUpdate},
			{kind + "_status": models.StatusUpdated, kind + "_updated_at": bson.M{"$lt": cutoff}},
		},
	}
	if contentType != "" {
		filter["content_type"] = contentType
	}
	return filter
}

// FindStaleEnrichment returns refs for items whose metadata needs a refresh,
// sorted by external id so every worker sees the same order before sharding.
func (s *Store) FindStaleEnrichment(ctx context.Context, contentType string, threshold time.Duration, now time.Time) ([]models.ItemRef, error) {
	return s.findStale(ctx, "enrichment", contentType, now.Add(-threshold).Unix())
}

// FindStaleProviders returns refs for items whose streaming offers need a
// refresh, in the same deterministic order.
func (s *Store) FindStaleProviders(ctx context.Context, contentType string, threshold time.Duration, now time.Time) ([]models.ItemRef, error) {
	return s.findStale(ctx, "provider", contentType, now.Add(-threshold).Unix())
}

func (s *Store) findStale(ctx context.Context, kind, contentType string, cutoff int64) ([]models.ItemRef, error) {
	cur, err := s.items.Find(ctx,
		stalenessFilter(kind, contentType, cutoff),
		options.Find().
			SetProjection(bson.M{
				"id":                1,
				"title":             1,
				"content_type":      1,
				"number_of_seasons": 1,
				"release_year":      1,
			}).
			SetSort(bson.D{{Key: "id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("query stale %s items: %w", kind, err)
	}
	defer cur.Close(ctx)

	var refs []models.ItemRef
	if err := cur.All(ctx, &refs); err != nil {
		return nil, fmt.Errorf("decode stale %s items: %w", kind, err)
	}
	return refs, nil
}
