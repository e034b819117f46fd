// Package store wraps the shared MongoDB deployment holding the catalog
// collection and the worker lease collection.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Store wraps the Mongo client for catalog persistence.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	items  *mongo.Collection
}

// New connects to MongoDB and pings it. Connection failure here is fatal to
// the caller: a worker cannot operate without its lease store.
func New(ctx context.Context, uri, dbName, collName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	db := client.Database(dbName)
	return &Store{
		client: client,
		db:     db,
		items:  db.Collection(collName),
	}, nil
}

func (s *Store) Close(ctx context.Context) {
	if s.client != nil {
		_ = s.client.Disconnect(ctx)
	}
}

// Collection exposes a sibling collection on the same database, used for the
// worker lease table.
func (s *Store) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// EnsureIndexes creates the indexes the staleness and filter queries rely
// on. Creation is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "content_type", Value: 1}}},
		{Keys: bson.D{{Key: "enrichment_status", Value: 1}}},
		{Keys: bson.D{{Key: "provider_status", Value: 1}}},
		{Keys: bson.D{{Key: "enrichment_status", Value: 1}, {Key: "enrichment_updated_at", Value: 1}}},
		{Keys: bson.D{{Key: "provider_status", Value: 1}, {Key: "provider_updated_at", Value: 1}}},
		{Keys: bson.D{{Key: "content_type", Value: 1}, {Key: "release_year", Value: 1}}},
		{Keys: bson.D{{Key: "vote_count", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create catalog indexes: %w", err)
	}
	return nil
}

// ExistingIDs reports which of the given external ids already have a
// document, so discovery can skip known items before attempting inserts.
func (s *Store) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}
	cur, err := s.items.Find(ctx,
		bson.M{"id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"id": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("query existing ids: %w", err)
	}
	defer cur.Close(ctx)

	existing := make(map[string]bool)
	for cur.Next(ctx) {
		var doc struct {
			ExternalID string `bson:"id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode id: %w", err)
		}
		existing[doc.ExternalID] = true
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing ids: %w", err)
	}
	return existing, nil
}

// AllIDs returns every document id, used by the reindex phase.
func (s *Store) AllIDs(ctx context.Context) ([]string, error) {
	cur, err := s.items.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("query all ids: %w", err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode id: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate all ids: %w", err)
	}
	return ids, nil
}

// RawByID fetches one document without schema assumptions; the reindex phase
// inspects field presence on legacy documents.
func (s *Store) RawByID(ctx context.Context, id string) (bson.M, error) {
	var doc bson.M
	if err := s.items.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("find document %s: %w", id, err)
	}
	return doc, nil
}
