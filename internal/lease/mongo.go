package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"streaming-catalog/internal/models"
)

// MongoStore keeps leases in a MongoDB collection. The unique index on
// worker_id is the arbiter for concurrent claims: two racing inserts for the
// same id resolve to one success and one duplicate-key error.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore wraps the given collection.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// EnsureIndexes creates the unique worker_id index and a TTL index on
// created_at so abandoned leases eventually disappear even without an active
// reclaimer.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "worker_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(3600),
		},
	})
	if err != nil {
		return fmt.Errorf("create lease indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) FindByInstance(ctx context.Context, instanceID string) (*models.Lease, error) {
	var l models.Lease
	err := s.coll.FindOne(ctx, bson.M{"instance_id": instanceID}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find lease by instance: %w", err)
	}
	return &l, nil
}

func (s *MongoStore) TakenIDs(ctx context.Context) (map[int]bool, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"worker_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("list leases: %w", err)
	}
	defer cur.Close(ctx)

	taken := make(map[int]bool)
	for cur.Next(ctx) {
		var l models.Lease
		if err := cur.Decode(&l); err != nil {
			return nil, fmt.Errorf("decode lease: %w", err)
		}
		taken[l.WorkerID] = true
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate leases: %w", err)
	}
	return taken, nil
}

func (s *MongoStore) Insert(ctx context.Context, l models.Lease) error {
	_, err := s.coll.InsertOne(ctx, l)
	if mongo.IsDuplicateKeyError(err) {
		return ErrIDTaken
	}
	if err != nil {
		return fmt.Errorf("insert lease: %w", err)
	}
	return nil
}

// RemoveStale atomically deletes and returns the lease with the oldest
// heartbeat older than cutoff. Concurrent callers racing for the same stale
// lease see it handed to exactly one of them.
func (s *MongoStore) RemoveStale(ctx context.Context, cutoff time.Time) (*models.Lease, error) {
	var l models.Lease
	err := s.coll.FindOneAndDelete(ctx,
		bson.M{"last_heartbeat": bson.M{"$lt": cutoff}},
		options.FindOneAndDelete().SetSort(bson.D{{Key: "last_heartbeat", Value: 1}}),
	).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("remove stale lease: %w", err)
	}
	return &l, nil
}

func (s *MongoStore) Heartbeat(ctx context.Context, workerID int, instanceID string, at time.Time) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"worker_id": workerID, "instance_id": instanceID},
		bson.M{"$set": bson.M{"last_heartbeat": at}},
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, workerID int, instanceID string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"worker_id": workerID, "instance_id": instanceID})
	if err != nil {
		return fmt.Errorf("delete lease: %w", err)
	}
	return nil
}
