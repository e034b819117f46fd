package store

import (
	"context"
	"errors"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"streaming-catalog/internal/models"
	"streaming-catalog/internal/telemetry"
)

const duplicateKeyCode = 11000

// BulkResult reports the outcome of a batched write. Duplicates counts
// inserts skipped because the document already existed; they are expected
// when workers overlap and are not failures.
type BulkResult struct {
	Written    int
	Duplicates int
	Failed     int
}

func (r BulkResult) add(o BulkResult) BulkResult {
	return BulkResult{
		Written:    r.Written + o.Written,
		Duplicates: r.Duplicates + o.Duplicates,
		Failed:     r.Failed + o.Failed,
	}
}

// Update carries one staged per-item update, applied by external id.
type Update struct {
	ExternalID string
	Set        bson.M
}

// InsertNew writes a batch of newly discovered items. The insert is
// unordered so one duplicate never blocks the rest of the batch; a failure
// of the batch as a whole degrades to per-item inserts so a single bad
// document cannot sink its batch-mates.
func (s *Store) InsertNew(ctx context.Context, items []models.CatalogItem) BulkResult {
	if len(items) == 0 {
		return BulkResult{}
	}
	docs := make([]any, len(items))
	for i := range items {
		docs[i] = items[i]
	}

	_, err := s.items.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return BulkResult{Written: len(items)}
	}
	if res, ok := partialBulkResult(len(items), err); ok {
		countBulkResult(res)
		return res
	}

	log.Printf("batch insert of %d items failed: %v, retrying per item", len(items), err)
	var res BulkResult
	for i := range items {
		res = res.add(s.insertOne(ctx, items[i]))
	}
	countBulkResult(res)
	return res
}

func (s *Store) insertOne(ctx context.Context, item models.CatalogItem) BulkResult {
	_, err := s.items.InsertOne(ctx, item)
	switch {
	case err == nil:
		return BulkResult{Written: 1}
	case mongo.IsDuplicateKeyError(err):
		return BulkResult{Duplicates: 1}
	default:
		log.Printf("insert item %s failed: %v", item.ExternalID, err)
		return BulkResult{Failed: 1}
	}
}

// ApplyUpdates writes a batch of staged refresh updates, unordered, with the
// same per-item degradation as InsertNew.
func (s *Store) ApplyUpdates(ctx context.Context, updates []Update) BulkResult {
	return s.applyUpdates(ctx, updates, "id")
}

// ApplyBackfills is ApplyUpdates keyed by document _id, for legacy documents
// that predate the id field.
func (s *Store) ApplyBackfills(ctx context.Context, updates []Update) BulkResult {
	return s.applyUpdates(ctx, updates, "_id")
}

func (s *Store) applyUpdates(ctx context.Context, updates []Update, keyField string) BulkResult {
	if len(updates) == 0 {
		return BulkResult{}
	}
	ops := make([]mongo.WriteModel, len(updates))
	for i, u := range updates {
		ops[i] = mongo.NewUpdateOneModel().
			SetFilter(bson.M{keyField: u.ExternalID}).
			SetUpdate(bson.M{"$set": u.Set})
	}

	_, err := s.items.BulkWrite(ctx, ops, options.BulkWrite().SetOrdered(false))
	if err == nil {
		return BulkResult{Written: len(updates)}
	}
	if res, ok := partialBulkResult(len(updates), err); ok {
		countBulkResult(res)
		return res
	}

	log.Printf("batch update of %d items failed: %v, retrying per item", len(updates), err)
	var res BulkResult
	for _, u := range updates {
		_, err := s.items.UpdateOne(ctx, bson.M{keyField: u.ExternalID}, bson.M{"$set": u.Set})
		if err != nil {
			log.Printf("update item %s failed: %v", u.ExternalID, err)
			res.Failed++
			continue
		}
		res.Written++
	}
	countBulkResult(res)
	return res
}

// partialBulkResult classifies a bulk write error into per-item outcomes.
// It reports ok=false for errors that are not per-item (connectivity,
// context), in which case the caller should fall back to single writes.
func partialBulkResult(total int, err error) (BulkResult, bool) {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return BulkResult{}, false
	}
	var res BulkResult
	for _, we := range bwe.WriteErrors {
		if we.Code == duplicateKeyCode {
			res.Duplicates++
			continue
		}
		log.Printf("bulk write error at index %d: %s", we.Index, we.Message)
		res.Failed++
	}
	res.Written = total - res.Duplicates - res.Failed
	return res, true
}

func countBulkResult(res BulkResult) {
	telemetry.DuplicateInserts.Add(float64(res.Duplicates))
	telemetry.WriteFailures.Add(float64(res.Failed))
}
