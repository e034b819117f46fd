package pipeline

import (
	"context"
	"log"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"streaming-catalog/internal/models"
	"streaming-catalog/internal/shard"
	"streaming-catalog/internal/store"
	"streaming-catalog/internal/telemetry"
)

// reindexBatchSize bounds how many backfill updates are staged per bulk
// write.
const reindexBatchSize = 100

// reindex backfills schema fields on documents written before the current
// layout existed: the id mirror of _id, content_type, the two status fields
// with their timestamps, and release_year.
func (r *Runner) reindex(ctx context.Context) error {
	ids, err := r.store.AllIDs(ctx)
	if err != nil {
		return err
	}
	mine := shard.Assign(ids, r.workerID, r.cfg.TotalWorkers)
	log.Printf("worker %d: reindexing %d of %d documents", r.workerID, len(mine), len(ids))

	for _, batch := range shard.Chunk(mine, reindexBatchSize) {
		updates := make([]store.Update, 0, len(batch))
		for _, id := range batch {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			doc, err := r.store.RawByID(ctx, id)
			if err != nil {
				log.Printf("reindex document %s failed: %v", id, err)
				telemetry.UnitFailures.Inc()
				continue
			}
			if set := backfillFields(doc, time.Now().Unix()); len(set) > 0 {
				updates = append(updates, store.Update{ExternalID: id, Set: set})
			}
		}
		if len(updates) == 0 {
			continue
		}
		res := r.store.ApplyBackfills(ctx, updates)
		log.Printf("worker %d: backfilled %d documents (%d failed)", r.workerID, res.Written, res.Failed)
	}
	return nil
}

// backfillFields computes the $set document bringing a legacy document up to
// the current schema. An empty result means the document is already current.
func backfillFields(doc bson.M, now int64) bson.M {
	set := bson.M{}

	if _, ok := doc["id"]; !ok {
		set["id"] = doc["_id"]
	}
	if _, ok := doc["content_type"]; !ok {
		if hasAny(doc, "number_of_seasons", "episode_run_time", "number_of_episodes") {
			set["content_type"] = models.ContentTypeSeries
		} else {
			set["content_type"] = models.ContentTypeMovie
		}
	}

	if _, ok := doc["enrichment_status"]; !ok {
		if hasAny(doc, "genres") {
			set["enrichment_status"] = models.StatusUpdated
			if _, ok := doc["enrichment_updated_at"]; !ok {
				set["enrichment_updated_at"] = now
			}
		} else {
			set["enrichment_status"] = models.StatusNeedsUpdate
		}
	}
	if _, ok := doc["provider_status"]; !ok {
		if hasAny(doc, "provider_data") {
			set["provider_status"] = models.StatusUpdated
			if _, ok := doc["provider_updated_at"]; !ok {
				set["provider_updated_at"] = now
			}
		} else {
			set["provider_status"] = models.StatusNeedsUpdate
		}
	}

	if _, ok := doc["release_year"]; !ok {
		if year, ok := doc["year"].(string); ok {
			if y, err := strconv.Atoi(year); err == nil {
				set["release_year"] = y
			}
		}
	}
	if _, ok := doc["discovery_date"]; !ok {
		set["discovery_date"] = now
	}

	return set
}

func hasAny(doc bson.M, keys ...string) bool {
	for _, key := range keys {
		if _, ok := doc[key]; ok {
			return true
		}
	}
	return false
}
