package store

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"streaming-catalog/internal/models"
)

func TestStalenessFilterShape(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-7 * 24 * time.Hour).Unix()

	filter := stalenessFilter("provider", models.ContentTypeSeries, cutoff)
	if filter["content_type"] != models.ContentTypeSeries {
		t.Fatalf("missing content type clause: %v", filter)
	}

	or, ok := filter["$or"].([]bson.M)
	if !ok || len(or) != 2 {
		t.Fatalf("expected two-branch $or, got %v", filter["$or"])
	}
	if or[0]["provider_status"] != models.StatusNeedsUpdate {
		t.Fatalf("first branch should match unprocessed items: %v", or[0])
	}
	if or[1]["provider_status"] != models.StatusUpdated {
		t.Fatalf("second branch should match refreshed items: %v", or[1])
	}

	lt := or[1]["provider_updated_at"].(bson.M)["$lt"].(int64)
	if lt != cutoff {
		t.Fatalf("cutoff mismatch: got %d want %d", lt, cutoff)
	}
	// Boundary semantics of $lt: one second past the threshold is due, one
	// second within it is not, and exactly at the cutoff is not.
	if !(cutoff-1 < lt) {
		t.Fatal("item updated just before the cutoff must be selected")
	}
	if cutoff < lt || cutoff+1 < lt {
		t.Fatal("items at or after the cutoff must not be selected")
	}
}

func TestStalenessFilterWithoutContentType(t *testing.T) {
	filter := stalenessFilter("enrichment", "", 100)
	if _, present := filter["content_type"]; present {
		t.Fatal("empty content type must not constrain the query")
	}
	or := filter["$or"].([]bson.M)
	if or[0]["enrichment_status"] != models.StatusNeedsUpdate {
		t.Fatalf("wrong status field: %v", or[0])
	}
}
