package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"streaming-catalog/internal/models"
)

// filterPageSize is the fixed page size of the read API.
const filterPageSize = 56

// YearValue accepts both a JSON number and a JSON string, since clients send
// the release year either way.
type YearValue string

func (y *YearValue) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "null" {
		return nil
	}
	*y = YearValue(s)
	return nil
}

// FilterCriteria is the request body of the catalog filter endpoint. Country
// and Streaming together select items NOT offered on those platforms in that
// country but offered on at least one of them elsewhere.
type FilterCriteria struct {
	Title     string    `json:"title"`
	Year      YearValue `json:"year"`
	Genres    []string  `json:"genres"`
	Country   string    `json:"country"`
	Streaming []string  `json:"streaming"`
	Page      int       `json:"page"`
}

// BuildFilterQuery translates criteria into the Mongo filter document. All
// provided criteria are combined conjunctively.
func BuildFilterQuery(c FilterCriteria) bson.M {
	q := bson.M{}
	if c.Title != "" {
		q["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(c.Title), Options: "i"}
	}
	if c.Year != "" {
		q["year"] = string(c.Year)
	}
	if len(c.Genres) > 0 {
		q["genres"] = bson.M{"$all": c.Genres}
	}
	if c.Country != "" && len(c.Streaming) > 0 {
		q["$and"] = availabilityClauses(c.Country, c.Streaming)
	}
	return q
}

// availabilityClauses builds the unavailable-here, available-elsewhere
// condition: none of the selected provider keys exist under the selected
// country, yet flattening provider_data across all countries yields at least
// one of them.
func availabilityClauses(country string, providers []string) bson.A {
	clauses := bson.A{}
	for _, p := range providers {
		clauses = append(clauses, bson.M{
			fmt.Sprintf("provider_data.%s.%s", country, p): bson.M{"$exists": false},
		})
	}

	match := bson.A{}
	for _, p := range providers {
		match = append(match, bson.M{"$eq": bson.A{"$$provider.k", p}})
	}
	flattened := bson.M{"$reduce": bson.M{
		"input":        bson.M{"$objectToArray": "$provider_data"},
		"initialValue": bson.A{},
		"in":           bson.M{"$concatArrays": bson.A{"$$value", bson.M{"$objectToArray": "$$this.v"}}},
	}}
	clauses = append(clauses, bson.M{"$expr": bson.M{"$gt": bson.A{
		bson.M{"$size": bson.M{"$ifNull": bson.A{
			bson.M{"$filter": bson.M{
				"input": flattened,
				"as":    "provider",
				"cond":  bson.M{"$or": match},
			}},
			bson.A{},
		}}},
		0,
	}}})
	return clauses
}

var listProjection = bson.M{
	"_id":           0,
	"id":            1,
	"content_type":  1,
	"title":         1,
	"year":          1,
	"release_year":  1,
	"genres":        1,
	"actors":        1,
	"plot":          1,
	"poster_path":   1,
	"backdrop_path": 1,
	"vote_average":  1,
	"vote_count":    1,
	"popularity":    1,
	"provider_data": 1,
}

// Filter runs a criteria query, returning one page of items ranked by vote
// count.
func (s *Store) Filter(ctx context.Context, c FilterCriteria) ([]models.CatalogItem, error) {
	page := c.Page
	if page < 1 {
		page = 1
	}
	cur, err := s.items.Find(ctx,
		BuildFilterQuery(c),
		options.Find().
			SetProjection(listProjection).
			SetSort(bson.D{{Key: "vote_count", Value: -1}}).
			SetSkip(int64((page-1)*filterPageSize)).
			SetLimit(filterPageSize),
	)
	if err != nil {
		return nil, fmt.Errorf("filter query: %w", err)
	}
	defer cur.Close(ctx)

	items := []models.CatalogItem{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode filter results: %w", err)
	}
	return items, nil
}

// listParams maps query-string keys the list endpoint accepts to document
// fields. Anything else is ignored rather than passed through to the store.
var listParams = map[string]string{
	"id":           "id",
	"title":        "title",
	"year":         "year",
	"content_type": "content_type",
}

// List runs the simple exact-match query behind the list endpoint.
func (s *Store) List(ctx context.Context, params map[string]string) ([]models.CatalogItem, error) {
	q := bson.M{}
	for key, value := range params {
		if field, ok := listParams[key]; ok && value != "" {
			q[field] = value
		}
	}
	cur, err := s.items.Find(ctx,
		q,
		options.Find().
			SetProjection(listProjection).
			SetSort(bson.D{{Key: "vote_count", Value: -1}}).
			SetLimit(filterPageSize),
	)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer cur.Close(ctx)

	items := []models.CatalogItem{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode list results: %w", err)
	}
	return items, nil
}
