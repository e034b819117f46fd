package pipeline

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"streaming-catalog/internal/models"
	"streaming-catalog/internal/shard"
	"streaming-catalog/internal/store"
	"streaming-catalog/internal/telemetry"
	"streaming-catalog/internal/tmdb"
)

// errNoDetails marks an item whose detail fetch degraded to the empty
// sentinel; writing an empty enrichment would erase good data.
var errNoDetails = errors.New("no details available")

func (r *Runner) enrich(ctx context.Context) error {
	for _, ct := range r.contentTypes() {
		threshold := time.Duration(r.cfg.EnrichmentRefreshDays(ct)) * 24 * time.Hour
		refs, err := r.store.FindStaleEnrichment(ctx, ct, threshold, time.Now())
		if err != nil {
			return err
		}
		mine := shard.Assign(refs, r.workerID, r.cfg.TotalWorkers)
		log.Printf("worker %d: enriching %d of %d stale %s items", r.workerID, len(mine), len(refs), ct)

		for _, batch := range shard.Chunk(mine, r.cfg.BatchSize) {
			staged := make([]*store.Update, len(batch))
			err := forEachIndex(ctx, len(batch), r.cfg.MaxWorkers, func(ctx context.Context, i int) {
				u, err := r.enrichOne(ctx, batch[i])
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						log.Printf("enrich item %s failed: %v", batch[i].ExternalID, err)
						telemetry.UnitFailures.Inc()
					}
					return
				}
				staged[i] = u
			})
			if err != nil {
				return err
			}
			r.flushUpdates(ctx, staged, telemetry.EnrichmentUpdates)
		}
	}
	return nil
}

func (r *Runner) enrichOne(ctx context.Context, ref models.ItemRef) (*store.Update, error) {
	now := time.Now().Unix()
	if ref.ContentType == models.ContentTypeMovie {
		details, err := r.tmdb.MovieDetails(ctx, ref.ExternalID)
		if err != nil {
			return nil, err
		}
		if movieDetailsEmpty(details) {
			return nil, errNoDetails
		}
		return &store.Update{ExternalID: ref.ExternalID, Set: movieEnrichment(details, now)}, nil
	}

	details, err := r.tmdb.SeriesDetails(ctx, ref.ExternalID)
	if err != nil {
		return nil, err
	}
	if seriesDetailsEmpty(details) {
		return nil, errNoDetails
	}
	return &store.Update{ExternalID: ref.ExternalID, Set: seriesEnrichment(details, now)}, nil
}

// flushUpdates applies the non-nil staged updates and counts the outcome on
// the given counter.
func (r *Runner) flushUpdates(ctx context.Context, staged []*store.Update, counter interface{ Add(float64) }) {
	updates := make([]store.Update, 0, len(staged))
	for _, u := range staged {
		if u != nil {
			updates = append(updates, *u)
		}
	}
	if len(updates) == 0 {
		return
	}
	res := r.store.ApplyUpdates(ctx, updates)
	counter.Add(float64(res.Written))
	if res.Failed > 0 {
		log.Printf("worker %d: %d of %d updates failed", r.workerID, res.Failed, len(updates))
	}
}

// seriesEnrichment maps series details onto the stored document fields.
// Missing numerics become 0 and missing strings "", so a refresh always
// leaves the document fully populated.
func seriesEnrichment(d tmdb.SeriesDetails, now int64) bson.M {
	return bson.M{
		"genres":                genreNames(d.Genres),
		"actors":                topCast(d.Credits.Cast, 3),
		"episode_run_time":      firstOrZero(d.EpisodeRunTime),
		"number_of_episodes":    d.NumberOfEpisodes,
		"number_of_seasons":     d.NumberOfSeasons,
		"popularity":            d.Popularity,
		"vote_average":          d.VoteAverage,
		"vote_count":            d.VoteCount,
		"plot":                  d.Overview,
		"poster_path":           d.PosterPath,
		"backdrop_path":         d.BackdropPath,
		"year":                  yearOf(d.FirstAirDate),
		"release_year":          yearNum(d.FirstAirDate),
		"enrichment_status":     models.StatusUpdated,
		"enrichment_updated_at": now,
	}
}

func movieEnrichment(d tmdb.MovieDetails, now int64) bson.M {
	return bson.M{
		"genres":                genreNames(d.Genres),
		"actors":                topCast(d.Credits.Cast, 3),
		"runtime":               d.Runtime,
		"popularity":            d.Popularity,
		"vote_average":          d.VoteAverage,
		"vote_count":            d.VoteCount,
		"plot":                  d.Overview,
		"poster_path":           d.PosterPath,
		"backdrop_path":         d.BackdropPath,
		"release_date":          d.ReleaseDate,
		"year":                  yearOf(d.ReleaseDate),
		"release_year":          yearNum(d.ReleaseDate),
		"enrichment_status":     models.StatusUpdated,
		"enrichment_updated_at": now,
	}
}

func seriesDetailsEmpty(d tmdb.SeriesDetails) bool {
	return d.NumberOfSeasons == 0 && len(d.Genres) == 0 && d.Overview == ""
}

func movieDetailsEmpty(d tmdb.MovieDetails) bool {
	return d.Runtime == 0 && len(d.Genres) == 0 && d.Overview == ""
}

func genreNames(genres []tmdb.Genre) []string {
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return names
}

// topCast keeps the first n billed cast members.
func topCast(cast []tmdb.CastMember, n int) []string {
	names := make([]string, 0, n)
	for _, c := range cast {
		if len(names) == n {
			break
		}
		names = append(names, c.Name)
	}
	return names
}

func firstOrZero(values []int) int {
	if len(values) == 0 {
		return 0
	}
	return values[0]
}
