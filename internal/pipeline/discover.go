package pipeline

import (
	"context"
	"log"
	"strconv"
	"time"

	"streaming-catalog/internal/models"
	"streaming-catalog/internal/shard"
	"streaming-catalog/internal/telemetry"
	"streaming-catalog/internal/tmdb"
)

// discoverPageCap bounds per-year movie pagination; the upstream API refuses
// pages beyond 500 regardless of total_pages.
const discoverPageCap = 500

func (r *Runner) discover(ctx context.Context) error {
	for _, ct := range r.contentTypes() {
		var err error
		if ct == models.ContentTypeSeries {
			err = r.discoverSeries(ctx)
		} else {
			err = r.discoverMovies(ctx)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// discoverSeries walks this worker's share of the popularity-ranked discovery
// pages and inserts unseen series.
func (r *Runner) discoverSeries(ctx context.Context) error {
	pages := shard.Assign(shard.Pages(r.cfg.StartPage, r.cfg.EndPage), r.workerID, r.cfg.TotalWorkers)
	log.Printf("worker %d: discovering series over %d pages", r.workerID, len(pages))

	for _, page := range pages {
		res, err := r.tmdb.DiscoverTV(ctx, page)
		if err != nil {
			return err
		}
		if page > res.TotalPages && res.TotalPages > 0 {
			continue
		}
		items := make([]models.CatalogItem, 0, len(res.Results))
		now := time.Now().Unix()
		for _, it := range res.Results {
			items = append(items, discoveredSeries(it, now))
		}
		if err := r.insertDiscovered(ctx, items); err != nil {
			return err
		}
	}
	return nil
}

// discoverMovies walks this worker's share of release years and pulls every
// discovery page within each year.
func (r *Runner) discoverMovies(ctx context.Context) error {
	years := shard.Assign(shard.Years(r.cfg.MovieStartYear, r.cfg.MovieEndYear), r.workerID, r.cfg.TotalWorkers)
	log.Printf("worker %d: discovering movies over %d release years", r.workerID, len(years))

	for _, year := range years {
		for page := 1; page <= discoverPageCap; page++ {
			res, err := r.tmdb.DiscoverMovies(ctx, page, year)
			if err != nil {
				return err
			}
			if len(res.Results) == 0 {
				break
			}
			items := make([]models.CatalogItem, 0, len(res.Results))
			now := time.Now().Unix()
			for _, it := range res.Results {
				items = append(items, discoveredMovie(it, now))
			}
			if err := r.insertDiscovered(ctx, items); err != nil {
				return err
			}
			if page >= res.TotalPages {
				break
			}
		}
	}
	return nil
}

// insertDiscovered filters already-known ids and batch-inserts the rest with
// both refresh statuses pending.
func (r *Runner) insertDiscovered(ctx context.Context, items []models.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ExternalID
	}
	existing, err := r.store.ExistingIDs(ctx, ids)
	if err != nil {
		log.Printf("existence check for %d items failed: %v, inserting anyway", len(items), err)
		existing = map[string]bool{}
	}

	fresh := items[:0]
	for _, item := range items {
		if !existing[item.ExternalID] {
			fresh = append(fresh, item)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	res := r.store.InsertNew(ctx, fresh)
	telemetry.ItemsDiscovered.Add(float64(res.Written))
	if res.Written > 0 || res.Failed > 0 {
		log.Printf("worker %d: inserted %d new items (%d duplicates, %d failed)",
			r.workerID, res.Written, res.Duplicates, res.Failed)
	}
	return ctx.Err()
}

func discoveredSeries(it tmdb.DiscoverItem, now int64) models.CatalogItem {
	id := strconv.FormatInt(it.ID, 10)
	return models.CatalogItem{
		ID:               id,
		ExternalID:       id,
		ContentType:      models.ContentTypeSeries,
		Title:            it.Name,
		OriginalTitle:    it.OriginalName,
		Year:             yearOf(it.FirstAirDate),
		ReleaseYear:      yearNum(it.FirstAirDate),
		EnrichmentStatus: models.StatusNeedsUpdate,
		ProviderStatus:   models.StatusNeedsUpdate,
		DiscoveryDate:    now,
	}
}

func discoveredMovie(it tmdb.DiscoverItem, now int64) models.CatalogItem {
	id := strconv.FormatInt(it.ID, 10)
	return models.CatalogItem{
		ID:               id,
		ExternalID:       id,
		ContentType:      models.ContentTypeMovie,
		Title:            it.Title,
		OriginalTitle:    it.OriginalTitle,
		Year:             yearOf(it.ReleaseDate),
		ReleaseYear:      yearNum(it.ReleaseDate),
		ReleaseDate:      it.ReleaseDate,
		EnrichmentStatus: models.StatusNeedsUpdate,
		ProviderStatus:   models.StatusNeedsUpdate,
		DiscoveryDate:    now,
	}
}
