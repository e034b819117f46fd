package pipeline

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"streaming-catalog/internal/models"
	"streaming-catalog/internal/shard"
	"streaming-catalog/internal/store"
	"streaming-catalog/internal/telemetry"
	"streaming-catalog/internal/tmdb"
)

func (r *Runner) providers(ctx context.Context) error {
	threshold := time.Duration(r.cfg.ProviderRefreshDays) * 24 * time.Hour
	countries := r.regions.Countries(ctx)

	for _, ct := range r.contentTypes() {
		refs, err := r.store.FindStaleProviders(ctx, ct, threshold, time.Now())
		if err != nil {
			return err
		}
		mine := shard.Assign(refs, r.workerID, r.cfg.TotalWorkers)
		log.Printf("worker %d: refreshing providers for %d of %d stale %s items", r.workerID, len(mine), len(refs), ct)

		for _, batch := range shard.Chunk(mine, r.cfg.BatchSize) {
			staged := make([]*store.Update, len(batch))
			err := forEachIndex(ctx, len(batch), r.cfg.MaxWorkers, func(ctx context.Context, i int) {
				u, err := r.providersOne(ctx, batch[i], countries)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						log.Printf("provider refresh for item %s failed: %v", batch[i].ExternalID, err)
						telemetry.UnitFailures.Inc()
					}
					return
				}
				staged[i] = u
			})
			if err != nil {
				return err
			}
			r.flushUpdates(ctx, staged, telemetry.ProviderUpdates)
		}
	}
	return nil
}

func (r *Runner) providersOne(ctx context.Context, ref models.ItemRef, countries []string) (*store.Update, error) {
	now := time.Now().Unix()
	var data models.ProviderData

	if ref.ContentType == models.ContentTypeMovie {
		res, err := r.tmdb.MovieProviders(ctx, ref.ExternalID)
		if err != nil {
			return nil, err
		}
		data = movieProviderData(res, countries)
	} else {
		// An unenriched series has no season count yet; leave it for a
		// later run instead of writing an empty offer map.
		if ref.NumberOfSeasons == 0 {
			return nil, nil
		}
		seasons := make([]tmdb.ProvidersResult, 0, ref.NumberOfSeasons)
		for season := 1; season <= ref.NumberOfSeasons; season++ {
			res, err := r.tmdb.SeasonProviders(ctx, ref.ExternalID, season)
			if err != nil {
				return nil, err
			}
			seasons = append(seasons, res)
		}
		data = seasonProviderData(seasons, countries)
	}

	return &store.Update{ExternalID: ref.ExternalID, Set: bson.M{
		"provider_data":       data,
		"provider_status":     models.StatusUpdated,
		"provider_updated_at": now,
	}}, nil
}

// seasonProviderData merges per-season offers into country -> provider key ->
// offer, where Count is the number of seasons carrying that offer.
func seasonProviderData(seasons []tmdb.ProvidersResult, countries []string) models.ProviderData {
	data := models.ProviderData{}
	for _, season := range seasons {
		for _, country := range countries {
			cp, ok := season.Results[country]
			if !ok {
				continue
			}
			addOffers(data, country, cp)
		}
	}
	return data
}

// movieProviderData maps a single providers response; movies have no seasons
// so every offer carries Count 1.
func movieProviderData(res tmdb.ProvidersResult, countries []string) models.ProviderData {
	data := models.ProviderData{}
	for _, country := range countries {
		cp, ok := res.Results[country]
		if !ok {
			continue
		}
		addOffers(data, country, cp)
	}
	return data
}

// addOffers folds one country's offer lists into the aggregate, incrementing
// the count for keys seen before.
func addOffers(data models.ProviderData, country string, cp tmdb.CountryProviders) {
	lists := []struct {
		offerType string
		providers []tmdb.Provider
	}{
		{"flatrate", cp.Flatrate},
		{"rent", cp.Rent},
		{"buy", cp.Buy},
	}
	for _, l := range lists {
		for _, p := range l.providers {
			key := models.ProviderKey(p.ProviderName, l.offerType)
			if data[country] == nil {
				data[country] = map[string]models.ProviderOffer{}
			}
			offer, ok := data[country][key]
			if !ok {
				offer = models.ProviderOffer{
					ProviderID: strconv.FormatInt(p.ProviderID, 10),
					Type:       l.offerType,
				}
			}
			offer.Count++
			data[country][key] = offer
		}
	}
}
