package pipeline

import (
	"testing"

	"streaming-catalog/internal/tmdb"
)

func TestSeasonProviderDataCountsSeasons(t *testing.T) {
	netflix := tmdb.Provider{ProviderID: 8, ProviderName: "Netflix"}
	prime := tmdb.Provider{ProviderID: 9, ProviderName: "Amazon Prime Video"}

	seasons := []tmdb.ProvidersResult{
		{Results: map[string]tmdb.CountryProviders{
			"US": {Flatrate: []tmdb.Provider{netflix, prime}},
			"DE": {Flatrate: []tmdb.Provider{netflix}},
		}},
		{Results: map[string]tmdb.CountryProviders{
			"US": {Flatrate: []tmdb.Provider{netflix}, Buy: []tmdb.Provider{prime}},
		}},
	}

	data := seasonProviderData(seasons, []string{"US", "DE"})

	// Netflix streams both US seasons, Prime only the first.
	us := data["US"]
	if got := us["Netflix_flatrate"]; got.Count != 2 || got.ProviderID != "8" || got.Type != "flatrate" {
		t.Fatalf("Netflix_flatrate: %+v", got)
	}
	if got := us["Amazon Prime Video_flatrate"]; got.Count != 1 {
		t.Fatalf("Amazon Prime Video_flatrate: %+v", got)
	}
	if got := us["Amazon Prime Video_buy"]; got.Count != 1 || got.Type != "buy" {
		t.Fatalf("Amazon Prime Video_buy: %+v", got)
	}
	if got := data["DE"]["Netflix_flatrate"]; got.Count != 1 {
		t.Fatalf("DE Netflix_flatrate: %+v", got)
	}
}

func TestSeasonProviderDataScopedToRegionList(t *testing.T) {
	seasons := []tmdb.ProvidersResult{
		{Results: map[string]tmdb.CountryProviders{
			"US": {Flatrate: []tmdb.Provider{{ProviderID: 8, ProviderName: "Netflix"}}},
			"BR": {Flatrate: []tmdb.Provider{{ProviderID: 8, ProviderName: "Netflix"}}},
		}},
	}
	data := seasonProviderData(seasons, []string{"US"})
	if _, present := data["BR"]; present {
		t.Fatal("countries outside the region list must be ignored")
	}
	if len(data) != 1 {
		t.Fatalf("unexpected data: %v", data)
	}
}

func TestMovieProviderDataAlwaysCountsOne(t *testing.T) {
	res := tmdb.ProvidersResult{Results: map[string]tmdb.CountryProviders{
		"US": {
			Flatrate: []tmdb.Provider{{ProviderID: 8, ProviderName: "Netflix"}},
			Rent:     []tmdb.Provider{{ProviderID: 2, ProviderName: "Apple TV"}},
		},
	}}
	data := movieProviderData(res, []string{"US"})
	if got := data["US"]["Netflix_flatrate"]; got.Count != 1 {
		t.Fatalf("Netflix_flatrate: %+v", got)
	}
	if got := data["US"]["Apple TV_rent"]; got.Count != 1 || got.ProviderID != "2" {
		t.Fatalf("Apple TV_rent: %+v", got)
	}
}

func TestMovieProviderDataEmptyResult(t *testing.T) {
	data := movieProviderData(tmdb.ProvidersResult{}, []string{"US", "DE"})
	if len(data) != 0 {
		t.Fatalf("empty upstream result must aggregate to nothing, got %v", data)
	}
}
