package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	c := NewClient(baseURL, "test-key", nil, 0)
	c.backoff = time.Millisecond
	return c
}

func TestGetJSONRetriesAfterRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"page":3,"results":[{"id":7,"name":"Show"}]}`))
	}))
	defer srv.Close()

	page, err := testClient(srv.URL).DiscoverTV(context.Background(), 3)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
	if page.Page != 3 || len(page.Results) != 1 || page.Results[0].Name != "Show" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestGetJSONTreatsNotFoundAsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	res, err := testClient(srv.URL).SeasonProviders(context.Background(), "42", 1)
	if err != nil {
		t.Fatalf("expected nil error on 404, got %v", err)
	}
	if len(res.Results) != 0 {
		t.Fatalf("expected empty results, got %+v", res.Results)
	}
}

func TestGetJSONExhaustionDegradesToEmpty(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	details, err := testClient(srv.URL).SeriesDetails(context.Background(), "42")
	if err != nil {
		t.Fatalf("expected nil error on exhaustion, got %v", err)
	}
	if calls.Load() != maxRetries {
		t.Fatalf("expected %d attempts, got %d", maxRetries, calls.Load())
	}
	if details.NumberOfSeasons != 0 || len(details.Genres) != 0 {
		t.Fatalf("expected zero-value details, got %+v", details)
	}
}

func TestGetJSONSendsAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer token, got %q", got)
		}
		_, _ = w.Write([]byte(`{"results":[{"iso_3166_1":"US"},{"iso_3166_1":"IT"}]}`))
	}))
	defer srv.Close()

	res, err := testClient(srv.URL).Regions(context.Background())
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	if len(res.Results) != 2 || res.Results[1].ISO31661 != "IT" {
		t.Fatalf("unexpected regions: %+v", res.Results)
	}
}

func TestRegionCacheFetchesOnceAndFallsBack(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"results":[{"iso_3166_1":"US"},{"iso_3166_1":"DE"}]}`))
	}))
	defer srv.Close()

	cache := NewRegionCache(testClient(srv.URL))
	first := cache.Countries(context.Background())
	second := cache.Countries(context.Background())
	if calls.Load() != 1 {
		t.Fatalf("expected a single upstream fetch, got %d", calls.Load())
	}
	if len(first) != 2 || first[1] != "DE" {
		t.Fatalf("unexpected countries: %v", first)
	}
	if len(second) != len(first) {
		t.Fatalf("cache returned different lists: %v vs %v", first, second)
	}

	// Unreachable upstream caches the default list instead of failing.
	down := NewRegionCache(testClient("http://127.0.0.1:0"))
	countries := down.Countries(context.Background())
	if len(countries) != len(defaultRegions) {
		t.Fatalf("expected default region list, got %v", countries)
	}
}
