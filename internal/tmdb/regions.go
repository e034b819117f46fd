package tmdb

import (
	"context"
	"log"
	"sync"
)

// defaultRegions covers the pipeline when the regions endpoint is
// unreachable.
var defaultRegions = []string{"US", "GB", "CA", "AU", "DE", "FR", "JP"}

// RegionCache is a lazily-initialized read-through cache of the country
// codes provider lookups are scoped to. It is owned by the pipeline rather
// than being process-global so tests and multiple pipelines can hold
// independent copies.
type RegionCache struct {
	client *Client

	mu        sync.Mutex
	countries []string
}

// NewRegionCache builds an empty cache backed by client.
func NewRegionCache(client *Client) *RegionCache {
	return &RegionCache{client: client}
}

// Countries returns the cached country list, fetching it on first use. A
// failed or empty fetch caches the default list; staleness across process
// restarts is acceptable since the region set changes rarely.
func (rc *RegionCache) Countries(ctx context.Context) []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.countries != nil {
		return rc.countries
	}

	res, err := rc.client.Regions(ctx)
	if err != nil || len(res.Results) == 0 {
		log.Printf("loading provider regions failed, using default list of %d countries", len(defaultRegions))
		rc.countries = defaultRegions
		return rc.countries
	}

	countries := make([]string, 0, len(res.Results))
	for _, r := range res.Results {
		countries = append(countries, r.ISO31661)
	}
	log.Printf("loaded %d provider regions", len(countries))
	rc.countries = countries
	return rc.countries
}
