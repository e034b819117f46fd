package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	ItemsDiscovered   = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_items_discovered_total", Help: "New catalog items inserted by discovery"})
	EnrichmentUpdates = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_enrichment_updates_total", Help: "Items whose enrichment data was refreshed"})
	ProviderUpdates   = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_provider_updates_total", Help: "Items whose provider data was refreshed"})
	UnitFailures      = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_unit_failures_total", Help: "Work units skipped after an unrecoverable error"})
	FetchRetries      = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_fetch_retries_total", Help: "Upstream fetches retried after a transient failure"})
	DuplicateInserts  = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_duplicate_inserts_total", Help: "Discovery inserts absorbed as duplicate-key conflicts"})
	WriteFailures     = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_write_failures_total", Help: "Store writes that failed after per-item fallback"})
	LeaseReclaims     = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_lease_reclaims_total", Help: "Stale worker leases reclaimed"})
	HeartbeatFailures = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_heartbeat_failures_total", Help: "Lease heartbeat renewals that failed"})
	FilterQueries     = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_filter_queries_total", Help: "Read-side filter queries served"})
	InFlightFetches   = prometheus.NewGauge(prometheus.GaugeOpts{Name: "catalog_inflight_fetches", Help: "Upstream fetches currently in flight"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			ItemsDiscovered,
			EnrichmentUpdates,
			ProviderUpdates,
			UnitFailures,
			FetchRetries,
			DuplicateInserts,
			WriteFailures,
			LeaseReclaims,
			HeartbeatFailures,
			FilterQueries,
			InFlightFetches,
		)
	})
	return promhttp.Handler()
}
