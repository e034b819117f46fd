// Package pipeline orchestrates the fetch-enrich-persist phases a worker runs
// over its shard of the catalog.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"streaming-catalog/internal/config"
	"streaming-catalog/internal/models"
	"streaming-catalog/internal/store"
	"streaming-catalog/internal/tmdb"
)

// Runner executes one process phase for one worker identity.
type Runner struct {
	cfg      config.Config
	store    *store.Store
	tmdb     *tmdb.Client
	regions  *tmdb.RegionCache
	workerID int
}

// New builds a runner for the given worker id.
func New(cfg config.Config, st *store.Store, client *tmdb.Client, workerID int) *Runner {
	return &Runner{
		cfg:      cfg,
		store:    st,
		tmdb:     client,
		regions:  tmdb.NewRegionCache(client),
		workerID: workerID,
	}
}

// Run executes the configured process phase. "full" chains discovery,
// enrichment, and provider refresh in order, so freshly discovered items are
// picked up by the same run.
func (r *Runner) Run(ctx context.Context) error {
	switch r.cfg.ProcessType {
	case config.PhaseDiscover:
		return r.discover(ctx)
	case config.PhaseEnrich:
		return r.enrich(ctx)
	case config.PhaseProviders:
		return r.providers(ctx)
	case config.PhaseReindex:
		return r.reindex(ctx)
	case config.PhaseFull, "":
		if err := r.discover(ctx); err != nil {
			return err
		}
		if err := r.enrich(ctx); err != nil {
			return err
		}
		return r.providers(ctx)
	default:
		return fmt.Errorf("unknown process type %q", r.cfg.ProcessType)
	}
}

// contentTypes resolves the CONTENT_TYPE selector to stored content types.
func (r *Runner) contentTypes() []string {
	switch r.cfg.ContentType {
	case config.ContentTV:
		return []string{models.ContentTypeSeries}
	case config.ContentMovies:
		return []string{models.ContentTypeMovie}
	default:
		return []string{models.ContentTypeSeries, models.ContentTypeMovie}
	}
}

// forEachIndex runs fn(i) for i in [0, n) on a bounded pool. It stops
// scheduling new work once ctx is canceled and returns the cancellation
// cause, if any.
func forEachIndex(ctx context.Context, n, workers int, fn func(ctx context.Context, i int)) error {
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(ctx, i)
		}(i)
	}
	wg.Wait()
	return ctx.Err()
}

// yearOf extracts the year segment of an upstream date ("2020-05-01" ->
// "2020"). Empty dates yield "".
func yearOf(date string) string {
	if date == "" {
		return ""
	}
	return strings.SplitN(date, "-", 2)[0]
}

// yearNum is yearOf as an int, 0 when absent or malformed.
func yearNum(date string) int {
	y, err := strconv.Atoi(yearOf(date))
	if err != nil {
		return 0
	}
	return y
}
