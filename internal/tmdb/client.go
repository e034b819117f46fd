// Package tmdb is the upstream catalog fetch capability. Transient failures
// are retried with backoff inside the client; exhausted retries and 404s
// degrade to empty results, so callers always receive a well-formed (possibly
// empty) structure and never an upstream error.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"streaming-catalog/internal/telemetry"
)

const maxRetries = 3

// Limiter gates requests against the shared upstream API key. Allow returns
// whether one request may proceed now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, float64, error)
}

// Client calls the TMDB HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter Limiter
	delay   time.Duration
	backoff time.Duration
}

// NewClient builds a client. limiter may be nil, in which case requests are
// paced only by the fixed delay.
func NewClient(baseURL, apiKey string, limiter Limiter, delay time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: limiter,
		delay:   delay,
		backoff: time.Second,
	}
}

// DiscoverTV fetches one page of popular TV series.
func (c *Client) DiscoverTV(ctx context.Context, page int) (DiscoverPage, error) {
	url := fmt.Sprintf("%s/discover/tv?include_adult=false&include_null_first_air_dates=false&language=en-US&page=%d&sort_by=vote_count.desc&vote_count.gte=50", c.baseURL, page)
	var out DiscoverPage
	err := c.getJSON(ctx, url, &out)
	return out, err
}

// DiscoverMovies fetches one page of popular movies, optionally pinned to a
// primary release year.
func (c *Client) DiscoverMovies(ctx context.Context, page, year int) (DiscoverPage, error) {
	url := fmt.Sprintf("%s/discover/movie?include_adult=false&include_video=false&language=en-US&page=%d&sort_by=vote_count.desc&vote_count.gte=100", c.baseURL, page)
	if year > 0 {
		url = fmt.Sprintf("%s&primary_release_year=%d", url, year)
	}
	var out DiscoverPage
	err := c.getJSON(ctx, url, &out)
	return out, err
}

// SeriesDetails fetches series metadata with credits appended.
func (c *Client) SeriesDetails(ctx context.Context, id string) (SeriesDetails, error) {
	var out SeriesDetails
	err := c.getJSON(ctx, fmt.Sprintf("%s/tv/%s?append_to_response=credits&language=en-US", c.baseURL, id), &out)
	return out, err
}

// MovieDetails fetches movie metadata with credits appended.
func (c *Client) MovieDetails(ctx context.Context, id string) (MovieDetails, error) {
	var out MovieDetails
	err := c.getJSON(ctx, fmt.Sprintf("%s/movie/%s?append_to_response=credits&language=en-US", c.baseURL, id), &out)
	return out, err
}

// SeasonProviders fetches per-country streaming offers for one season.
func (c *Client) SeasonProviders(ctx context.Context, id string, season int) (ProvidersResult, error) {
	var out ProvidersResult
	err := c.getJSON(ctx, fmt.Sprintf("%s/tv/%s/season/%d/watch/providers?language=en-US", c.baseURL, id, season), &out)
	return out, err
}

// MovieProviders fetches per-country streaming offers for a movie.
func (c *Client) MovieProviders(ctx context.Context, id string) (ProvidersResult, error) {
	var out ProvidersResult
	err := c.getJSON(ctx, fmt.Sprintf("%s/movie/%s/watch/providers?language=en-US", c.baseURL, id), &out)
	return out, err
}

// Regions fetches the country codes TMDB reports provider data for.
func (c *Client) Regions(ctx context.Context) (RegionsResult, error) {
	var out RegionsResult
	err := c.getJSON(ctx, fmt.Sprintf("%s/watch/providers/regions", c.baseURL), &out)
	return out, err
}

// getJSON fetches url into v. 429 responses honor Retry-After; other
// transient failures back off exponentially. 404 and exhausted retries leave
// v at its zero value and return nil. Only context cancellation is surfaced
// as an error.
func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		telemetry.InFlightFetches.Inc()
		resp, err := c.http.Do(req)
		telemetry.InFlightFetches.Dec()
		if err != nil {
			lastErr = err
		} else {
			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				wait := retryAfter(resp)
				drain(resp)
				log.Printf("rate limited by upstream, waiting %s", wait)
				telemetry.FetchRetries.Inc()
				if err := sleepCtx(ctx, wait); err != nil {
					return err
				}
				continue
			case resp.StatusCode == http.StatusNotFound:
				drain(resp)
				return nil
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				err := json.NewDecoder(resp.Body).Decode(v)
				drain(resp)
				if err == nil {
					return nil
				}
				lastErr = fmt.Errorf("decode response: %w", err)
			default:
				drain(resp)
				lastErr = fmt.Errorf("unexpected status %s", resp.Status)
			}
		}

		wait := backoffFor(c.backoff, attempt)
		log.Printf("fetch %s failed: %v, retrying in %s", url, lastErr, wait)
		telemetry.FetchRetries.Inc()
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}

	log.Printf("giving up on %s after %d attempts: %v", url, maxRetries, lastErr)
	return nil
}

// wait blocks until the shared limiter grants a token, falling back to the
// fixed inter-request delay when no limiter is configured or it errors.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return sleepCtx(ctx, c.delay)
	}
	for {
		allowed, _, err := c.limiter.Allow(ctx, "tmdb")
		if err != nil {
			log.Printf("rate limiter unavailable: %v", err)
			return sleepCtx(ctx, c.delay)
		}
		if allowed {
			return nil
		}
		if err := sleepCtx(ctx, c.delay); err != nil {
			return err
		}
	}
}

// backoffFor grows the wait by 1.5x per attempt, matching the upstream
// client's historical behavior.
func backoffFor(base time.Duration, attempt int) time.Duration {
	wait := base
	for i := 0; i < attempt; i++ {
		wait = wait * 3 / 2
	}
	return wait
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
