package config

import (
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Process phases selectable via PROCESS_TYPE.
const (
	PhaseDiscover  = "discover"
	PhaseEnrich    = "enrich"
	PhaseProviders = "providers"
	PhaseFull      = "full"
	PhaseReindex   = "reindex"
)

// Content-type selectors for CONTENT_TYPE.
const (
	ContentTV     = "tv"
	ContentMovies = "movies"
	ContentBoth   = "both"
)

// Config holds shared runtime configuration for the worker and API services.
type Config struct {
	TMDBAPIKey  string
	TMDBBaseURL string

	MongoURI        string
	MongoDB         string
	MongoCollection string
	LeaseCollection string

	TotalWorkers   int
	MaxWorkers     int
	BatchSize      int
	RateLimitDelay time.Duration

	ProcessType string
	ContentType string
	StartPage   int
	EndPage     int

	MovieStartYear int
	MovieEndYear   int

	ProviderRefreshDays     int
	EnrichmentRefreshDaysTV int
	EnrichmentRefreshMovies int

	LeaseStaleAfter   time.Duration
	HeartbeatInterval time.Duration
	InstanceID        string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MetricsAddr string
	HTTPPort    string
}

// Load reads configuration from environment variables with sane defaults for
// local development. A .env file in the working directory is honored first.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		TMDBAPIKey:  getEnv("TMDB_API_KEY", ""),
		TMDBBaseURL: getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),

		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:         getEnv("MONGO_DB", "vpn-series-db"),
		MongoCollection: getEnv("MONGO_COLLECTION", "content_collection"),
		LeaseCollection: getEnv("LEASE_COLLECTION", "worker_locks"),

		TotalWorkers:   getEnvInt("TOTAL_WORKERS", 8),
		MaxWorkers:     getEnvInt("MAX_WORKERS", 20),
		BatchSize:      getEnvInt("BATCH_SIZE", 25),
		RateLimitDelay: getEnvDuration("RATE_LIMIT_DELAY", 100*time.Millisecond),

		ProcessType: getEnv("PROCESS_TYPE", PhaseFull),
		ContentType: getEnv("CONTENT_TYPE", ContentBoth),
		StartPage:   getEnvInt("START_PAGE", 1),
		EndPage:     getEnvInt("END_PAGE", 400),

		MovieStartYear: getEnvInt("MOVIE_START_YEAR", 1990),
		MovieEndYear:   getEnvInt("MOVIE_END_YEAR", time.Now().Year()),

		ProviderRefreshDays:     getEnvInt("PROVIDER_REFRESH_DAYS", 7),
		EnrichmentRefreshDaysTV: getEnvInt("ENRICHMENT_REFRESH_DAYS_TV", 30),
		EnrichmentRefreshMovies: getEnvInt("ENRICHMENT_REFRESH_DAYS_MOVIE", 90),

		LeaseStaleAfter:   getEnvDuration("LEASE_STALE_AFTER", 5*time.Minute),
		HeartbeatInterval: getEnvDuration("HEARTBEAT_INTERVAL", time.Minute),
		InstanceID:        getEnv("INSTANCE_ID", defaultInstanceID()),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
	}
}

// EnrichmentRefreshDays returns the enrichment refresh threshold in days for
// the given content type. Movie metadata changes less often than series
// metadata, so movies get the longer window.
func (c Config) EnrichmentRefreshDays(contentType string) int {
	if contentType == "movie" {
		return c.EnrichmentRefreshMovies
	}
	return c.EnrichmentRefreshDaysTV
}

func defaultInstanceID() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return "worker-" + uuid.New().String()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
