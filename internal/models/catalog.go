package models

import "fmt"

// Status values persisted on the enrichment_status and provider_status fields.
const (
	StatusNeedsUpdate = "NEEDS_UPDATE"
	StatusUpdated     = "UPDATED"
)

// Content types stored on catalog documents. Series keep the upstream "tv"
// value on the wire so documents written by older ingests stay readable.
const (
	ContentTypeSeries = "tv"
	ContentTypeMovie  = "movie"
)

// ProviderOffer is one streaming offer for a provider+type combination in a
// single country. Count is the number of seasons carrying the offer (always 1
// for movies).
type ProviderOffer struct {
	Count      int    `bson:"count" json:"count"`
	ProviderID string `bson:"provider_id" json:"provider_id"`
	Type       string `bson:"type" json:"type"`
}

// ProviderData maps country code -> provider key -> offer.
type ProviderData map[string]map[string]ProviderOffer

// ProviderKey builds the composite key distinguishing offers for the same
// platform, e.g. "Netflix_flatrate".
func ProviderKey(name, offerType string) string {
	return fmt.Sprintf("%s_%s", name, offerType)
}

// CatalogItem is one TV series or movie document, keyed by the upstream
// catalog id (stored as both _id and id).
type CatalogItem struct {
	ID               string       `bson:"_id" json:"-"`
	ExternalID       string       `bson:"id" json:"id"`
	ContentType      string       `bson:"content_type" json:"content_type"`
	Title            string       `bson:"title" json:"title"`
	OriginalTitle    string       `bson:"original_title,omitempty" json:"original_title,omitempty"`
	Genres           []string     `bson:"genres,omitempty" json:"genres,omitempty"`
	Actors           []string     `bson:"actors,omitempty" json:"actors,omitempty"`
	EpisodeRunTime   int          `bson:"episode_run_time,omitempty" json:"episode_run_time,omitempty"`
	Runtime          int          `bson:"runtime,omitempty" json:"runtime,omitempty"`
	NumberOfEpisodes int          `bson:"number_of_episodes,omitempty" json:"number_of_episodes,omitempty"`
	NumberOfSeasons  int          `bson:"number_of_seasons,omitempty" json:"number_of_seasons,omitempty"`
	Popularity       float64      `bson:"popularity,omitempty" json:"popularity,omitempty"`
	VoteAverage      float64      `bson:"vote_average,omitempty" json:"vote_average,omitempty"`
	VoteCount        int          `bson:"vote_count,omitempty" json:"vote_count,omitempty"`
	Plot             string       `bson:"plot,omitempty" json:"plot,omitempty"`
	PosterPath       string       `bson:"poster_path,omitempty" json:"poster_path,omitempty"`
	BackdropPath     string       `bson:"backdrop_path,omitempty" json:"backdrop_path,omitempty"`
	Year             string       `bson:"year,omitempty" json:"year,omitempty"`
	ReleaseDate      string       `bson:"release_date,omitempty" json:"release_date,omitempty"`
	ReleaseYear      int          `bson:"release_year,omitempty" json:"release_year,omitempty"`
	ProviderData     ProviderData `bson:"provider_data,omitempty" json:"provider_data,omitempty"`

	EnrichmentStatus    string `bson:"enrichment_status" json:"enrichment_status"`
	EnrichmentUpdatedAt int64  `bson:"enrichment_updated_at,omitempty" json:"enrichment_updated_at,omitempty"`
	ProviderStatus      string `bson:"provider_status" json:"provider_status"`
	ProviderUpdatedAt   int64  `bson:"provider_updated_at,omitempty" json:"provider_updated_at,omitempty"`
	DiscoveryDate       int64  `bson:"discovery_date,omitempty" json:"discovery_date,omitempty"`
}

// ItemRef is the minimal projection the staleness queries return; it carries
// just enough to drive a refresh fetch for the item.
type ItemRef struct {
	ExternalID      string `bson:"id"`
	Title           string `bson:"title,omitempty"`
	ContentType     string `bson:"content_type,omitempty"`
	NumberOfSeasons int    `bson:"number_of_seasons,omitempty"`
	ReleaseYear     int    `bson:"release_year,omitempty"`
}
