package tmdb

// DiscoverPage is one page of discovery results. TV entries populate
// Name/OriginalName/FirstAirDate, movie entries Title/OriginalTitle/ReleaseDate.
type DiscoverPage struct {
	Page       int            `json:"page"`
	Results    []DiscoverItem `json:"results"`
	TotalPages int            `json:"total_pages"`
}

type DiscoverItem struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	OriginalName  string `json:"original_name"`
	Title         string `json:"title"`
	OriginalTitle string `json:"original_title"`
	FirstAirDate  string `json:"first_air_date"`
	ReleaseDate   string `json:"release_date"`
}

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CastMember struct {
	Name string `json:"name"`
}

type Credits struct {
	Cast []CastMember `json:"cast"`
}

// SeriesDetails is the /tv/{id} response with credits appended.
type SeriesDetails struct {
	BackdropPath     string  `json:"backdrop_path"`
	EpisodeRunTime   []int   `json:"episode_run_time"`
	Genres           []Genre `json:"genres"`
	NumberOfEpisodes int     `json:"number_of_episodes"`
	NumberOfSeasons  int     `json:"number_of_seasons"`
	Popularity       float64 `json:"popularity"`
	PosterPath       string  `json:"poster_path"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Overview         string  `json:"overview"`
	FirstAirDate     string  `json:"first_air_date"`
	Credits          Credits `json:"credits"`
}

// MovieDetails is the /movie/{id} response with credits appended.
type MovieDetails struct {
	BackdropPath string  `json:"backdrop_path"`
	Runtime      int     `json:"runtime"`
	Genres       []Genre `json:"genres"`
	Popularity   float64 `json:"popularity"`
	PosterPath   string  `json:"poster_path"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	Credits      Credits `json:"credits"`
}

type Provider struct {
	ProviderID   int64  `json:"provider_id"`
	ProviderName string `json:"provider_name"`
}

// CountryProviders lists offers by type for one country.
type CountryProviders struct {
	Flatrate []Provider `json:"flatrate"`
	Rent     []Provider `json:"rent"`
	Buy      []Provider `json:"buy"`
}

// ProvidersResult maps country code to offers. A missing title or season
// decodes to an empty Results map, the well-formed empty sentinel.
type ProvidersResult struct {
	Results map[string]CountryProviders `json:"results"`
}

type Region struct {
	ISO31661 string `json:"iso_3166_1"`
}

type RegionsResult struct {
	Results []Region `json:"results"`
}
