// Package metadata provides the TMDB (The Movie Database) catalog client.
//
// The API key is the v4 read access token from
// https://www.themoviedb.org/settings/api, sent as a Bearer header.
//
// Rate limit: TMDB allows 50 requests/second on free tier.
// This implementation does not rate-limit — callers should not call in tight loops.
//
// Privacy: Movie/show IDs are public catalog data. No personal data is sent.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://api.themoviedb.org/3"
const imageBaseURL = "https://image.tmdb.org/t/p/"

// PlaceholderImage is returned by ImageURL for titles with no artwork.
const PlaceholderImage = "/placeholder-movie.jpg"

// Movie is a movie as it appears in TMDB list responses.
type Movie struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	GenreIDs         []int   `json:"genre_ids,omitempty"`
	Adult            bool    `json:"adult"`
	OriginalLanguage string  `json:"original_language"`
	Popularity       float64 `json:"popularity"`
}

// MovieDetails is the full movie record returned by /movie/{id}.
type MovieDetails struct {
	Movie
	Genres []Genre `json:"genres"`
	// Runtime is in minutes.
	Runtime             int                 `json:"runtime"`
	Budget              int64               `json:"budget"`
	Revenue             int64               `json:"revenue"`
	Status              string              `json:"status"`
	Tagline             string              `json:"tagline"`
	ProductionCompanies []ProductionCompany `json:"production_companies"`
}

// Show is a TV show as it appears in TMDB list responses.
type Show struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	Overview         string   `json:"overview"`
	PosterPath       string   `json:"poster_path"`
	BackdropPath     string   `json:"backdrop_path"`
	FirstAirDate     string   `json:"first_air_date"`
	VoteAverage      float64  `json:"vote_average"`
	VoteCount        int      `json:"vote_count"`
	GenreIDs         []int    `json:"genre_ids,omitempty"`
	OriginalLanguage string   `json:"original_language"`
	Popularity       float64  `json:"popularity"`
	OriginCountry    []string `json:"origin_country,omitempty"`
}

// ShowDetails is the full TV show record returned by /tv/{id}.
type ShowDetails struct {
	Show
	Genres           []Genre `json:"genres"`
	NumberOfSeasons  int     `json:"number_of_seasons"`
	NumberOfEpisodes int     `json:"number_of_episodes"`
	Status           string  `json:"status"`
	Tagline          string  `json:"tagline"`
}

// Person is a person as it appears in TMDB search results.
type Person struct {
	ID                 int             `json:"id"`
	Name               string          `json:"name"`
	ProfilePath        string          `json:"profile_path"`
	KnownForDepartment string          `json:"known_for_department"`
	Popularity         float64         `json:"popularity"`
	KnownFor           json.RawMessage `json:"known_for,omitempty"`
}

// PersonDetails is the full person record returned by /person/{id}.
type PersonDetails struct {
	Person
	Biography    string `json:"biography"`
	Birthday     string `json:"birthday"`
	Deathday     string `json:"deathday,omitempty"`
	PlaceOfBirth string `json:"place_of_birth"`
}

// Genre is a TMDB genre entry.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ProductionCompany is a TMDB production company entry.
type ProductionCompany struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	LogoPath string `json:"logo_path"`
}

// CastMember is one entry in a credits cast list.
type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

// CrewMember is one entry in a credits crew list.
type CrewMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Job         string `json:"job"`
	Department  string `json:"department"`
	ProfilePath string `json:"profile_path"`
}

// Credits is the cast and crew for a movie or show.
type Credits struct {
	ID   int          `json:"id"`
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// MultiResult is one entry from /search/multi. Field presence depends on
// MediaType ("movie", "tv", or "person").
type MultiResult struct {
	ID           int     `json:"id"`
	MediaType    string  `json:"media_type"`
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"`
	Overview     string  `json:"overview,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	ProfilePath  string  `json:"profile_path,omitempty"`
	BackdropPath string  `json:"backdrop_path,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	VoteAverage  float64 `json:"vote_average,omitempty"`
	Popularity   float64 `json:"popularity"`
}

// MoviePage is a paginated list of movies.
type MoviePage struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// ShowPage is a paginated list of TV shows.
type ShowPage struct {
	Page         int    `json:"page"`
	Results      []Show `json:"results"`
	TotalPages   int    `json:"total_pages"`
	TotalResults int    `json:"total_results"`
}

// PersonPage is a paginated list of people.
type PersonPage struct {
	Page         int      `json:"page"`
	Results      []Person `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// MultiPage is a paginated list of mixed search results.
type MultiPage struct {
	Page         int           `json:"page"`
	Results      []MultiResult `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

// Client is a minimal TMDB API client. Create with NewClient.
// BaseURL and HTTPClient are exported so tests can point the client
// at an httptest server.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a TMDB Client for the given v4 read access token.
// Returns an error if the key is empty.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("tmdb: api key is empty")
	}
	return &Client{
		APIKey:  apiKey,
		BaseURL: DefaultBaseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// ── Movie lists ───────────────────────────────────────────────────────────────

// PopularMovies fetches the popular movies list.
func (c *Client) PopularMovies(ctx context.Context, page int) (*MoviePage, error) {
	return c.moviePage(ctx, "/movie/popular", page)
}

// TopRatedMovies fetches the top rated movies list.
func (c *Client) TopRatedMovies(ctx context.Context, page int) (*MoviePage, error) {
	return c.moviePage(ctx, "/movie/top_rated", page)
}

// NowPlayingMovies fetches movies currently in theatres.
func (c *Client) NowPlayingMovies(ctx context.Context, page int) (*MoviePage, error) {
	return c.moviePage(ctx, "/movie/now_playing", page)
}

// UpcomingMovies fetches upcoming movie releases.
func (c *Client) UpcomingMovies(ctx context.Context, page int) (*MoviePage, error) {
	return c.moviePage(ctx, "/movie/upcoming", page)
}

func (c *Client) moviePage(ctx context.Context, path string, page int) (*MoviePage, error) {
	var result MoviePage
	if err := c.get(ctx, path+"?page="+strconv.Itoa(normalizePage(page)), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DiscoverMovies fetches movies filtered by genre, year, and sort order.
// Empty filter values are omitted from the query.
func (c *Client) DiscoverMovies(ctx context.Context, genre, year, sortBy string, page int) (*MoviePage, error) {
	q := url.Values{}
	if genre != "" {
		q.Set("with_genres", genre)
	}
	if year != "" {
		q.Set("year", year)
	}
	if sortBy != "" {
		q.Set("sort_by", sortBy)
	}
	q.Set("page", strconv.Itoa(normalizePage(page)))

	var result MoviePage
	if err := c.get(ctx, "/discover/movie?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Genres fetches the movie genre list.
func (c *Client) Genres(ctx context.Context) ([]Genre, error) {
	var result struct {
		Genres []Genre `json:"genres"`
	}
	if err := c.get(ctx, "/genre/movie/list", &result); err != nil {
		return nil, err
	}
	return result.Genres, nil
}

// ── TV lists ──────────────────────────────────────────────────────────────────

// PopularShows fetches the popular TV shows list.
func (c *Client) PopularShows(ctx context.Context, page int) (*ShowPage, error) {
	return c.showPage(ctx, "/tv/popular", page)
}

// TopRatedShows fetches the top rated TV shows list.
func (c *Client) TopRatedShows(ctx context.Context, page int) (*ShowPage, error) {
	return c.showPage(ctx, "/tv/top_rated", page)
}

func (c *Client) showPage(ctx context.Context, path string, page int) (*ShowPage, error) {
	var result ShowPage
	if err := c.get(ctx, path+"?page="+strconv.Itoa(normalizePage(page)), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ── Search ────────────────────────────────────────────────────────────────────

// SearchMovies searches movies by title.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*MoviePage, error) {
	var result MoviePage
	if err := c.get(ctx, "/search/movie?"+searchQuery(query, page), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchShows searches TV shows by name.
func (c *Client) SearchShows(ctx context.Context, query string, page int) (*ShowPage, error) {
	var result ShowPage
	if err := c.get(ctx, "/search/tv?"+searchQuery(query, page), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchPeople searches people by name.
func (c *Client) SearchPeople(ctx context.Context, query string, page int) (*PersonPage, error) {
	var result PersonPage
	if err := c.get(ctx, "/search/person?"+searchQuery(query, page), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchMulti searches movies, TV shows, and people in one call.
func (c *Client) SearchMulti(ctx context.Context, query string, page int) (*MultiPage, error) {
	var result MultiPage
	if err := c.get(ctx, "/search/multi?"+searchQuery(query, page), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func searchQuery(query string, page int) string {
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(normalizePage(page)))
	return q.Encode()
}

// ── Details ───────────────────────────────────────────────────────────────────

// GetMovieDetails fetches the full movie record by TMDB movie ID.
func (c *Client) GetMovieDetails(ctx context.Context, id int) (*MovieDetails, error) {
	var movie MovieDetails
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", id), &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// GetMovieCredits fetches cast and crew for a movie.
func (c *Client) GetMovieCredits(ctx context.Context, id int) (*Credits, error) {
	var credits Credits
	if err := c.get(ctx, fmt.Sprintf("/movie/%d/credits", id), &credits); err != nil {
		return nil, err
	}
	return &credits, nil
}

// GetMovieRecommendations fetches titles recommended alongside a movie.
func (c *Client) GetMovieRecommendations(ctx context.Context, id, page int) (*MoviePage, error) {
	return c.moviePage(ctx, fmt.Sprintf("/movie/%d/recommendations", id), page)
}

// GetShowDetails fetches the full TV show record by TMDB show ID.
func (c *Client) GetShowDetails(ctx context.Context, id int) (*ShowDetails, error) {
	var show ShowDetails
	if err := c.get(ctx, fmt.Sprintf("/tv/%d", id), &show); err != nil {
		return nil, err
	}
	return &show, nil
}

// GetShowCredits fetches cast and crew for a TV show.
func (c *Client) GetShowCredits(ctx context.Context, id int) (*Credits, error) {
	var credits Credits
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/credits", id), &credits); err != nil {
		return nil, err
	}
	return &credits, nil
}

// GetShowRecommendations fetches titles recommended alongside a TV show.
func (c *Client) GetShowRecommendations(ctx context.Context, id, page int) (*ShowPage, error) {
	return c.showPage(ctx, fmt.Sprintf("/tv/%d/recommendations", id), page)
}

// GetPersonDetails fetches the full person record by TMDB person ID.
func (c *Client) GetPersonDetails(ctx context.Context, id int) (*PersonDetails, error) {
	var person PersonDetails
	if err := c.get(ctx, fmt.Sprintf("/person/%d", id), &person); err != nil {
		return nil, err
	}
	return &person, nil
}

// GetPersonMovieCredits fetches a person's movie filmography.
func (c *Client) GetPersonMovieCredits(ctx context.Context, id int) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, fmt.Sprintf("/person/%d/movie_credits", id), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// GetPersonTVCredits fetches a person's TV filmography.
func (c *Client) GetPersonTVCredits(ctx context.Context, id int) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, fmt.Sprintf("/person/%d/tv_credits", id), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// ImageURL returns the full artwork URL for a TMDB image path at the given
// size ("w500", "original", ...). Returns a local placeholder when path is empty.
func ImageURL(path, size string) string {
	if path == "" {
		return PlaceholderImage
	}
	if size == "" {
		size = "w500"
	}
	return imageBaseURL + size + path
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// get performs a GET request to the TMDB API and decodes the JSON response.
// The API key is sent as a Bearer token (TMDB v4 auth).
func (c *Client) get(ctx context.Context, path string, dst interface{}) error {
	reqURL := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("tmdb: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("tmdb: invalid API key — check TMDB_API_KEY")
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("tmdb: rate limited — slow down requests")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb: HTTP %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("tmdb: decode response: %w", err)
	}
	return nil
}
