// handlers_catalog.go — public TMDB catalog proxy.
//
//	GET /catalog?q=&category=&type=&page=  — search or category browse
//	GET /catalog/{titleId}?type=           — detail + credits + recommendations
//	GET /catalog/person/{personId}         — person detail + combined credits
//	GET /search/suggestions?q=             — typeahead, top 8 multi-search hits
//
// Responses pass TMDB's JSON through largely verbatim. No caching or
// retries here — upstream failures surface as upstream_error.
package api

import (
	"net/http"
	"strconv"

	"github.com/James-Kabz/movie-rated/internal/metrics"
	"github.com/James-Kabz/movie-rated/services/metadata"
)

// ── GET /catalog ──────────────────────────────────────────────────────────────

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}

	q := r.URL.Query()
	query := q.Get("q")
	mediaType := q.Get("type")
	if mediaType == "" {
		mediaType = "movie"
	}
	if !validMediaType(mediaType) {
		writeError(w, http.StatusBadRequest, "invalid_media_type", "type must be movie or tv")
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))

	var result interface{}
	var err error

	if query != "" {
		if mediaType == "movie" {
			result, err = s.tmdb.SearchMovies(r.Context(), query, page)
		} else {
			result, err = s.tmdb.SearchShows(r.Context(), query, page)
		}
	} else {
		category := q.Get("category")
		if category == "" {
			category = "popular"
		}
		result, err = s.catalogList(r, mediaType, category, page)
		if result == nil && err == nil {
			writeError(w, http.StatusBadRequest, "invalid_category", "unknown category "+category)
			return
		}
	}

	if err != nil {
		s.log.Warn("catalog upstream", "err", err)
		metrics.TMDBErrors.WithLabelValues("catalog_list").Inc()
		writeError(w, http.StatusBadGateway, "upstream_error", "catalog fetch failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// catalogList maps a category name to a TMDB list call. Returns (nil, nil)
// for an unknown category.
func (s *Server) catalogList(r *http.Request, mediaType, category string, page int) (interface{}, error) {
	ctx := r.Context()
	if mediaType == "tv" {
		switch category {
		case "popular":
			return s.tmdb.PopularShows(ctx, page)
		case "top_rated":
			return s.tmdb.TopRatedShows(ctx, page)
		default:
			return nil, nil
		}
	}
	switch category {
	case "popular":
		return s.tmdb.PopularMovies(ctx, page)
	case "top_rated":
		return s.tmdb.TopRatedMovies(ctx, page)
	case "now_playing":
		return s.tmdb.NowPlayingMovies(ctx, page)
	case "upcoming":
		return s.tmdb.UpcomingMovies(ctx, page)
	default:
		return nil, nil
	}
}

// ── GET /catalog/{titleId} and /catalog/person/{personId} ─────────────────────

func (s *Server) handleCatalogItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}

	if pathSegment(r.URL.Path, 1) == "person" {
		s.handlePerson(w, r)
		return
	}

	titleID, err := strconv.Atoi(pathSegment(r.URL.Path, 1))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "title id must be numeric")
		return
	}
	mediaType := r.URL.Query().Get("type")
	if mediaType == "" {
		mediaType = "movie"
	}
	if !validMediaType(mediaType) {
		writeError(w, http.StatusBadRequest, "invalid_media_type", "type must be movie or tv")
		return
	}

	ctx := r.Context()
	if mediaType == "tv" {
		details, err := s.tmdb.GetShowDetails(ctx, titleID)
		if err != nil {
			s.catalogItemError(w, err)
			return
		}
		credits, err := s.tmdb.GetShowCredits(ctx, titleID)
		if err != nil {
			s.catalogItemError(w, err)
			return
		}
		recs, err := s.tmdb.GetShowRecommendations(ctx, titleID, 1)
		if err != nil {
			s.catalogItemError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"details":         details,
			"credits":         credits,
			"recommendations": recs,
		})
		return
	}

	details, err := s.tmdb.GetMovieDetails(ctx, titleID)
	if err != nil {
		s.catalogItemError(w, err)
		return
	}
	credits, err := s.tmdb.GetMovieCredits(ctx, titleID)
	if err != nil {
		s.catalogItemError(w, err)
		return
	}
	recs, err := s.tmdb.GetMovieRecommendations(ctx, titleID, 1)
	if err != nil {
		s.catalogItemError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"details":         details,
		"credits":         credits,
		"recommendations": recs,
	})
}

func (s *Server) catalogItemError(w http.ResponseWriter, err error) {
	s.log.Warn("catalog item upstream", "err", err)
	metrics.TMDBErrors.WithLabelValues("catalog_item").Inc()
	writeError(w, http.StatusNotFound, "upstream_error", "could not fetch title details")
}

// handlePerson serves /catalog/person/{personId}: detail plus movie and TV
// filmographies in one response.
func (s *Server) handlePerson(w http.ResponseWriter, r *http.Request) {
	personID, err := strconv.Atoi(pathSegment(r.URL.Path, 2))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "person id must be numeric")
		return
	}

	ctx := r.Context()
	person, err := s.tmdb.GetPersonDetails(ctx, personID)
	if err != nil {
		s.log.Warn("person upstream", "err", err)
		metrics.TMDBErrors.WithLabelValues("person").Inc()
		writeError(w, http.StatusNotFound, "upstream_error", "could not fetch person details")
		return
	}
	movieCredits, err := s.tmdb.GetPersonMovieCredits(ctx, personID)
	if err != nil {
		s.log.Warn("person movie credits upstream", "err", err)
		metrics.TMDBErrors.WithLabelValues("person").Inc()
		writeError(w, http.StatusNotFound, "upstream_error", "could not fetch person credits")
		return
	}
	tvCredits, err := s.tmdb.GetPersonTVCredits(ctx, personID)
	if err != nil {
		s.log.Warn("person tv credits upstream", "err", err)
		metrics.TMDBErrors.WithLabelValues("person").Inc()
		writeError(w, http.StatusNotFound, "upstream_error", "could not fetch person credits")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"person":       person,
		"movieCredits": movieCredits,
		"tvCredits":    tvCredits,
	})
}

// ── GET /search/suggestions ───────────────────────────────────────────────────

// suggestion is one typeahead entry, trimmed to what the UI renders.
type suggestion struct {
	ID        int    `json:"id"`
	MediaType string `json:"mediaType"`
	Label     string `json:"label"`
	Poster    string `json:"poster"`
}

func (s *Server) handleSearchSuggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": []suggestion{}})
		return
	}

	page, err := s.tmdb.SearchMulti(r.Context(), query, 1)
	if err != nil {
		s.log.Warn("suggestions upstream", "err", err)
		metrics.TMDBErrors.WithLabelValues("suggestions").Inc()
		writeError(w, http.StatusBadGateway, "upstream_error", "search failed")
		return
	}

	suggestions := []suggestion{}
	for _, res := range page.Results {
		if len(suggestions) == 8 {
			break
		}
		sug := suggestion{ID: res.ID, MediaType: res.MediaType}
		switch res.MediaType {
		case "movie":
			sug.Label = res.Title
			sug.Poster = metadata.ImageURL(res.PosterPath, "w92")
		case "tv":
			sug.Label = res.Name
			sug.Poster = metadata.ImageURL(res.PosterPath, "w92")
		case "person":
			sug.Label = res.Name
			sug.Poster = metadata.ImageURL(res.ProfilePath, "w92")
		default:
			continue
		}
		suggestions = append(suggestions, sug)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}
