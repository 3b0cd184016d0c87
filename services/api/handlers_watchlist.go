// handlers_watchlist.go — per-user watchlist CRUD.
//
// Duplicate adds are handled by the UNIQUE(user_id, title_id, media_type)
// constraint: INSERT ... ON CONFLICT DO NOTHING, zero rows means the title
// is already tracked. No app-level locking.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/James-Kabz/movie-rated/internal/auth"
	"github.com/James-Kabz/movie-rated/internal/metrics"
	"github.com/James-Kabz/movie-rated/services/metadata"
)

// watchlistItem is the wire shape of one tracked title.
type watchlistItem struct {
	ID        string     `json:"id"`
	TitleID   int64      `json:"titleId"`
	MediaType string     `json:"mediaType"`
	Title     string     `json:"title"`
	PosterURL string     `json:"posterUrl"`
	Year      string     `json:"year"`
	Rating    float64    `json:"rating"`
	Genre     string     `json:"genre"`
	Watched   bool       `json:"watched"`
	WatchedAt *time.Time `json:"watchedAt,omitempty"`
	AddedAt   time.Time  `json:"addedAt"`
}

// titleMeta is the cached TMDB metadata stored alongside a tracked title.
type titleMeta struct {
	Title     string
	PosterURL string
	Year      string
	Rating    float64
	Genre     string
}

func validMediaType(mt string) bool {
	return mt == "movie" || mt == "tv"
}

// fetchTitleMeta pulls display metadata for a title from TMDB.
func (s *Server) fetchTitleMeta(ctx context.Context, titleID int64, mediaType string) (*titleMeta, error) {
	switch mediaType {
	case "movie":
		m, err := s.tmdb.GetMovieDetails(ctx, int(titleID))
		if err != nil {
			metrics.TMDBErrors.WithLabelValues("movie_details").Inc()
			return nil, err
		}
		meta := &titleMeta{
			Title:     m.Title,
			PosterURL: metadata.ImageURL(m.PosterPath, "w500"),
			Year:      yearOf(m.ReleaseDate),
			Rating:    m.VoteAverage,
		}
		if len(m.Genres) > 0 {
			meta.Genre = m.Genres[0].Name
		}
		return meta, nil
	case "tv":
		sh, err := s.tmdb.GetShowDetails(ctx, int(titleID))
		if err != nil {
			metrics.TMDBErrors.WithLabelValues("tv_details").Inc()
			return nil, err
		}
		meta := &titleMeta{
			Title:     sh.Name,
			PosterURL: metadata.ImageURL(sh.PosterPath, "w500"),
			Year:      yearOf(sh.FirstAirDate),
			Rating:    sh.VoteAverage,
		}
		if len(sh.Genres) > 0 {
			meta.Genre = sh.Genres[0].Name
		}
		return meta, nil
	default:
		return nil, fmt.Errorf("unsupported media type %q", mediaType)
	}
}

// yearOf extracts "2024" from a TMDB "2024-05-17" date.
func yearOf(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}

// ── GET /watchlist ────────────────────────────────────────────────────────────

func (s *Server) handleWatchlistGet(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT id, title_id, media_type, title, poster_url, year, rating, genre,
		       watched, watched_at, added_at
		FROM watchlist_items
		WHERE user_id = $1
		ORDER BY added_at DESC
	`, id.UserID)
	if err != nil {
		s.serverError(w, "watchlist query", "could not load watchlist", err, "user", id.UserID)
		return
	}
	defer rows.Close()

	items := []watchlistItem{}
	for rows.Next() {
		var it watchlistItem
		var watchedAt sql.NullTime
		if err := rows.Scan(&it.ID, &it.TitleID, &it.MediaType, &it.Title, &it.PosterURL,
			&it.Year, &it.Rating, &it.Genre, &it.Watched, &watchedAt, &it.AddedAt); err != nil {
			s.serverError(w, "watchlist scan", "could not load watchlist", err)
			return
		}
		if watchedAt.Valid {
			it.WatchedAt = &watchedAt.Time
		}
		items = append(items, it)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// ── POST /watchlist ───────────────────────────────────────────────────────────

func (s *Server) handleWatchlistAdd(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())

	var req struct {
		TitleID   int64  `json:"titleId"`
		MediaType string `json:"mediaType"`
		SendEmail bool   `json:"sendEmail"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if !validMediaType(req.MediaType) {
		writeError(w, http.StatusBadRequest, "invalid_media_type", "mediaType must be movie or tv")
		return
	}

	meta, err := s.fetchTitleMeta(r.Context(), req.TitleID, req.MediaType)
	if err != nil {
		s.log.Warn("tmdb fetch for watchlist add", "err", err, "titleId", req.TitleID)
		writeError(w, http.StatusNotFound, "upstream_error", "could not fetch title details")
		return
	}

	var it watchlistItem
	err = s.db.QueryRowContext(r.Context(), `
		INSERT INTO watchlist_items (user_id, title_id, media_type, title, poster_url, year, rating, genre)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, title_id, media_type) DO NOTHING
		RETURNING id, added_at
	`, id.UserID, req.TitleID, req.MediaType, meta.Title, meta.PosterURL, meta.Year, meta.Rating, meta.Genre).
		Scan(&it.ID, &it.AddedAt)
	if err == sql.ErrNoRows {
		// Constraint fired: the title is already on this user's list.
		writeError(w, http.StatusBadRequest, "already_tracked", "title is already on the watchlist")
		return
	}
	if err != nil {
		s.serverError(w, "watchlist insert", "could not add to watchlist", err, "user", id.UserID)
		return
	}

	it.TitleID = req.TitleID
	it.MediaType = req.MediaType
	it.Title = meta.Title
	it.PosterURL = meta.PosterURL
	it.Year = meta.Year
	it.Rating = meta.Rating
	it.Genre = meta.Genre

	metrics.WatchlistEvents.WithLabelValues("add").Inc()

	// Fire-and-forget: a failed email never fails the add.
	if req.SendEmail && s.mail != nil && id.Email != "" && id.Name != "" {
		go func(toEmail, toName, title, poster string) {
			if err := s.mail.SendWatchlistEmail(toEmail, toName, title, poster); err != nil {
				s.log.Warn("watchlist email", "err", err, "to", toEmail)
			}
		}(id.Email, id.Name, meta.Title, meta.PosterURL)
	}

	writeJSON(w, http.StatusCreated, it)
}

// ── PUT /watchlist/{id} ───────────────────────────────────────────────────────

func (s *Server) handleWatchlistUpdate(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	itemID := pathSegment(r.URL.Path, 1)
	if _, err := uuid.Parse(itemID); err != nil {
		// Garbage never reaches the uuid column.
		writeError(w, http.StatusNotFound, "not_found", "watchlist item not found")
		return
	}

	var req struct {
		Watched bool `json:"watched"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	// Ownership is enforced in the WHERE clause: a foreign id scans zero rows.
	var it watchlistItem
	var watchedAt sql.NullTime
	err := s.db.QueryRowContext(r.Context(), `
		UPDATE watchlist_items
		SET watched = $1,
		    watched_at = CASE WHEN $1 THEN now() ELSE NULL END
		WHERE id = $2 AND user_id = $3
		RETURNING id, title_id, media_type, title, poster_url, year, rating, genre,
		          watched, watched_at, added_at
	`, req.Watched, itemID, id.UserID).
		Scan(&it.ID, &it.TitleID, &it.MediaType, &it.Title, &it.PosterURL,
			&it.Year, &it.Rating, &it.Genre, &it.Watched, &watchedAt, &it.AddedAt)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "not_found", "watchlist item not found")
		return
	}
	if err != nil {
		s.serverError(w, "watchlist update", "could not update item", err, "item", itemID)
		return
	}
	if watchedAt.Valid {
		it.WatchedAt = &watchedAt.Time
	}

	metrics.WatchlistEvents.WithLabelValues("toggle").Inc()

	// Marking watched also records a view, from the item's cached metadata.
	// Best-effort: a history failure never fails the toggle.
	if req.Watched {
		if err := s.upsertRecentlyViewed(r.Context(), id.UserID, it.TitleID, it.MediaType, &titleMeta{
			Title:     it.Title,
			PosterURL: it.PosterURL,
			Year:      it.Year,
			Rating:    it.Rating,
			Genre:     it.Genre,
		}); err != nil {
			s.log.Warn("recently viewed upsert from toggle", "err", err, "item", itemID)
		}
	}

	writeJSON(w, http.StatusOK, it)
}

// ── DELETE /watchlist/{id} ────────────────────────────────────────────────────

func (s *Server) handleWatchlistRemove(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	itemID := pathSegment(r.URL.Path, 1)
	if _, err := uuid.Parse(itemID); err != nil {
		writeError(w, http.StatusNotFound, "not_found", "watchlist item not found")
		return
	}

	res, err := s.db.ExecContext(r.Context(), `
		DELETE FROM watchlist_items WHERE id = $1 AND user_id = $2
	`, itemID, id.UserID)
	if err != nil {
		s.serverError(w, "watchlist delete", "could not remove item", err, "item", itemID)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "not_found", "watchlist item not found")
		return
	}

	metrics.WatchlistEvents.WithLabelValues("remove").Inc()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ── DELETE /watchlist ─────────────────────────────────────────────────────────

func (s *Server) handleWatchlistClear(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())

	res, err := s.db.ExecContext(r.Context(), `
		DELETE FROM watchlist_items WHERE user_id = $1
	`, id.UserID)
	if err != nil {
		s.serverError(w, "watchlist clear", "could not clear watchlist", err, "user", id.UserID)
		return
	}
	n, _ := res.RowsAffected()

	metrics.WatchlistEvents.WithLabelValues("clear").Inc()
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
