// handlers_recently_viewed.go — per-user view history.
//
// One row per (user, title): repeat views bump viewed_at through
// INSERT ... ON CONFLICT DO UPDATE. The list endpoint returns the 20 most
// recent entries.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/James-Kabz/movie-rated/internal/auth"
)

// viewedItem is the wire shape of one history entry.
type viewedItem struct {
	ID        string    `json:"id"`
	TitleID   int64     `json:"titleId"`
	MediaType string    `json:"mediaType"`
	Title     string    `json:"title"`
	PosterURL string    `json:"posterUrl"`
	Year      string    `json:"year"`
	Rating    float64   `json:"rating"`
	Genre     string    `json:"genre"`
	ViewedAt  time.Time `json:"viewedAt"`
}

// upsertRecentlyViewed inserts or refreshes a history row. Shared with the
// watchlist toggle path.
func (s *Server) upsertRecentlyViewed(ctx context.Context, userID string, titleID int64, mediaType string, meta *titleMeta) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recently_viewed (user_id, title_id, media_type, title, poster_url, year, rating, genre)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, title_id, media_type) DO UPDATE SET viewed_at = now()
	`, userID, titleID, mediaType, meta.Title, meta.PosterURL, meta.Year, meta.Rating, meta.Genre)
	return err
}

// ── GET /recently-viewed ──────────────────────────────────────────────────────

func (s *Server) handleRecentlyViewedGet(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT id, title_id, media_type, title, poster_url, year, rating, genre, viewed_at
		FROM recently_viewed
		WHERE user_id = $1
		ORDER BY viewed_at DESC
		LIMIT 20
	`, id.UserID)
	if err != nil {
		s.serverError(w, "recently viewed query", "could not load history", err, "user", id.UserID)
		return
	}
	defer rows.Close()

	items := []viewedItem{}
	for rows.Next() {
		var it viewedItem
		if err := rows.Scan(&it.ID, &it.TitleID, &it.MediaType, &it.Title, &it.PosterURL,
			&it.Year, &it.Rating, &it.Genre, &it.ViewedAt); err != nil {
			s.serverError(w, "recently viewed scan", "could not load history", err)
			return
		}
		items = append(items, it)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// ── POST /recently-viewed ─────────────────────────────────────────────────────

func (s *Server) handleRecentlyViewedRecord(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())

	var req struct {
		TitleID       int64  `json:"titleId"`
		MediaType     string `json:"mediaType"`
		FromWatchlist bool   `json:"fromWatchlist"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if !validMediaType(req.MediaType) {
		writeError(w, http.StatusBadRequest, "invalid_media_type", "mediaType must be movie or tv")
		return
	}

	// Repeat view: just bump viewed_at, no TMDB call.
	res, err := s.db.ExecContext(r.Context(), `
		UPDATE recently_viewed SET viewed_at = now()
		WHERE user_id = $1 AND title_id = $2 AND media_type = $3
	`, id.UserID, req.TitleID, req.MediaType)
	if err != nil {
		s.serverError(w, "recently viewed bump", "could not record view", err, "user", id.UserID)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	meta := s.watchlistMeta(r.Context(), id.UserID, req.TitleID, req.MediaType, req.FromWatchlist)
	if meta == nil {
		var err error
		meta, err = s.fetchTitleMeta(r.Context(), req.TitleID, req.MediaType)
		if err != nil {
			s.log.Warn("tmdb fetch for view record", "err", err, "titleId", req.TitleID)
			writeError(w, http.StatusNotFound, "upstream_error", "could not fetch title details")
			return
		}
	}

	if err := s.upsertRecentlyViewed(r.Context(), id.UserID, req.TitleID, req.MediaType, meta); err != nil {
		s.serverError(w, "recently viewed insert", "could not record view", err, "user", id.UserID)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

// watchlistMeta reuses metadata already cached on the user's watchlist,
// skipping a TMDB round trip when the view came from there.
func (s *Server) watchlistMeta(ctx context.Context, userID string, titleID int64, mediaType string, fromWatchlist bool) *titleMeta {
	if !fromWatchlist {
		return nil
	}
	var meta titleMeta
	err := s.db.QueryRowContext(ctx, `
		SELECT title, poster_url, year, rating, genre
		FROM watchlist_items
		WHERE user_id = $1 AND title_id = $2 AND media_type = $3
	`, userID, titleID, mediaType).
		Scan(&meta.Title, &meta.PosterURL, &meta.Year, &meta.Rating, &meta.Genre)
	if err != nil {
		return nil
	}
	return &meta
}

// ── DELETE /recently-viewed ───────────────────────────────────────────────────

func (s *Server) handleRecentlyViewedClear(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())

	res, err := s.db.ExecContext(r.Context(), `
		DELETE FROM recently_viewed WHERE user_id = $1
	`, id.UserID)
	if err != nil {
		s.serverError(w, "recently viewed clear", "could not clear history", err, "user", id.UserID)
		return
	}
	n, _ := res.RowsAffected()
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
