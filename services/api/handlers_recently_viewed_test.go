package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/James-Kabz/movie-rated/internal/testutil"
)

func TestRecentlyViewedRecordAndList(t *testing.T) {
	db := testutil.MustOpenDB(t)
	defer db.Close()
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	u := testutil.SeedUser(t, db)
	defer testutil.CleanupUser(db, u.ID)
	token := bearerFor(t, u)

	tmdb := newFakeTMDB(t, map[string]string{"/movie/550": movieDetailsJSON})
	s := newTestServer(db, tmdb.client())
	h := s.Handler()

	// First view fetches metadata from TMDB
	rr := testutil.PostJSONWithAuth(t, h, "/recently-viewed", map[string]interface{}{
		"titleId":   550,
		"mediaType": "movie",
	}, token)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	if tmdb.hitCount() != 1 {
		t.Errorf("tmdb hits = %d, want 1", tmdb.hitCount())
	}

	var firstViewedAt time.Time
	if err := db.QueryRow(`
		SELECT viewed_at FROM recently_viewed WHERE user_id = $1 AND title_id = 550
	`, u.ID).Scan(&firstViewedAt); err != nil {
		t.Fatalf("read viewed_at: %v", err)
	}

	// Repeat view only bumps viewed_at — no TMDB call, no second row
	time.Sleep(10 * time.Millisecond)
	rr = testutil.PostJSONWithAuth(t, h, "/recently-viewed", map[string]interface{}{
		"titleId":   550,
		"mediaType": "movie",
	}, token)
	testutil.AssertStatus(t, rr, http.StatusOK)
	if tmdb.hitCount() != 1 {
		t.Errorf("tmdb hits after repeat view = %d, want 1", tmdb.hitCount())
	}

	var rowCount int
	var secondViewedAt time.Time
	if err := db.QueryRow(`
		SELECT COUNT(*), MAX(viewed_at) FROM recently_viewed WHERE user_id = $1 AND title_id = 550
	`, u.ID).Scan(&rowCount, &secondViewedAt); err != nil {
		t.Fatalf("recheck row: %v", err)
	}
	if rowCount != 1 {
		t.Errorf("rows = %d, want 1", rowCount)
	}
	if !secondViewedAt.After(firstViewedAt) {
		t.Error("repeat view should bump viewed_at")
	}

	// List
	rr = testutil.GetJSONWithAuth(t, h, "/recently-viewed", token)
	testutil.AssertStatus(t, rr, http.StatusOK)
	var list struct {
		Items []viewedItem `json:"items"`
	}
	testutil.DecodeJSON(t, rr, &list)
	if len(list.Items) != 1 || list.Items[0].Title != "Fight Club" {
		t.Errorf("unexpected list: %+v", list.Items)
	}
}

func TestRecentlyViewedFromWatchlistSkipsTMDB(t *testing.T) {
	db := testutil.MustOpenDB(t)
	defer db.Close()
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	u := testutil.SeedUser(t, db)
	defer testutil.CleanupUser(db, u.ID)

	testutil.SeedWatchlistItem(t, db, u.ID, 550, "movie", "Fight Club")

	tmdb := newFakeTMDB(t, nil)
	s := newTestServer(db, tmdb.client())

	rr := testutil.PostJSONWithAuth(t, s.Handler(), "/recently-viewed", map[string]interface{}{
		"titleId":       550,
		"mediaType":     "movie",
		"fromWatchlist": true,
	}, bearerFor(t, u))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	if tmdb.hitCount() != 0 {
		t.Error("watchlist-sourced view should reuse cached metadata")
	}

	var title string
	if err := db.QueryRow(`
		SELECT title FROM recently_viewed WHERE user_id = $1 AND title_id = 550
	`, u.ID).Scan(&title); err != nil {
		t.Fatalf("read view row: %v", err)
	}
	if title != "Fight Club" {
		t.Errorf("title = %q, want Fight Club", title)
	}
}

func TestRecentlyViewedInvalidMediaType(t *testing.T) {
	db := testutil.MustOpenDB(t)
	defer db.Close()
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	u := testutil.SeedUser(t, db)
	defer testutil.CleanupUser(db, u.ID)

	s := newTestServer(db, newFakeTMDB(t, nil).client())
	rr := testutil.PostJSONWithAuth(t, s.Handler(), "/recently-viewed", map[string]interface{}{
		"titleId":   550,
		"mediaType": "podcast",
	}, bearerFor(t, u))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestRecentlyViewedClear(t *testing.T) {
	db := testutil.MustOpenDB(t)
	defer db.Close()
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	u := testutil.SeedUser(t, db)
	defer testutil.CleanupUser(db, u.ID)
	token := bearerFor(t, u)

	tmdb := newFakeTMDB(t, map[string]string{"/movie/550": movieDetailsJSON})
	s := newTestServer(db, tmdb.client())
	h := s.Handler()

	rr := testutil.PostJSONWithAuth(t, h, "/recently-viewed", map[string]interface{}{
		"titleId":   550,
		"mediaType": "movie",
	}, token)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = testutil.DeleteWithAuth(t, h, "/recently-viewed", token)
	testutil.AssertStatus(t, rr, http.StatusOK)
	var resp map[string]int64
	testutil.DecodeJSON(t, rr, &resp)
	if resp["deleted"] != 1 {
		t.Errorf("deleted = %d, want 1", resp["deleted"])
	}
}
