// fixtures.go — Test data seed helpers.
package testutil

import (
	"database/sql"
	"fmt"
	"testing"
	"time"
)

// User represents a minimal test account.
type User struct {
	ID    string
	Email string
	Name  string
}

// SeedUser inserts a test user and returns it. The email is unique per call
// so tests can run concurrently against a shared database.
func SeedUser(t *testing.T, db *sql.DB) *User {
	t.Helper()
	u := &User{
		Email: fmt.Sprintf("test-%d@example.com", time.Now().UnixNano()),
		Name:  "Test User",
	}
	err := db.QueryRow(`
		INSERT INTO users (email, name, image)
		VALUES ($1, $2, '')
		RETURNING id
	`, u.Email, u.Name).Scan(&u.ID)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedWatchlistItem inserts a watchlist row for a user and returns its ID.
func SeedWatchlistItem(t *testing.T, db *sql.DB, userID string, titleID int64, mediaType, title string) string {
	t.Helper()
	var id string
	err := db.QueryRow(`
		INSERT INTO watchlist_items (user_id, title_id, media_type, title, poster_url)
		VALUES ($1, $2, $3, $4, 'https://image.tmdb.org/t/p/w500/test.jpg')
		RETURNING id
	`, userID, titleID, mediaType, title).Scan(&id)
	if err != nil {
		t.Fatalf("seed watchlist item: %v", err)
	}
	return id
}

// CleanupUser removes a test user; dependent rows cascade.
func CleanupUser(db *sql.DB, userID string) {
	_, _ = db.Exec(`DELETE FROM users WHERE id = $1`, userID)
}
