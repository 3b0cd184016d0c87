// session.go — DB-backed web sessions set by the OAuth callback.
// The cookie carries a random token; the sessions table stores its hash.
package auth

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"
)

// SessionCookie is the name of the web session cookie.
const SessionCookie = "movierated_session"

// SessionTTL is how long a web session lives. Sessions are not refreshed —
// after 30 days the user signs in again.
const SessionTTL = 30 * 24 * time.Hour

// CreateSession inserts a session row for the user and returns the raw token
// to be set as a cookie.
func CreateSession(ctx context.Context, db *sql.DB, userID string) (string, time.Time, error) {
	raw, hash, err := GenerateSessionToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expires := time.Now().Add(SessionTTL)
	_, err = db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, userID, hash, expires)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create session: %w", err)
	}
	return raw, expires, nil
}

// LookupSession resolves a raw session token to the owning user's identity.
// Returns sql.ErrNoRows when the session is absent or expired.
func LookupSession(ctx context.Context, db *sql.DB, rawToken string) (*Identity, time.Time, error) {
	var id Identity
	var expires time.Time
	err := db.QueryRowContext(ctx, `
		SELECT u.id, u.email, COALESCE(u.name, ''), COALESCE(u.image, ''), s.expires_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1
		  AND s.expires_at > now()
	`, HashToken(rawToken)).Scan(&id.UserID, &id.Email, &id.Name, &id.Image, &expires)
	if err != nil {
		return nil, time.Time{}, err
	}
	return &id, expires, nil
}

// DeleteSession removes the session row for a raw token. Deleting a token
// that no longer exists is not an error.
func DeleteSession(ctx context.Context, db *sql.DB, rawToken string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM sessions WHERE token_hash = $1`, HashToken(rawToken))
	return err
}

// SetSessionCookie writes the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, raw string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    raw,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie on the response.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
