// middleware.go — identity resolution and auth enforcement.
// Every protected endpoint accepts either the web session cookie or an
// Authorization: Bearer bridge token, resolved in that order. The resolution
// happens exactly once per request, here — handlers only read the identity
// from the request context.
package auth

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
)

// Identity is the authenticated caller as seen by the handlers.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Image  string `json:"image"`
}

// contextKey is an unexported type to avoid context key collisions.
type contextKey string

const identityKey contextKey = "auth_identity"

// ResolveIdentity inspects the request for a session cookie, then a Bearer
// bridge token. Returns nil when the request carries no valid credential.
func ResolveIdentity(r *http.Request, db *sql.DB) *Identity {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		if id, _, err := LookupSession(r.Context(), db, c.Value); err == nil {
			return id
		}
	}

	if tokenStr := extractBearerToken(r); tokenStr != "" {
		if claims, err := ValidateBridgeToken(tokenStr); err == nil {
			return &Identity{
				UserID: claims.UserID,
				Email:  claims.Email,
				Name:   claims.Name,
				Image:  claims.Image,
			}
		}
	}

	return nil
}

// RequireAuth is an HTTP middleware that resolves the caller's identity and
// injects it into the request context. On failure, responds with 401 JSON.
func RequireAuth(db *sql.DB, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := ResolveIdentity(r, db)
		if id == nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "Sign-in required")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// IdentityFromContext extracts the resolved identity from the request
// context. Returns nil if RequireAuth middleware was not applied.
func IdentityFromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey).(*Identity); ok {
		return id
	}
	return nil
}

/// extractBearerToken pulls the token from "Authorization: Bearer <token>".
// Returns empty string if header is missing or malformed.
func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
