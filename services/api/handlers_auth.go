// handlers_auth.go — Google OAuth sign-in, DB-backed web sessions, and the
// mobile token bridge.
//
// Web flow:
//   GET  /auth/login    — generate state, redirect to Google
//   GET  /auth/callback — verify state, exchange code, upsert user, set cookie
//   GET  /auth/session  — current cookie session
//   POST /auth/logout   — delete session, clear cookie
//
// Mobile bridge:
//   POST /auth/bridge-token       — mint a 5-minute token off a live web session
//   POST /auth/provider-token     — exchange a Google ID token for a 7-day token
//   POST /auth/session-from-token — resolve a bridge token into a session payload
//   POST /auth/verify-token       — verify a token and confirm the account exists
package api

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/James-Kabz/movie-rated/internal/auth"
	"github.com/James-Kabz/movie-rated/internal/metrics"
)

// ── State token store (in-memory, 10-min TTL) ─────────────────────────────────
// In production this could be Redis. An in-process map with TTL is sufficient
// for a single-instance service.

var (
	stateMu     sync.Mutex
	stateTokens = make(map[string]time.Time) // state → expires_at
)

func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := hex.EncodeToString(b)
	expiry := time.Now().Add(10 * time.Minute)

	stateMu.Lock()
	stateTokens[state] = expiry
	// Prune expired states while we hold the lock
	for k, v := range stateTokens {
		if time.Now().After(v) {
			delete(stateTokens, k)
		}
	}
	stateMu.Unlock()
	return state, nil
}

func consumeOAuthState(state string) bool {
	stateMu.Lock()
	defer stateMu.Unlock()
	exp, ok := stateTokens[state]
	if !ok || time.Now().After(exp) {
		return false
	}
	delete(stateTokens, state)
	return true
}

// ── Web OAuth flow ────────────────────────────────────────────────────────────

// handleLogin generates a state token and redirects the browser to Google.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}
	if s.oauth == nil {
		writeError(w, http.StatusInternalServerError, "server_error", "OAuth is not configured")
		return
	}

	state, err := generateOAuthState()
	if err != nil {
		s.serverError(w, "generate oauth state", "could not start sign-in", err)
		return
	}
	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusFound)
}

// handleCallback completes the OAuth flow: state check, code exchange,
// ID token verification, user upsert, session cookie.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}
	if s.oauth == nil || s.verifier == nil {
		writeError(w, http.StatusInternalServerError, "server_error", "OAuth is not configured")
		return
	}

	if !consumeOAuthState(r.URL.Query().Get("state")) {
		writeError(w, http.StatusBadRequest, "invalid_state", "state token missing, expired, or reused")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing_code", "authorization code required")
		return
	}

	token, err := s.oauth.Exchange(r.Context(), code)
	if err != nil {
		s.log.Warn("oauth code exchange failed", "err", err)
		metrics.AuthEvents.WithLabelValues("web_login", "failure").Inc()
		writeError(w, http.StatusUnauthorized, "invalid_credential", "code exchange failed")
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		writeError(w, http.StatusUnauthorized, "invalid_credential", "provider response missing id_token")
		return
	}

	pu, err := s.verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		s.log.Warn("id token verification failed", "err", err)
		metrics.AuthEvents.WithLabelValues("web_login", "failure").Inc()
		writeError(w, http.StatusUnauthorized, "invalid_credential", "ID token verification failed")
		return
	}

	userID, err := s.upsertUser(r.Context(), pu.Email, pu.Name, pu.Picture)
	if err != nil {
		s.serverError(w, "upsert user", "could not create account", err, "email", pu.Email)
		return
	}

	raw, expires, err := auth.CreateSession(r.Context(), s.db, userID)
	if err != nil {
		s.serverError(w, "create session", "could not create session", err)
		return
	}
	auth.SetSessionCookie(w, raw, expires)

	metrics.AuthEvents.WithLabelValues("web_login", "success").Inc()
	http.Redirect(w, r, s.frontendURL, http.StatusFound)
}

// handleSession returns the current cookie session's user, or 401.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}

	id, expires := s.cookieIdentity(r)
	if id == nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Sign-in required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    id,
		"expires": expires.UTC().Format(time.RFC3339),
	})
}

// handleLogout deletes the session row and clears the cookie. Always 200 —
// logging out without a session is not an error.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}

	if c, err := r.Cookie(auth.SessionCookie); err == nil && c.Value != "" {
		if err := auth.DeleteSession(r.Context(), s.db, c.Value); err != nil {
			s.log.Warn("delete session", "err", err)
		}
	}
	auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ── Mobile token bridge ───────────────────────────────────────────────────────

// handleBridgeToken mints a short-lived bridge token for the mobile app.
// Only an active web session qualifies — a bearer token cannot mint another.
func (s *Server) handleBridgeToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}

	id, _ := s.cookieIdentity(r)
	if id == nil {
		metrics.AuthEvents.WithLabelValues("bridge_token", "failure").Inc()
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Sign-in required")
		return
	}

	token, err := auth.GenerateBridgeToken(*id, auth.BootstrapTokenTTL)
	if err != nil {
		s.serverError(w, "generate bridge token", "could not generate token", err)
		return
	}

	metrics.AuthEvents.WithLabelValues("bridge_token", "success").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleProviderToken exchanges a verified Google ID token for a 7-day
// bridge token. Creates the account on first use.
func (s *Server) handleProviderToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}
	var req struct {
		IDToken string `json:"idToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" {
		writeError(w, http.StatusBadRequest, "missing_token", "idToken required")
		return
	}

	// A malformed request stays a 400 even on a deployment without OAuth.
	if s.verifier == nil {
		writeError(w, http.StatusInternalServerError, "server_error", "OAuth is not configured")
		return
	}

	pu, err := s.verifier.Verify(r.Context(), req.IDToken)
	if err != nil {
		metrics.AuthEvents.WithLabelValues("provider_token", "failure").Inc()
		writeError(w, http.StatusUnauthorized, "invalid_credential", "ID token verification failed")
		return
	}

	userID, err := s.upsertUser(r.Context(), pu.Email, pu.Name, pu.Picture)
	if err != nil {
		s.serverError(w, "upsert user", "could not create account", err, "email", pu.Email)
		return
	}

	id := auth.Identity{UserID: userID, Email: pu.Email, Name: pu.Name, Image: pu.Picture}
	token, err := auth.GenerateBridgeToken(id, auth.ProviderTokenTTL)
	if err != nil {
		s.serverError(w, "generate provider token", "could not generate token", err)
		return
	}

	metrics.AuthEvents.WithLabelValues("provider_token", "success").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  id,
	})
}

// handleSessionFromToken resolves a bridge token into a session payload.
// GET is a liveness check kept for mobile clients that probe the endpoint.
func (s *Server) handleSessionFromToken(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Session token endpoint is active"})
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET or POST required")
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "missing_token", "token required")
		return
	}

	claims, err := auth.ValidateBridgeToken(req.Token)
	if err != nil {
		metrics.AuthEvents.WithLabelValues("session_from_token", "failure").Inc()
		writeError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
		return
	}

	metrics.AuthEvents.WithLabelValues("session_from_token", "success").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": auth.Identity{
			UserID: claims.UserID,
			Email:  claims.Email,
			Name:   claims.Name,
			Image:  claims.Image,
		},
		// The payload advertises a 24h window even though the token itself
		// may expire sooner. Kept for wire compatibility with existing clients.
		"expires": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	})
}

// handleVerifyToken verifies a bridge token and confirms the account row
// still exists.
func (s *Server) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "missing_token", "token required")
		return
	}

	claims, err := auth.ValidateBridgeToken(req.Token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
		return
	}

	var id auth.Identity
	err = s.db.QueryRowContext(r.Context(), `
		SELECT id, email, name, image FROM users WHERE id = $1
	`, claims.UserID).Scan(&id.UserID, &id.Email, &id.Name, &id.Image)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "user_not_found", "account no longer exists")
		return
	}
	if err != nil {
		s.serverError(w, "verify token user lookup", "lookup failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": id})
}

// ── Shared helpers ────────────────────────────────────────────────────────────

// cookieIdentity resolves the web session cookie, if any.
func (s *Server) cookieIdentity(r *http.Request) (*auth.Identity, time.Time) {
	c, err := r.Cookie(auth.SessionCookie)
	if err != nil || c.Value == "" {
		return nil, time.Time{}
	}
	id, expires, err := auth.LookupSession(r.Context(), s.db, c.Value)
	if err != nil {
		return nil, time.Time{}
	}
	return id, expires
}

// upsertUser creates the user on first sign-in and refreshes profile fields
// on later ones. Returns the user ID.
func (s *Server) upsertUser(ctx context.Context, email, name, image string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, name, image)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, image = EXCLUDED.image, updated_at = now()
		RETURNING id
	`, email, name, image).Scan(&id)
	return id, err
}
