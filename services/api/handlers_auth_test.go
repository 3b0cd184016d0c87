package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/James-Kabz/movie-rated/internal/auth"
	"github.com/James-Kabz/movie-rated/internal/testutil"
)

func TestSessionFromTokenLiveness(t *testing.T) {
	s := newTestServer(nil, nil)
	rr := testutil.GetJSON(t, s.Handler(), "/auth/session-from-token")
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp map[string]string
	testutil.DecodeJSON(t, rr, &resp)
	if resp["message"] == "" {
		t.Error("expected a liveness message")
	}
}

func TestSessionFromToken(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	s := newTestServer(nil, nil)
	h := s.Handler()

	token, err := auth.GenerateBridgeToken(auth.Identity{
		UserID: "user-1",
		Email:  "user@example.com",
		Name:   "User One",
	}, auth.BootstrapTokenTTL)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	rr := testutil.PostJSON(t, h, "/auth/session-from-token", map[string]string{"token": token})
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp struct {
		User    auth.Identity `json:"user"`
		Expires time.Time     `json:"expires"`
	}
	testutil.DecodeJSON(t, rr, &resp)
	if resp.User.UserID != "user-1" || resp.User.Email != "user@example.com" {
		t.Errorf("unexpected user: %+v", resp.User)
	}
	if until := time.Until(resp.Expires); until < 23*time.Hour || until > 25*time.Hour {
		t.Errorf("expires should be ~24h out, got %v", until)
	}
}

func TestSessionFromTokenRejections(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	s := newTestServer(nil, nil)
	h := s.Handler()

	// Missing token
	rr := testutil.PostJSON(t, h, "/auth/session-from-token", map[string]string{})
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	var errResp map[string]string
	testutil.DecodeJSON(t, rr, &errResp)
	if errResp["error"] != "missing_token" {
		t.Errorf("error = %q, want missing_token", errResp["error"])
	}

	// Garbage token
	rr = testutil.PostJSON(t, h, "/auth/session-from-token", map[string]string{"token": "garbage"})
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	testutil.DecodeJSON(t, rr, &errResp)
	if errResp["error"] != "invalid_token" || errResp["message"] != "Invalid or expired token" {
		t.Errorf("unexpected rejection: %+v", errResp)
	}

	// Expired token
	expired, err := auth.GenerateBridgeToken(auth.Identity{UserID: "user-1"}, -time.Minute)
	if err != nil {
		t.Fatalf("mint expired token: %v", err)
	}
	rr = testutil.PostJSON(t, h, "/auth/session-from-token", map[string]string{"token": expired})
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	testutil.DecodeJSON(t, rr, &errResp)
	if errResp["message"] != "Invalid or expired token" {
		t.Errorf("message = %q, want Invalid or expired token", errResp["message"])
	}
}

func TestVerifyToken(t *testing.T) {
	db := testutil.MustOpenDB(t)
	defer db.Close()
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	u := testutil.SeedUser(t, db)
	defer testutil.CleanupUser(db, u.ID)

	s := newTestServer(db, nil)
	h := s.Handler()

	rr := testutil.PostJSON(t, h, "/auth/verify-token", map[string]string{"token": bearerFor(t, u)})
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp struct {
		User auth.Identity `json:"user"`
	}
	testutil.DecodeJSON(t, rr, &resp)
	if resp.User.UserID != u.ID || resp.User.Email != u.Email {
		t.Errorf("unexpected user: %+v", resp.User)
	}
}

func TestVerifyTokenDeletedUser(t *testing.T) {
	db := testutil.MustOpenDB(t)
	defer db.Close()
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	u := testutil.SeedUser(t, db)
	token := bearerFor(t, u)
	testutil.CleanupUser(db, u.ID)

	s := newTestServer(db, nil)
	rr := testutil.PostJSON(t, s.Handler(), "/auth/verify-token", map[string]string{"token": token})
	testutil.AssertStatus(t, rr, http.StatusNotFound)

	var errResp map[string]string
	testutil.DecodeJSON(t, rr, &errResp)
	if errResp["error"] != "user_not_found" {
		t.Errorf("error = %q, want user_not_found", errResp["error"])
	}
}

func TestBridgeTokenRequiresWebSession(t *testing.T) {
	db := testutil.MustOpenDB(t)
	defer db.Close()
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	s := newTestServer(db, nil)
	rr := testutil.PostJSON(t, s.Handler(), "/auth/bridge-token", nil)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)

	var errResp map[string]string
	testutil.DecodeJSON(t, rr, &errResp)
	if errResp["error"] != "unauthenticated" {
		t.Errorf("error = %q, want unauthenticated", errResp["error"])
	}
}

func TestBridgeTokenFromCookieSession(t *testing.T) {
	db := testutil.MustOpenDB(t)
	defer db.Close()
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	u := testutil.SeedUser(t, db)
	defer testutil.CleanupUser(db, u.ID)

	raw, _, err := auth.CreateSession(t.Context(), db, u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	s := newTestServer(db, nil)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodPost, "/auth/bridge-token", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: raw})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp map[string]string
	testutil.DecodeJSON(t, rr, &resp)
	if resp["token"] == "" {
		t.Fatal("expected a bridge token")
	}

	// The minted token has the 5-minute bootstrap lifetime
	claims, err := auth.ValidateBridgeToken(resp["token"])
	if err != nil {
		t.Fatalf("validate minted token: %v", err)
	}
	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if lifetime != auth.BootstrapTokenTTL {
		t.Errorf("token lifetime = %v, want %v", lifetime, auth.BootstrapTokenTTL)
	}
	if claims.UserID != u.ID {
		t.Errorf("token userId = %q, want %q", claims.UserID, u.ID)
	}
}

func TestWebSessionLifecycle(t *testing.T) {
	db := testutil.MustOpenDB(t)
	defer db.Close()
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	u := testutil.SeedUser(t, db)
	defer testutil.CleanupUser(db, u.ID)

	raw, _, err := auth.CreateSession(t.Context(), db, u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	s := newTestServer(db, nil)
	h := s.Handler()

	// Session resolves
	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: raw})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var sess struct {
		User auth.Identity `json:"user"`
	}
	testutil.DecodeJSON(t, rr, &sess)
	if sess.User.UserID != u.ID {
		t.Errorf("session user = %q, want %q", sess.User.UserID, u.ID)
	}

	// Logout deletes the row and clears the cookie
	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: raw})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	// The session no longer resolves
	req = httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: raw})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestUpsertUserIdempotent(t *testing.T) {
	db := testutil.MustOpenDB(t)
	defer db.Close()

	s := newTestServer(db, nil)
	ctx := t.Context()

	id1, err := s.upsertUser(ctx, "upsert-test@example.com", "First Name", "img1")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	defer testutil.CleanupUser(db, id1)

	id2, err := s.upsertUser(ctx, "upsert-test@example.com", "New Name", "img2")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if id1 != id2 {
		t.Errorf("upsert created a second account: %q vs %q", id1, id2)
	}

	var name string
	if err := db.QueryRow(`SELECT name FROM users WHERE id = $1`, id1).Scan(&name); err != nil {
		t.Fatalf("read user: %v", err)
	}
	if name != "New Name" {
		t.Errorf("name = %q, want refreshed profile", name)
	}
}

// stubVerifier stands in for the Google verifier in handler tests.
type stubVerifier struct {
	user *auth.ProviderUser
	err  error
}

func (v *stubVerifier) Verify(ctx context.Context, rawIDToken string) (*auth.ProviderUser, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.user, nil
}

func newVerifierServer(db *sql.DB, v IDTokenVerifier) *Server {
	return NewServer(db, slog.New(slog.DiscardHandler), nil, v, nil, nil, "/")
}

func TestProviderTokenMissingIDToken(t *testing.T) {
	// Request validation comes before the configuration check, so the 400
	// holds even on a deployment without Google credentials.
	s := newTestServer(nil, nil)
	rr := testutil.PostJSON(t, s.Handler(), "/auth/provider-token", map[string]string{})
	testutil.AssertStatus(t, rr, http.StatusBadRequest)

	var errResp map[string]string
	testutil.DecodeJSON(t, rr, &errResp)
	if errResp["error"] != "missing_token" {
		t.Errorf("error = %q, want missing_token", errResp["error"])
	}
}

func TestProviderTokenUnconfigured(t *testing.T) {
	s := newTestServer(nil, nil)
	rr := testutil.PostJSON(t, s.Handler(), "/auth/provider-token", map[string]string{"idToken": "anything"})
	testutil.AssertStatus(t, rr, http.StatusInternalServerError)

	var errResp map[string]string
	testutil.DecodeJSON(t, rr, &errResp)
	if errResp["error"] != "server_error" {
		t.Errorf("error = %q, want server_error", errResp["error"])
	}
}

func TestProviderTokenInvalidCredential(t *testing.T) {
	s := newVerifierServer(nil, &stubVerifier{err: errors.New("token is expired")})
	rr := testutil.PostJSON(t, s.Handler(), "/auth/provider-token", map[string]string{"idToken": "expired"})
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)

	var errResp map[string]string
	testutil.DecodeJSON(t, rr, &errResp)
	if errResp["error"] != "invalid_credential" {
		t.Errorf("error = %q, want invalid_credential", errResp["error"])
	}
}

func TestProviderTokenExchange(t *testing.T) {
	db := testutil.MustOpenDB(t)
	defer db.Close()
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	s := newVerifierServer(db, &stubVerifier{user: &auth.ProviderUser{
		Sub:           "google-sub-1",
		Email:         "mobile-exchange@example.com",
		EmailVerified: true,
		Name:          "Mobile User",
		Picture:       "https://example.com/p.jpg",
	}})
	rr := testutil.PostJSON(t, s.Handler(), "/auth/provider-token", map[string]string{"idToken": "good"})
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp struct {
		Token string        `json:"token"`
		User  auth.Identity `json:"user"`
	}
	testutil.DecodeJSON(t, rr, &resp)
	defer testutil.CleanupUser(db, resp.User.UserID)

	if resp.User.UserID == "" || resp.User.Email != "mobile-exchange@example.com" {
		t.Errorf("unexpected user: %+v", resp.User)
	}

	// The account was created on first use
	var email string
	if err := db.QueryRow(`SELECT email FROM users WHERE id = $1`, resp.User.UserID).Scan(&email); err != nil {
		t.Fatalf("read user: %v", err)
	}
	if email != "mobile-exchange@example.com" {
		t.Errorf("stored email = %q", email)
	}

	// The minted token has the 7-day provider lifetime
	claims, err := auth.ValidateBridgeToken(resp.Token)
	if err != nil {
		t.Fatalf("validate minted token: %v", err)
	}
	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if lifetime != auth.ProviderTokenTTL {
		t.Errorf("token lifetime = %v, want %v", lifetime, auth.ProviderTokenTTL)
	}
	if claims.UserID != resp.User.UserID {
		t.Errorf("token userId = %q, want %q", claims.UserID, resp.User.UserID)
	}
}

func TestOAuthStateStore(t *testing.T) {
	state, err := generateOAuthState()
	if err != nil {
		t.Fatalf("generate state: %v", err)
	}
	if !consumeOAuthState(state) {
		t.Error("fresh state should validate")
	}
	if consumeOAuthState(state) {
		t.Error("state must be single-use")
	}
	if consumeOAuthState("never-issued") {
		t.Error("unknown state must not validate")
	}
}
