// routes.go — Route registration for the API server.
// Handler implementations live in handlers_*.go files.
package api

import (
	"net/http"

	"github.com/James-Kabz/movie-rated/internal/auth"
	"github.com/James-Kabz/movie-rated/internal/metrics"
)

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// ── Health + metrics ──────────────────────────────────────────────────────
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())

	// ── Web OAuth + sessions ──────────────────────────────────────────────────
	mux.HandleFunc("/auth/login", s.handleLogin)
	mux.HandleFunc("/auth/callback", s.handleCallback)
	mux.HandleFunc("/auth/session", s.handleSession)
	mux.HandleFunc("/auth/logout", s.handleLogout)

	// ── Mobile token bridge ───────────────────────────────────────────────────
	mux.HandleFunc("/auth/bridge-token", s.handleBridgeToken)
	mux.HandleFunc("/auth/provider-token", s.handleProviderToken)
	mux.HandleFunc("/auth/session-from-token", s.handleSessionFromToken)
	mux.HandleFunc("/auth/verify-token", s.handleVerifyToken)

	// ── Watchlist (auth required) ─────────────────────────────────────────────
	mux.HandleFunc("/watchlist", auth.RequireAuth(s.db, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleWatchlistGet(w, r)
		case http.MethodPost:
			s.handleWatchlistAdd(w, r)
		case http.MethodDelete:
			s.handleWatchlistClear(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET, POST, or DELETE required")
		}
	})))
	mux.HandleFunc("/watchlist/", auth.RequireAuth(s.db, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			s.handleWatchlistUpdate(w, r)
		case http.MethodDelete:
			s.handleWatchlistRemove(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "PUT or DELETE required")
		}
	})))

	// ── Recently viewed (auth required) ───────────────────────────────────────
	mux.HandleFunc("/recently-viewed", auth.RequireAuth(s.db, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleRecentlyViewedGet(w, r)
		case http.MethodPost:
			s.handleRecentlyViewedRecord(w, r)
		case http.MethodDelete:
			s.handleRecentlyViewedClear(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET, POST, or DELETE required")
		}
	})))

	// ── Catalog proxy — public, no auth ───────────────────────────────────────
	mux.HandleFunc("/catalog", s.handleCatalog)
	mux.HandleFunc("/catalog/", s.handleCatalogItem)
	mux.HandleFunc("/search/suggestions", s.handleSearchSuggestions)
}
