// Package api implements the movie-rated HTTP API: Google sign-in with
// DB-backed sessions, the mobile token bridge, the TMDB catalog proxy, and
// per-user watchlist and recently-viewed tracking.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/James-Kabz/movie-rated/internal/auth"
	"github.com/James-Kabz/movie-rated/internal/email"
	"github.com/James-Kabz/movie-rated/internal/metrics"
	"github.com/James-Kabz/movie-rated/internal/telemetry"
	"github.com/James-Kabz/movie-rated/services/metadata"
)

// IDTokenVerifier verifies a provider-issued ID token and returns the
// profile it asserts. *auth.ProviderVerifier satisfies it; tests
// substitute stubs.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*auth.ProviderUser, error)
}

// Server holds the API's dependencies. Construct with NewServer and serve
// via Handler or Run.
type Server struct {
	db       *sql.DB
	log      *slog.Logger
	tmdb     *metadata.Client
	verifier IDTokenVerifier
	oauth    *oauth2.Config
	mail     *email.Sender

	// frontendURL is where the browser lands after a completed OAuth flow.
	frontendURL string
}

// NewServer wires the API server. verifier, oauth, and mail may be nil when
// sign-in or watchlist mail is not configured.
func NewServer(db *sql.DB, log *slog.Logger, tmdb *metadata.Client, verifier IDTokenVerifier, oauth *oauth2.Config, mail *email.Sender, frontendURL string) *Server {
	if frontendURL == "" {
		frontendURL = "/"
	}
	return &Server{
		db:          db,
		log:         log,
		tmdb:        tmdb,
		verifier:    verifier,
		oauth:       oauth,
		mail:        mail,
		frontendURL: frontendURL,
	}
}

// Handler returns the full middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return telemetry.PanicRecovery(metrics.Middleware(mux))
}

// Run serves the API on the given port until ctx is cancelled, then shuts
// down gracefully with a 10-second drain.
func (s *Server) Run(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api listening", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ---- response helpers -------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": code, "message": msg})
}

// serverError handles an unexpected failure: structured log, Sentry
// capture, and the 500 envelope. args are extra slog key-value pairs.
func (s *Server) serverError(w http.ResponseWriter, op, msg string, err error, args ...interface{}) {
	s.log.Error(op, append([]interface{}{"err", err}, args...)...)
	telemetry.CaptureError(err, map[string]string{"operation": op})
	writeError(w, http.StatusInternalServerError, "server_error", msg)
}

// decodeJSON decodes a JSON request body into dst and closes the body.
func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

// pathSegment returns the nth segment of a slash-separated path, or "".
func pathSegment(path string, n int) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if n >= len(parts) {
		return ""
	}
	return parts[n]
}
