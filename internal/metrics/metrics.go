// Package metrics provides Prometheus instrumentation for the movie-rated
// API server. The service registers its metrics at init and mounts
// metrics.Handler() at GET /metrics (Prometheus scrape endpoint).
//
// Standard metrics exposed automatically by prometheus/client_golang:
//   - go_goroutines, go_gc_duration_seconds, etc. (Go runtime)
//   - process_cpu_seconds_total, process_open_fds, etc. (process)
//
// Service-specific metrics registered here:
//   movierated_http_requests_total           — counter: HTTP requests by method/path/status
//   movierated_http_request_duration_seconds — histogram: HTTP latency by method/path
//   movierated_auth_events_total             — counter: auth events by type and result
//   movierated_watchlist_events_total        — counter: watchlist mutations by type
//   movierated_tmdb_errors_total             — counter: upstream catalog failures by endpoint
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ── Counters ──────────────────────────────────────────────────────────────────

// HTTPRequests counts HTTP requests by method, path, and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "movierated_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "path", "status"})

// AuthEvents counts auth events (session, bridge token, provider verify).
var AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "movierated_auth_events_total",
	Help: "Auth events by type.",
}, []string{"event", "result"})

// WatchlistEvents counts watchlist mutations (add, toggle, remove, clear).
var WatchlistEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "movierated_watchlist_events_total",
	Help: "Watchlist lifecycle events.",
}, []string{"event"})

// TMDBErrors counts upstream catalog fetch failures by endpoint group.
var TMDBErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "movierated_tmdb_errors_total",
	Help: "TMDB upstream errors by endpoint.",
}, []string{"endpoint"})

// ── Histograms ────────────────────────────────────────────────────────────────

// HTTPDuration tracks HTTP request latency.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "movierated_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
}, []string{"method", "path"})

// ── Handler ───────────────────────────────────────────────────────────────────

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ── Middleware ────────────────────────────────────────────────────────────────

// Middleware wraps an HTTP handler to record request counts and latency.
// Paths are reduced to their first segment so item IDs don't explode the
// label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		dur := time.Since(start).Seconds()
		path := sanitizePath(r.URL.Path)
		status := strconv.Itoa(rw.status)
		HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		HTTPDuration.WithLabelValues(r.Method, path).Observe(dur)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// sanitizePath returns "/" or "/<first-segment>" of the request path.
func sanitizePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "/"
	}
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return "/" + p
}
