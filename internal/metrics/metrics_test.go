package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	prom_testutil "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"", "/"},
		{"/health", "/health"},
		{"/watchlist", "/watchlist"},
		{"/watchlist/42", "/watchlist"},
		{"/catalog/550/recommendations", "/catalog"},
		{"/auth/bridge-token", "/auth"},
	}
	for _, c := range cases {
		if got := sanitizePath(c.in); got != c.want {
			t.Errorf("sanitizePath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, status: http.StatusOK}
	rw.WriteHeader(http.StatusNotFound)
	if rw.status != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rw.status, http.StatusNotFound)
	}
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	before := prom_testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/teapot", "418"))

	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodGet, "/teapot/12", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	after := prom_testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/teapot", "418"))
	if after != before+1 {
		t.Errorf("request counter = %v, want %v", after, before+1)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	WatchlistEvents.WithLabelValues("add").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected metrics output, got empty body")
	}
}
