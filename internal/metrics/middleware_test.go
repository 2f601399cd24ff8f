package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newInstrumentedRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(Middleware())
	return r
}

func TestMiddleware_CountsAndTimesRequests(t *testing.T) {
	r := newInstrumentedRouter()
	r.Get("/api/v1/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/search?q=matrix", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/v1/search", "200")); got < 1 {
		t.Errorf("http_requests_total = %f, want >= 1", got)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("http_request_duration_seconds has no observations")
	}
}

func TestMiddleware_LabelsByStatus(t *testing.T) {
	r := newInstrumentedRouter()
	r.Post("/api/v1/match", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Post("/api/v1/enrich", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	tests := []struct {
		path   string
		status string
	}{
		{"/api/v1/match", "404"},
		{"/api/v1/enrich", "503"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest("POST", tc.path, http.NoBody))

			if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", tc.path, tc.status)); got < 1 {
				t.Errorf("requests_total{%s,%s} = %f, want >= 1", tc.path, tc.status, got)
			}
		})
	}
}

func TestMiddleware_UsesRoutePatternNotRawPath(t *testing.T) {
	r := newInstrumentedRouter()
	r.Get("/api/v1/related/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Two distinct asset ids must collapse into one label value.
	for _, id := range []string{"asset-1", "asset-2"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/related/"+id, http.NoBody))
	}

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/v1/related/{id}", "200"))
	if got < 2 {
		t.Errorf("requests_total for route pattern = %f, want >= 2", got)
	}
}

func TestNormalizePath_EmptyPattern(t *testing.T) {
	if got := normalizePath(""); got != "unknown" {
		t.Errorf("normalizePath(\"\") = %q, want unknown", got)
	}
	if got := normalizePath("/health"); got != "/health" {
		t.Errorf("normalizePath(/health) = %q", got)
	}
}
