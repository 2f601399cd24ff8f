package assetsearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bitaca/mediadex/internal/domain"
)

func newTestClient(url string, maxFailures uint32) *Client {
	return New(&Config{
		BaseURL:     url,
		MaxFailures: maxFailures,
		OpenTimeout: time.Minute,
		Logger:      zap.NewNop(),
	})
}

func TestSearch_ParsesAssets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/search" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Query != "matrix" || req.Partition != 1 {
			t.Errorf("request = %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"files":[
			{"id":"f1","name":"The.Matrix.1999.mkv","link":"https://cdn/f1","path":"/movies","size":1234,"mimeType":"video/x-matroska","modifiedTime":"2024-01-01T00:00:00Z","thumbnail":"https://cdn/t1"},
			{"id":"f2","name":"matrix-poster.jpg","link":"https://cdn/f2","size":99,"mimeType":"image/jpeg"}
		]}`))
	}))
	defer server.Close()

	assets, err := newTestClient(server.URL, 5).Search(context.Background(), "matrix", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("assets = %d, want 2", len(assets))
	}
	if assets[0].AssetID != "f1" || !assets[0].IsVideo || assets[0].DriveID != 1 {
		t.Errorf("asset 0 = %+v", assets[0])
	}
	if assets[1].IsVideo {
		t.Error("image must not be flagged as video")
	}
}

func TestSearch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 5).Search(context.Background(), "matrix", 0)
	if !errors.Is(err, domain.ErrCollaboratorUnavailable) {
		t.Fatalf("err = %v, want ErrCollaboratorUnavailable", err)
	}
}

func TestSearch_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(server.URL, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Search(ctx, "q", 0); err == nil {
			t.Fatal("expected failure")
		}
	}

	// Breaker is now open: no request reaches the server.
	before := requests
	_, err := c.Search(ctx, "q", 0)
	if !errors.Is(err, domain.ErrCollaboratorUnavailable) {
		t.Fatalf("err = %v, want ErrCollaboratorUnavailable", err)
	}
	if requests != before {
		t.Errorf("open breaker still let a request through (%d -> %d)", before, requests)
	}
}

func TestSearch_RateLimiterHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"files":[]}`))
	}))
	defer server.Close()

	c := New(&Config{
		BaseURL:    server.URL,
		RatePerSec: 0.001, // effectively blocks after the first token
		Burst:      1,
		Logger:     zap.NewNop(),
	})

	if _, err := c.Search(context.Background(), "a", 0); err != nil {
		t.Fatalf("first search: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Search(ctx, "b", 0); err == nil {
		t.Fatal("expected context deadline while waiting for a token")
	}
}
