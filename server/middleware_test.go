package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pharmalink/pharmalink-api/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRealIPMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"no header keeps remote addr", "", "10.0.0.1:1234", "10.0.0.1:1234"},
		{"single forwarded ip", "203.0.113.5", "10.0.0.1:1234", "203.0.113.5"},
		{"first of chain wins", "203.0.113.5, 10.0.0.2, 10.0.0.3", "10.0.0.1:1234", "203.0.113.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if seen != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", seen, tt.want)
			}
		})
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	cfg := &config.Config{MaxRequestBody: 100, MaxHeaderSize: 200}
	handler := RequestSizeMiddleware(cfg)(okHandler())

	t.Run("small request passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("oversized body rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/verify", strings.NewReader("x"))
		req.Header.Set("Content-Length", "5000")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})

	t.Run("oversized headers rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
		req.Header.Set("X-Big", strings.Repeat("a", 500))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusRequestHeaderFieldsTooLarge {
			t.Errorf("status = %d, want 431", rec.Code)
		}
	})
}

func TestGetTokenCost(t *testing.T) {
	tests := []struct {
		path string
		want int64
	}{
		{"/", 0},
		{"/catalog", 200},
		{"/catalog/2", 20},
		{"/catalog/filter", 20},
		{"/search", 100},
		{"/drug/3b241101-e2bb-4255-8caf-4136c566a962", 20},
		{"/brand/3b241101-e2bb-4255-8caf-4136c566a962", 20},
		{"/api/verify", 50},
		{"/api/verify/batch", 200},
		{"/health", 5},
		{"/metrics", 5},
		{"/unknown", 20},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if got := getTokenCost(req); got != tt.want {
				t.Errorf("getTokenCost(%s) = %d, want %d", tt.path, got, tt.want)
			}
		})
	}
}

func TestRateLimitHandler(t *testing.T) {
	handler := RateLimitHandler(okHandler())

	// A fresh bucket holds 1000 tokens; five catalog dumps at 200
	// tokens drain it.
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
		req.RemoteAddr = "192.0.2.77:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.RemoteAddr = "192.0.2.77:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("drained bucket must reject, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("rejections must carry Retry-After")
	}

	// A different client gets its own bucket.
	other := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	other.RemoteAddr = "192.0.2.78:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Errorf("other client must not be affected, got %d", rec.Code)
	}
}
