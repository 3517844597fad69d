package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticLimiter struct {
	allow bool
	keys  []string
}

func (s *staticLimiter) Allow(key string) bool {
	s.keys = append(s.keys, key)
	return s.allow
}

func TestRateLimitMiddlewareBlocksWhenLimiterDenies(t *testing.T) {
	middleware := rateLimitMiddleware(&staticLimiter{allow: false}, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler should not execute when rate limited")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	middleware.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on throttled response")
	}
}

func TestRateLimitMiddlewarePassesWhenLimiterAllows(t *testing.T) {
	var called bool
	middleware := rateLimitMiddleware(&staticLimiter{allow: true}, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	middleware.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to execute when limiter allows")
	}
}

func TestRateLimitMiddlewareKeysByClientHost(t *testing.T) {
	limiter := &staticLimiter{allow: true}
	middleware := rateLimitMiddleware(limiter, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	middleware.ServeHTTP(httptest.NewRecorder(), req)

	if len(limiter.keys) != 1 || limiter.keys[0] != "10.0.0.7" {
		t.Fatalf("expected limiter keyed by client host, got %v", limiter.keys)
	}
}

func TestClientLimiterUsesDefaults(t *testing.T) {
	limiter := newClientLimiter(0, 0)
	if !limiter.Allow("a") {
		t.Fatalf("expected first request to be allowed")
	}
	if limiter.Allow("a") {
		t.Fatalf("expected default burst of one to throttle the second request")
	}
}

func TestClientLimiterSeparatesClients(t *testing.T) {
	limiter := newClientLimiter(0.001, 1)
	if !limiter.Allow("10.0.0.1") {
		t.Fatalf("expected first client to be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatalf("expected first client to be throttled")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatalf("expected a second client to have its own bucket")
	}
}
