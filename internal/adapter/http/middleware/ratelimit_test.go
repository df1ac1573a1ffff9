package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	rl := NewRateLimiter(100, 5, nil)

	handled := 0
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handled++
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d rejected with %d", i, rr.Code)
		}
	}

	if handled != 3 {
		t.Fatalf("expected 3 handled requests, got %d", handled)
	}
}

func TestRateLimiterCountsThrottledRequests(t *testing.T) {
	m := newTestMetrics()
	rl := NewRateLimiter(1, 1, m)

	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	first := httptest.NewRequest(http.MethodGet, "/health", nil)
	first.RemoteAddr = "10.0.0.2:5000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, first)
	if rr.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rr.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/health", nil)
	second.RemoteAddr = "10.0.0.2:5000"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, second)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be throttled, got %d", rr.Code)
	}

	hits := m.RateLimitHits.WithLabelValues("10.0.0.2:5000")
	if got := testutil.ToFloat64(hits); got != 1 {
		t.Fatalf("expected 1 recorded hit, got %v", got)
	}
}

func TestClientIPPrefersForwardedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")

	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("expected forwarded IP, got %s", got)
	}

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "203.0.113.10")
	if got := clientIP(req); got != "203.0.113.10" {
		t.Fatalf("expected real IP, got %s", got)
	}

	req.Header.Del("X-Real-IP")
	if got := clientIP(req); got != "192.0.2.1:1234" {
		t.Fatalf("expected remote addr, got %s", got)
	}
}
