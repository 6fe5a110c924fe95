package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterBurstThenRefill(t *testing.T) {
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	rl := newRateLimiterWithClock(1, 2, func() time.Time { return now })

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatalf("expected burst of 2 to be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatalf("expected third request to be rejected")
	}

	now = now.Add(time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Fatalf("expected one token after a second at 1 req/s")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatalf("expected only one token to have refilled")
	}
}

func TestRateLimiterRefillCapsAtBurst(t *testing.T) {
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	rl := newRateLimiterWithClock(10, 2, func() time.Time { return now })

	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.1")

	now = now.Add(time.Minute)
	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatalf("expected a full burst after the idle gap")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatalf("expected tokens to cap at burst, not accumulate")
	}
}

func TestRateLimiterIsolatesAddresses(t *testing.T) {
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	rl := newRateLimiterWithClock(1, 1, func() time.Time { return now })

	if !rl.Allow("10.0.0.1") {
		t.Fatalf("expected first address to be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatalf("expected first address to be exhausted")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatalf("expected second address to have its own bucket")
	}
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	rl := newRateLimiterWithClock(1, 1, func() time.Time { return now })

	rl.Allow("10.0.0.1")

	now = now.Add(bucketIdleTTL + time.Minute)
	rl.Allow("10.0.0.2")

	rl.mu.Lock()
	_, ok := rl.buckets["10.0.0.1"]
	rl.mu.Unlock()
	if ok {
		t.Fatalf("expected idle bucket to be evicted")
	}
}

func TestRateLimitMiddlewareRejectsWith429(t *testing.T) {
	handler := RateLimit(0.001, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/slots/offers", nil)
	req.Header.Set("X-Real-Ip", "203.0.113.7")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be limited, got %d", rec.Code)
	}
}
