package middleware

import (
	"net/http"
	"sync"
	"time"
)

// bucketIdleTTL is how long a client address may sit unused before its bucket
// is evicted.
const bucketIdleTTL = 10 * time.Minute

// RateLimiter applies a token bucket per client address. Eviction of idle
// buckets happens inline on Allow, so the limiter holds no goroutine.
type RateLimiter struct {
	rate  float64
	burst int
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	tokens float64
	seenAt time.Time
}

// NewRateLimiter allows rate requests per second with the given burst per
// client address.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:    rate,
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func newRateLimiterWithClock(rate float64, burst int, now func() time.Time) *RateLimiter {
	rl := NewRateLimiter(rate, burst)
	rl.now = now
	return rl
}

// Allow reports whether a request from addr may proceed, consuming one token.
func (rl *RateLimiter) Allow(addr string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweepLocked(now)

	b, ok := rl.buckets[addr]
	if !ok {
		b = &bucket{tokens: float64(rl.burst)}
		rl.buckets[addr] = b
	} else {
		b.tokens += now.Sub(b.seenAt).Seconds() * rl.rate
		if b.tokens > float64(rl.burst) {
			b.tokens = float64(rl.burst)
		}
	}
	b.seenAt = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweepLocked evicts buckets idle past the TTL, at most once per TTL so a hot
// path never pays for a full map scan per request. Caller holds mu.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(rl.lastSweep) < bucketIdleTTL {
		return
	}
	rl.lastSweep = now
	cutoff := now.Add(-bucketIdleTTL)
	for addr, b := range rl.buckets {
		if b.seenAt.Before(cutoff) {
			delete(rl.buckets, addr)
		}
	}
}

// RateLimit returns an HTTP middleware that rejects requests exceeding the
// per-address budget with 429 Too Many Requests.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := r.RemoteAddr
			// Prefer X-Real-Ip set by chi's RealIP middleware.
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				addr = xri
			}
			if !limiter.Allow(addr) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
