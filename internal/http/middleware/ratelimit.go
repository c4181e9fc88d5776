package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"attachke/internal/common"
	"attachke/internal/http/response"
)

// Limiter is a fixed-window counter. The Redis implementation backs it in
// production; the in-memory one covers single-instance deployments and tests.
type Limiter interface {
	Allow(key string, limit int, window time.Duration) bool
}

type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
}

type rateBucket struct {
	count     int
	windowEnd time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*rateBucket)}
}

func (r *RateLimiter) Allow(key string, limit int, window time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if len(r.buckets) > 4096 {
		r.prune(now)
	}
	bucket, ok := r.buckets[key]
	if !ok || now.After(bucket.windowEnd) {
		r.buckets[key] = &rateBucket{count: 1, windowEnd: now.Add(window)}
		return true
	}
	if bucket.count >= limit {
		return false
	}
	bucket.count++
	return true
}

// prune drops expired windows; callers hold the mutex.
func (r *RateLimiter) prune(now time.Time) {
	for key, bucket := range r.buckets {
		if now.After(bucket.windowEnd) {
			delete(r.buckets, key)
		}
	}
}

// RateLimit guards a route with a per-key budget. A nil limiter or an empty
// key passes through, so the same route code runs with rate limiting disabled.
func RateLimit(limiter Limiter, keyFn func(*http.Request) string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := keyFn(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow(key, limit, window) {
				response.Error(w, common.NewError(common.CodeRateLimited, "too many requests, slow down", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// The first entry is the original client; the rest are proxies.
		if idx := strings.IndexByte(forwarded, ','); idx > 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
