package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	limiter := NewRateLimiter()
	for i := 0; i < 3; i++ {
		if !limiter.Allow("k", 3, time.Minute) {
			t.Fatalf("request %d denied inside budget", i+1)
		}
	}
	if limiter.Allow("k", 3, time.Minute) {
		t.Error("request over budget allowed")
	}
	if !limiter.Allow("other", 3, time.Minute) {
		t.Error("unrelated key throttled")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	limiter := NewRateLimiter()
	if !limiter.Allow("k", 1, time.Millisecond) {
		t.Fatal("first request denied")
	}
	if limiter.Allow("k", 1, time.Millisecond) {
		t.Fatal("second request allowed inside window")
	}
	time.Sleep(5 * time.Millisecond)
	if !limiter.Allow("k", 1, time.Millisecond) {
		t.Error("request denied after window expired")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimit(NewRateLimiter(), ClientIP, 2, time.Minute)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Fatalf("first request = %d", code)
	}
	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Fatalf("second request = %d", code)
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", code)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other client = %d, want 200", code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Errorf("ClientIP = %q", got)
	}
	req.Header.Del("X-Forwarded-For")
	if got := ClientIP(req); got != "10.0.0.9" {
		t.Errorf("ClientIP = %q", got)
	}
}
