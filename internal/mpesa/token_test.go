package mpesa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"attachke/internal/common"
)

func TestTokenCacheReusesTokenWithinLifetime(t *testing.T) {
	var exchanges int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&exchanges, 1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			t.Errorf("unexpected basic auth: %q %q", user, pass)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": "3599"})
	}))
	defer server.Close()

	cache := NewTokenCache(server.URL, "key", "secret", server.Client())

	first, err := cache.Token(context.Background())
	if err != nil {
		t.Fatalf("first token: %v", err)
	}
	second, err := cache.Token(context.Background())
	if err != nil {
		t.Fatalf("second token: %v", err)
	}
	if first != "tok-1" || second != "tok-1" {
		t.Fatalf("unexpected tokens %q %q", first, second)
	}
	if got := atomic.LoadInt64(&exchanges); got != 1 {
		t.Fatalf("expected exactly one exchange, got %d", got)
	}
}

func TestTokenCacheRefreshesAfterExpiry(t *testing.T) {
	var exchanges int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&exchanges, 1)
		token := "tok-1"
		if n > 1 {
			token = "tok-2"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": token, "expires_in": 3599})
	}))
	defer server.Close()

	now := time.Now()
	cache := NewTokenCache(server.URL, "key", "secret", server.Client())
	cache.now = func() time.Time { return now }

	if _, err := cache.Token(context.Background()); err != nil {
		t.Fatalf("first token: %v", err)
	}

	// Advance past the provider lifetime minus the safety margin.
	now = now.Add(3599*time.Second - expirySafetyMargin + time.Second)
	token, err := cache.Token(context.Background())
	if err != nil {
		t.Fatalf("second token: %v", err)
	}
	if token != "tok-2" {
		t.Fatalf("expected refreshed token, got %q", token)
	}
	if got := atomic.LoadInt64(&exchanges); got != 2 {
		t.Fatalf("expected two exchanges, got %d", got)
	}
}

func TestTokenCacheExchangeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	cache := NewTokenCache(server.URL, "key", "wrong", server.Client())
	if _, err := cache.Token(context.Background()); !common.Is(err, common.CodeUpstreamAuth) {
		t.Fatalf("expected upstream_auth error, got %v", err)
	}
}

func TestTokenCacheMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	cache := NewTokenCache(server.URL, "key", "secret", server.Client())
	if _, err := cache.Token(context.Background()); !common.Is(err, common.CodeUpstreamAuth) {
		t.Fatalf("expected upstream_auth error, got %v", err)
	}
}
