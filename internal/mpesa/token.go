package mpesa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"attachke/internal/common"
)

// expirySafetyMargin is shaved off the provider-reported token lifetime so a
// token never expires while a request carrying it is in flight.
const expirySafetyMargin = 300 * time.Second

// TokenCache holds the short-lived bearer credential for the daraja API and
// refreshes it via the basic-auth exchange when it nears expiry.
//
// The mutex protects the cached fields only; it is not held across the
// exchange itself. Two callers that observe an expired token concurrently will
// both refresh and the second write wins. The refresh is idempotent, so the
// redundant round-trip is the accepted cost of not serializing all callers
// behind a network call.
type TokenCache struct {
	consumerKey    string
	consumerSecret string
	baseURL        string
	httpClient     *http.Client
	now            func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewTokenCache(baseURL, consumerKey, consumerSecret string, httpClient *http.Client) *TokenCache {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TokenCache{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		baseURL:        baseURL,
		httpClient:     httpClient,
		now:            time.Now,
	}
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

// Token returns the cached bearer token, exchanging credentials when the cache
// is empty or past its expiry.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && c.now().Before(c.expiresAt) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	token, expiresAt, err := c.exchange(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.token = token
	c.expiresAt = expiresAt
	c.mu.Unlock()
	return token, nil
}

func (c *TokenCache) exchange(ctx context.Context) (string, time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", time.Time{}, common.NewError(common.CodeUpstreamAuth, "failed to build token request", err)
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, common.NewError(common.CodeUpstreamAuth, "failed to reach token endpoint", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, common.NewError(common.CodeUpstreamAuth, "failed to read token response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, common.NewError(common.CodeUpstreamAuth, fmt.Sprintf("token endpoint returned %d", resp.StatusCode), nil)
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", time.Time{}, common.NewError(common.CodeUpstreamAuth, "failed to decode token response", err)
	}
	if parsed.AccessToken == "" {
		return "", time.Time{}, common.NewError(common.CodeUpstreamAuth, "token response missing access_token", nil)
	}
	lifetime, err := parsed.ExpiresIn.Int64()
	if err != nil || lifetime <= 0 {
		return "", time.Time{}, common.NewError(common.CodeUpstreamAuth, "token response missing expires_in", err)
	}

	expiresAt := c.now().Add(time.Duration(lifetime)*time.Second - expirySafetyMargin)
	return parsed.AccessToken, expiresAt, nil
}
