package jooble

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://jooble.org/api"

// Client fetches job listings from the Jooble search API. Jooble keys the
// request on the URL path rather than a header.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: httpClient,
	}
}

// SetBaseURL overrides the API host, for tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

type searchRequest struct {
	Keywords string `json:"keywords"`
	Location string `json:"location"`
	Page     int    `json:"page,omitempty"`
}

type Job struct {
	Title    string `json:"title"`
	Location string `json:"location"`
	Snippet  string `json:"snippet"`
	Company  string `json:"company"`
	Link     string `json:"link"`
	Updated  string `json:"updated"`
}

type searchResponse struct {
	TotalCount int   `json:"totalCount"`
	Jobs       []Job `json:"jobs"`
}

func (c *Client) Search(ctx context.Context, keywords, location string) ([]Job, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("jooble api key not configured")
	}
	payload, err := json.Marshal(searchRequest{Keywords: keywords, Location: location})
	if err != nil {
		return nil, fmt.Errorf("encode jooble request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create jooble request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send jooble request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read jooble response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jooble api error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode jooble response: %w", err)
	}
	return parsed.Jobs, nil
}
