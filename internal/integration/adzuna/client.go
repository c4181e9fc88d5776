package adzuna

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const defaultBaseURL = "https://api.adzuna.com/v1/api"

// Client fetches job listings from the Adzuna search API.
type Client struct {
	baseURL    string
	appID      string
	appKey     string
	httpClient *http.Client
}

func NewClient(appID, appKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    defaultBaseURL,
		appID:      strings.TrimSpace(appID),
		appKey:     strings.TrimSpace(appKey),
		httpClient: httpClient,
	}
}

// SetBaseURL overrides the API host, for tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

type Job struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Company     struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
	RedirectURL string `json:"redirect_url"`
	Created     string `json:"created"`
}

type searchResponse struct {
	Results []Job `json:"results"`
}

// Search queries one page of Kenyan listings matching the keywords.
func (c *Client) Search(ctx context.Context, keywords string, page, perPage int) ([]Job, error) {
	if c.appID == "" || c.appKey == "" {
		return nil, fmt.Errorf("adzuna credentials not configured")
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	params := url.Values{}
	params.Set("app_id", c.appID)
	params.Set("app_key", c.appKey)
	params.Set("results_per_page", strconv.Itoa(perPage))
	params.Set("what", keywords)
	params.Set("content-type", "application/json")

	endpoint := fmt.Sprintf("%s/jobs/ke/search/%d?%s", c.baseURL, page, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create adzuna request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send adzuna request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read adzuna response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna api error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode adzuna response: %w", err)
	}
	return parsed.Results, nil
}
