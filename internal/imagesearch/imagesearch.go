// Package imagesearch wraps the Google Custom Search JSON API restricted to
// image results. The client degrades to empty results when no credentials
// are configured: image enrichment is always best-effort.
package imagesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bancoq/bancoq/internal/model"
)

const defaultEndpoint = "https://www.googleapis.com/customsearch/v1"

// resultCount is how many candidate URLs one search requests.
const resultCount = 5

// Client is a thin request/response adapter for the image search service.
type Client struct {
	apiKey   string
	cx       string
	endpoint string
	httpc    *http.Client
}

// New creates an image search client. An empty endpoint selects the real
// service; tests point it at a local server. Empty apiKey or cx leaves the
// client unconfigured.
func New(apiKey, cx, endpoint string) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		apiKey:   apiKey,
		cx:       cx,
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.cx != ""
}

type searchResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
}

// Search returns ranked candidate image URLs for the query. An unconfigured
// client returns an empty result and no error.
func (c *Client) Search(ctx context.Context, query string) ([]model.ImageCandidate, error) {
	if !c.Configured() {
		return nil, nil
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.cx)
	params.Set("q", query)
	params.Set("searchType", "image")
	params.Set("num", fmt.Sprint(resultCount))
	params.Set("safe", "active")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build image search request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image search returned status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode image search response: %w", err)
	}

	var candidates []model.ImageCandidate
	for _, item := range body.Items {
		if item.Link != "" {
			candidates = append(candidates, model.ImageCandidate{URL: item.Link})
		}
	}
	return candidates, nil
}
