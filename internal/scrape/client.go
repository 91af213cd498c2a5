package scrape

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"receptionist-platform/internal/apperr"
	"receptionist-platform/internal/config"
)

// Researcher is the research-provider contract consumed by the provisioning
// pipeline. Given a business website URL it returns free-text content about
// the business.
type Researcher interface {
	Research(ctx context.Context, targetURL string) (string, error)
}

// Client fetches rendered website content through the scraping API.
// One client per process, constructor-injected into the pipeline.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.ScrapeConfig) *Client {
	return &Client{
		token:   cfg.Token,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Research fetches the target page with JS rendering enabled. Rendering-heavy
// targets are slow; the client timeout bounds the call.
func (c *Client) Research(ctx context.Context, targetURL string) (string, error) {
	params := url.Values{}
	params.Set("token", c.token)
	params.Set("url", targetURL)
	params.Set("render", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return "", apperr.Upstream("research request build failed", 0, err.Error())
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.Upstream("research provider unreachable", 0, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Upstream("research response read failed", resp.StatusCode, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.Upstream("research provider request failed", resp.StatusCode, string(body))
	}
	return string(body), nil
}

var _ Researcher = (*Client)(nil)
