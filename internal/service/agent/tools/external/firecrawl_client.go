package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultFirecrawlBaseURL is the default Firecrawl API endpoint
	DefaultFirecrawlBaseURL = "https://api.firecrawl.dev/v1/scrape"
	// DefaultFirecrawlTimeout is the default HTTP timeout for scrape requests
	DefaultFirecrawlTimeout = 60 * time.Second
)

// FirecrawlClient implements ScrapeClient for Firecrawl.
type FirecrawlClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewFirecrawlClient creates a new Firecrawl scrape client.
func NewFirecrawlClient(apiKey string) *FirecrawlClient {
	return &FirecrawlClient{
		apiKey:  apiKey,
		baseURL: DefaultFirecrawlBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultFirecrawlTimeout,
		},
	}
}

// NewFirecrawlClientWithConfig creates a Firecrawl client with custom configuration.
func NewFirecrawlClientWithConfig(apiKey string, baseURL string, timeout time.Duration) *FirecrawlClient {
	return &FirecrawlClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type firecrawlResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title     string `json:"title"`
			SourceURL string `json:"sourceURL"`
		} `json:"metadata"`
	} `json:"data"`
	Error string `json:"error"`
}

// Scrape implements ScrapeClient interface for Firecrawl.
func (c *FirecrawlClient) Scrape(ctx context.Context, url string) (*ScrapeResult, error) {
	payload := map[string]interface{}{
		"url":     url,
		"formats": []string{"markdown"},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var fcResp firecrawlResponse
	if err := json.Unmarshal(body, &fcResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !fcResp.Success {
		return nil, fmt.Errorf("scrape failed: %s", fcResp.Error)
	}

	return &ScrapeResult{
		URL:      url,
		Title:    fcResp.Data.Metadata.Title,
		Markdown: fcResp.Data.Markdown,
	}, nil
}
