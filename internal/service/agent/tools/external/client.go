package external

import (
	"context"
)

// ScrapeClient defines the interface for external web scraping APIs.
// Implementations include Firecrawl, Jina Reader, etc.
type ScrapeClient interface {
	// Scrape fetches a URL and returns its content as markdown.
	Scrape(ctx context.Context, url string) (*ScrapeResult, error)
}

// ScrapeResult contains the scraped content of a single page.
type ScrapeResult struct {
	URL      string // Page URL
	Title    string // Page title (if available)
	Markdown string // Page content converted to markdown
}
