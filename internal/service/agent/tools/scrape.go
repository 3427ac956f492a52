package tools

import (
	"context"
	"fmt"
	"strings"

	"polaris/internal/service/agent/tools/external"
)

// ScrapeURLsTool implements the 'scrapeUrls' tool for fetching web pages as
// markdown through an external scrape client.
type ScrapeURLsTool struct {
	client external.ScrapeClient
	config *ToolConfig
}

// NewScrapeURLsTool creates a new ScrapeURLsTool instance.
func NewScrapeURLsTool(client external.ScrapeClient, config *ToolConfig) *ScrapeURLsTool {
	if config == nil {
		config = DefaultToolConfig()
	}
	return &ScrapeURLsTool{client: client, config: config}
}

// Execute implements ToolExecutor interface.
// Input parameters:
//   - urls (array of strings, required): URLs to fetch
//
// Pages are reported individually; one failed fetch does not fail the rest.
func (t *ScrapeURLsTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	urls, err := stringSliceParam(input, "urls")
	if err != nil {
		return nil, err
	}
	if len(urls) > t.config.MaxScrapeURLs {
		return nil, fmt.Errorf("too many urls: %d exceeds the limit of %d", len(urls), t.config.MaxScrapeURLs)
	}

	var sb strings.Builder
	for _, url := range urls {
		result, err := t.client.Scrape(ctx, url)
		if err != nil {
			fmt.Fprintf(&sb, "=== %s ===\nError: %v\n\n", url, err)
			continue
		}

		content := result.Markdown
		if len(content) > t.config.MaxScrapeLength {
			content = content[:t.config.MaxScrapeLength] + "\n... (truncated)"
		}

		header := result.URL
		if result.Title != "" {
			header = fmt.Sprintf("%s (%s)", result.Title, result.URL)
		}
		fmt.Fprintf(&sb, "=== %s ===\n%s\n\n", header, content)
	}
	return strings.TrimSuffix(sb.String(), "\n"), nil
}
