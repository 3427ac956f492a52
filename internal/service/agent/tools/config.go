package tools

// ToolConfig centralizes configuration for all tools.
type ToolConfig struct {
	// Read tool configuration
	MaxReadSize int // Maximum file content size to return (prevents token overflow)

	// Batch tool configuration
	MaxBatchFiles int // Maximum files per createFiles/readFiles/deleteFiles call

	// Scrape tool configuration
	MaxScrapeURLs   int // Maximum URLs per scrapeUrls call
	MaxScrapeLength int // Maximum characters kept per scraped page
}

// DefaultToolConfig returns the default tool configuration.
func DefaultToolConfig() *ToolConfig {
	return &ToolConfig{
		MaxReadSize:     20000, // 20k characters (~5k tokens)
		MaxBatchFiles:   20,
		MaxScrapeURLs:   5,
		MaxScrapeLength: 15000,
	}
}
