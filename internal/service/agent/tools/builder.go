package tools

import (
	"polaris/internal/domain/services"
	"polaris/internal/service/agent/tools/external"
)

// ToolRegistryBuilder provides a fluent API for building per-run tool
// registries. Registries are built per agent run so each tool instance is
// scoped to the run's project.
type ToolRegistryBuilder struct {
	registry  *ToolRegistry
	config    *ToolConfig
	hasScrape bool
}

// NewToolRegistryBuilder creates a new builder with a fresh registry.
func NewToolRegistryBuilder() *ToolRegistryBuilder {
	return &ToolRegistryBuilder{
		registry: NewToolRegistry(),
		config:   DefaultToolConfig(),
	}
}

// WithConfig sets custom tool configuration.
// If not called, defaults will be used.
func (b *ToolRegistryBuilder) WithConfig(config *ToolConfig) *ToolRegistryBuilder {
	if config != nil {
		b.config = config
	}
	return b
}

// WithFileTools registers the file tree tools scoped to one project.
func (b *ToolRegistryBuilder) WithFileTools(projectID string, tree services.TreeService) *ToolRegistryBuilder {
	b.registry.Register("listFiles", NewListFilesTool(projectID, tree))
	b.registry.Register("readFiles", NewReadFilesTool(projectID, tree, b.config))
	b.registry.Register("createFiles", NewCreateFilesTool(projectID, tree, b.config))
	b.registry.Register("createFolder", NewCreateFolderTool(projectID, tree))
	b.registry.Register("renameFile", NewRenameFileTool(projectID, tree))
	b.registry.Register("deleteFiles", NewDeleteFilesTool(projectID, tree))
	b.registry.Register("updateFile", NewUpdateFileTool(projectID, tree))
	return b
}

// WithScrape registers the scrapeUrls tool using an external scrape client.
// Only registers if a valid client is provided.
func (b *ToolRegistryBuilder) WithScrape(client external.ScrapeClient) *ToolRegistryBuilder {
	if client != nil {
		b.registry.Register("scrapeUrls", NewScrapeURLsTool(client, b.config))
		b.hasScrape = true
	}
	return b
}

// Build returns the registry and the matching tool definitions.
func (b *ToolRegistryBuilder) Build() (*ToolRegistry, []services.ToolDefinition) {
	return b.registry, Definitions(b.hasScrape)
}
