package config

const (
	// MaxProjectNameLength is the maximum length for project names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxProjectNameLength = 255

	// MaxNodeNameLength is the maximum length for file and folder names.
	MaxNodeNameLength = 255

	// MaxConversationTitleLength is the maximum length for conversation titles.
	MaxConversationTitleLength = 255

	// MaxMessageLength caps inbound user message text.
	MaxMessageLength = 32_000

	// MaxFileContentLength caps inline file content. Larger payloads belong
	// in blob storage.
	MaxFileContentLength = 1_000_000

	// RecentMessageWindow is how many messages the pipeline loads for agent
	// context.
	RecentMessageWindow = 10

	// MaxAgentIterations is the hard cap on the agent tool loop. Reaching it
	// without a clean termination yields the last text output or a generic
	// fallback.
	MaxAgentIterations = 20
)
