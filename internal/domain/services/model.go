package services

import (
	"context"
)

// ToolDefinition describes one capability exposed to the model, with a JSON
// Schema for its input.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// ToolUse is a structured tool invocation emitted by the model.
type ToolUse struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// ToolOutcome feeds a tool's textual result back to the model.
type ToolOutcome struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error"`
}

// ModelTurn is one message of model context. Exactly one of Text/ToolUses/
// ToolOutcomes carries the payload for a given role:
//   - user turns carry Text or ToolOutcomes
//   - assistant turns carry Text and/or ToolUses
type ModelTurn struct {
	Role         string
	Text         string
	ToolUses     []ToolUse
	ToolOutcomes []ToolOutcome
}

// GenerateRequest is one iteration's input to the model capability.
type GenerateRequest struct {
	System    string
	Messages  []ModelTurn
	Tools     []ToolDefinition
	Model     string
	MaxTokens int
}

// GenerateResponse is the model's output for one iteration: a text answer,
// tool invocations, or both.
type GenerateResponse struct {
	Text         string
	ToolUses     []ToolUse
	StopReason   string
	InputTokens  int
	OutputTokens int
}

// ModelClient is the external model capability. Failures are transient from
// the pipeline's perspective; the caller decides whether to retry or fall
// back.
type ModelClient interface {
	// Generate runs one model iteration with the given context and tool schema.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Complete is a lightweight single-shot text call, used for title
	// generation. model selects the model for this call; empty means the
	// client's default.
	Complete(ctx context.Context, model, system, user string, maxTokens int) (string, error)
}
