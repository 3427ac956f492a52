package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"polaris/internal/domain"
	"polaris/internal/domain/services"
)

const apiURL = "https://api.anthropic.com/v1/messages"

// Client talks to the Anthropic Messages API. It implements the ModelClient
// capability: Generate for tool-loop iterations, Complete for single-shot
// text calls like title generation.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewClient creates a new Anthropic API client. model is the default model
// used when a request does not name one.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: apiURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// SetTestTransport points the client at a test server.
func (c *Client) SetTestTransport(baseURL string) {
	c.baseURL = baseURL
}

// contentBlock is one block of a message's content array. Only the fields for
// the block's type are set.
type contentBlock struct {
	Type string `json:"type"`

	// type == "text"
	Text string `json:"text,omitempty"`

	// type == "tool_use"
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`

	// type == "tool_result"
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type toolSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type request struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []message    `json:"messages"`
	Tools     []toolSchema `json:"tools,omitempty"`
}

type response struct {
	Content []struct {
		Type  string                 `json:"type"`
		Text  string                 `json:"text"`
		ID    string                 `json:"id"`
		Name  string                 `json:"name"`
		Input map[string]interface{} `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate runs one model iteration with conversation turns and tool schemas.
func (c *Client) Generate(ctx context.Context, req *services.GenerateRequest) (*services.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	apiReq := request{
		Model:     model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  encodeTurns(req.Messages),
	}
	for _, tool := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, toolSchema{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}

	apiResp, err := c.send(ctx, &apiReq)
	if err != nil {
		return nil, err
	}

	out := &services.GenerateResponse{
		StopReason:   apiResp.StopReason,
		InputTokens:  apiResp.Usage.InputTokens,
		OutputTokens: apiResp.Usage.OutputTokens,
	}

	var texts []string
	for _, block := range apiResp.Content {
		switch block.Type {
		case "text":
			texts = append(texts, block.Text)
		case "tool_use":
			out.ToolUses = append(out.ToolUses, services.ToolUse{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}
	out.Text = strings.Join(texts, "\n")

	return out, nil
}

// Complete sends a single user message and returns the text response.
// An empty model falls back to the client's default.
func (c *Client) Complete(ctx context.Context, model, system, user string, maxTokens int) (string, error) {
	if model == "" {
		model = c.model
	}

	apiReq := request{
		Model:     model,
		MaxTokens: maxTokens,
		System:    system,
		Messages: []message{
			{Role: "user", Content: []contentBlock{{Type: "text", Text: user}}},
		},
	}

	apiResp, err := c.send(ctx, &apiReq)
	if err != nil {
		return "", err
	}

	for _, block := range apiResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("empty response content")
}

func (c *Client) send(ctx context.Context, apiReq *request) (*response, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY", domain.ErrConfigurationMissing)
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("api error %d: %s: %s", resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
		}
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &apiResp, nil
}

// encodeTurns maps domain turns to wire messages. Tool outcomes ride in user
// turns, tool uses in assistant turns, per the Messages API contract.
func encodeTurns(turns []services.ModelTurn) []message {
	out := make([]message, 0, len(turns))
	for _, turn := range turns {
		var blocks []contentBlock

		if turn.Text != "" {
			blocks = append(blocks, contentBlock{Type: "text", Text: turn.Text})
		}
		for _, use := range turn.ToolUses {
			input := use.Input
			if input == nil {
				input = map[string]interface{}{}
			}
			blocks = append(blocks, contentBlock{
				Type:  "tool_use",
				ID:    use.ID,
				Name:  use.Name,
				Input: input,
			})
		}
		for _, outcome := range turn.ToolOutcomes {
			blocks = append(blocks, contentBlock{
				Type:      "tool_result",
				ToolUseID: outcome.ToolUseID,
				Content:   outcome.Content,
				IsError:   outcome.IsError,
			})
		}

		if len(blocks) == 0 {
			continue
		}
		out = append(out, message{Role: turn.Role, Content: blocks})
	}
	return out
}
