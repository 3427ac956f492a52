package agent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"polaris/internal/capabilities"
	"polaris/internal/config"
	"polaris/internal/domain/services"
	"polaris/internal/service/agent/tools"
	"polaris/internal/service/agent/tools/external"
)

const (
	// fallbackReply is used when the model terminates without any text.
	fallbackReply = "I processed your request. Let me know if you need anything else!"

	// apologyReply is used when a pipeline step fails fatally.
	apologyReply = "My apologies, something went wrong while processing this message."

	// titleMaxTokens caps the single-shot title generation call.
	titleMaxTokens = 100
)

// Run identifies one agent execution: the user text to act on and the
// placeholder assistant message that will receive the result.
type Run struct {
	ProjectID      string
	ConversationID string
	MessageID      string
	UserText       string
}

// Pipeline executes agent runs. Each run settles, builds context from recent
// conversation history, iterates the model tool loop, and writes the final
// content through the conditional completed transition.
type Pipeline struct {
	ledger      services.LedgerService
	tree        services.TreeService
	model       services.ModelClient
	scrape      external.ScrapeClient
	caps        *capabilities.Registry
	agentModel  string
	titleModel  string
	settleDelay time.Duration
	logger      *slog.Logger
}

// NewPipeline creates a new agent pipeline. scrape may be nil, which disables
// the scrapeUrls tool.
func NewPipeline(
	ledger services.LedgerService,
	tree services.TreeService,
	model services.ModelClient,
	scrape external.ScrapeClient,
	caps *capabilities.Registry,
	agentModel string,
	titleModel string,
	settleDelay time.Duration,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		ledger:      ledger,
		tree:        tree,
		model:       model,
		scrape:      scrape,
		caps:        caps,
		agentModel:  agentModel,
		titleModel:  titleModel,
		settleDelay: settleDelay,
		logger:      logger,
	}
}

// Execute runs the pipeline to completion. Cancellation arrives as context
// cancellation; the run stops at the next step boundary and writes nothing,
// because the message status already moved to cancelled.
func (p *Pipeline) Execute(ctx context.Context, run *Run) {
	logger := p.logger.With(
		"message_id", run.MessageID,
		"conversation_id", run.ConversationID,
		"project_id", run.ProjectID,
	)

	// Settle before doing any work, so rapid follow-up messages can cancel
	// this run before it spends model tokens.
	if !p.settle(ctx) {
		logger.Info("run cancelled during settle delay")
		return
	}

	conversation, err := p.ledger.GetConversation(ctx, run.ConversationID)
	if err != nil {
		logger.Error("failed to load conversation", "error", err)
		p.finalize(ctx, run.MessageID, apologyReply, logger)
		return
	}

	// Title generation is best-effort and must never fail the run.
	if !conversation.HasGeneratedTitle() {
		p.generateTitle(ctx, run, logger)
	}

	if ctx.Err() != nil {
		logger.Info("run cancelled before context build")
		return
	}

	history, err := p.ledger.RecentMessages(ctx, run.ConversationID, config.RecentMessageWindow)
	if err != nil {
		logger.Warn("failed to load conversation history", "error", err)
		history = nil
	}
	system := buildSystemPrompt(history, run.MessageID)

	registry, defs := tools.NewToolRegistryBuilder().
		WithFileTools(run.ProjectID, p.tree).
		WithScrape(p.scrape).
		Build()

	final := p.runLoop(ctx, run, system, registry, defs, logger)
	if ctx.Err() != nil {
		logger.Info("run cancelled during tool loop")
		return
	}

	p.finalize(ctx, run.MessageID, final, logger)
}

// runLoop iterates the model tool loop and returns the final reply text.
func (p *Pipeline) runLoop(
	ctx context.Context,
	run *Run,
	system string,
	registry *tools.ToolRegistry,
	defs []services.ToolDefinition,
	logger *slog.Logger,
) string {
	maxTokens := p.caps.MaxOutputFor("anthropic", p.agentModel)

	turns := []services.ModelTurn{
		{Role: "user", Text: run.UserText},
	}

	lastText := ""
	for i := 0; i < config.MaxAgentIterations; i++ {
		if ctx.Err() != nil {
			return ""
		}

		resp, err := p.model.Generate(ctx, &services.GenerateRequest{
			System:    system,
			Messages:  turns,
			Tools:     defs,
			Model:     p.agentModel,
			MaxTokens: maxTokens,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return ""
			}
			logger.Error("model call failed", "iteration", i, "error", err)
			return apologyReply
		}

		logger.Debug("model iteration",
			"iteration", i,
			"stop_reason", resp.StopReason,
			"tool_calls", len(resp.ToolUses),
			"input_tokens", resp.InputTokens,
			"output_tokens", resp.OutputTokens,
		)

		if resp.Text != "" {
			lastText = resp.Text
		}

		// Text with no tool calls terminates the loop. An empty iteration
		// (neither) is not terminal; keep iterating until the cap.
		if len(resp.ToolUses) == 0 {
			if resp.Text != "" {
				return resp.Text
			}
			continue
		}

		turns = append(turns, services.ModelTurn{
			Role:     "assistant",
			Text:     resp.Text,
			ToolUses: resp.ToolUses,
		})

		calls := make([]tools.ToolCall, len(resp.ToolUses))
		for j, use := range resp.ToolUses {
			calls[j] = tools.ToolCall{ID: use.ID, Name: use.Name, Input: use.Input}
		}
		results := registry.ExecuteAll(ctx, calls)

		outcomes := make([]services.ToolOutcome, len(results))
		for j, result := range results {
			outcomes[j] = toOutcome(result)
		}
		turns = append(turns, services.ModelTurn{
			Role:         "user",
			ToolOutcomes: outcomes,
		})
	}

	logger.Warn("agent loop hit iteration cap", "max_iterations", config.MaxAgentIterations)
	if lastText != "" {
		return lastText
	}
	return fallbackReply
}

// toOutcome renders a tool result as text for the model. Failures become
// "Error: ..." text so the model can read them and self-correct.
func toOutcome(result tools.ToolResult) services.ToolOutcome {
	if result.IsError {
		return services.ToolOutcome{
			ToolUseID: result.ID,
			Content:   "Error: " + result.Error.Error(),
			IsError:   true,
		}
	}

	content, ok := result.Result.(string)
	if !ok {
		content = ""
	}
	return services.ToolOutcome{
		ToolUseID: result.ID,
		Content:   content,
	}
}

// finalize writes the final content through the conditional completed
// transition. A dropped write means cancellation won; that is not an error.
func (p *Pipeline) finalize(ctx context.Context, messageID, content string, logger *slog.Logger) {
	// The run's context may already be cancelled; the write must still have
	// a live context so a cancelled-but-racing run can lose cleanly.
	applied, err := p.ledger.SetMessageContent(context.WithoutCancel(ctx), messageID, content)
	if err != nil {
		logger.Error("failed to write final content", "error", err)
		return
	}
	if !applied {
		logger.Info("final write dropped, message no longer processing")
		return
	}
	logger.Info("run completed", "content_length", len(content))
}

// generateTitle sets a conversation title from the first user message.
// Best-effort: failures are logged and the sentinel title stays.
func (p *Pipeline) generateTitle(ctx context.Context, run *Run, logger *slog.Logger) {
	raw, err := p.model.Complete(ctx, p.titleModel, titleSystemPrompt, run.UserText, titleMaxTokens)
	if err != nil {
		logger.Warn("title generation failed", "error", err)
		return
	}

	title := sanitizeTitle(raw, config.MaxConversationTitleLength)
	if title == "" {
		logger.Warn("title generation produced empty title")
		return
	}

	if err := p.ledger.UpdateTitle(ctx, run.ConversationID, title); err != nil {
		logger.Warn("failed to store generated title", "error", err)
		return
	}

	logger.Debug("conversation title generated", "title", title)
}

// settle waits out the settle delay. Returns false when the run was cancelled
// while waiting.
func (p *Pipeline) settle(ctx context.Context) bool {
	if p.settleDelay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(p.settleDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
