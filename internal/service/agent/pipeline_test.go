package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"polaris/internal/capabilities"
	"polaris/internal/config"
	"polaris/internal/domain/models/chat"
	"polaris/internal/domain/models/filestore"
	"polaris/internal/domain/services"
)

// fakeLedger is an in-memory LedgerService for pipeline tests.
type fakeLedger struct {
	mu            sync.Mutex
	conversations map[string]*chat.Conversation
	messages      map[string]*chat.Message
	order         []string
	titles        []string
	finalWrites   []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		conversations: make(map[string]*chat.Conversation),
		messages:      make(map[string]*chat.Message),
	}
}

func (f *fakeLedger) addConversation(id, title string) {
	f.conversations[id] = &chat.Conversation{ID: id, ProjectID: "proj-1", Title: title}
}

func (f *fakeLedger) addMessage(id, conversationID, role, content string, status *chat.MessageStatus) {
	f.messages[id] = &chat.Message{
		ID:             id,
		ConversationID: conversationID,
		ProjectID:      "proj-1",
		Role:           role,
		Content:        content,
		Status:         status,
	}
	f.order = append(f.order, id)
}

func (f *fakeLedger) CreateConversation(ctx context.Context, projectID, title string) (*chat.Conversation, error) {
	return nil, errors.New("not used")
}

func (f *fakeLedger) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s not found", id)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeLedger) ListConversations(ctx context.Context, projectID string) ([]chat.Conversation, error) {
	return nil, nil
}

func (f *fakeLedger) UpdateTitle(ctx context.Context, conversationID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
	if c, ok := f.conversations[conversationID]; ok {
		c.Title = title
	}
	return nil
}

func (f *fakeLedger) AppendMessage(ctx context.Context, req *services.AppendMessageRequest) (*chat.Message, error) {
	return nil, errors.New("not used")
}

func (f *fakeLedger) SetMessageContent(ctx context.Context, messageID, content string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalWrites = append(f.finalWrites, content)
	m, ok := f.messages[messageID]
	if !ok || m.Status == nil || *m.Status != chat.StatusProcessing {
		return false, nil
	}
	completed := chat.StatusCompleted
	m.Content = content
	m.Status = &completed
	return true, nil
}

func (f *fakeLedger) SetMessageStatus(ctx context.Context, messageID string, status chat.MessageStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[messageID]
	if !ok {
		return fmt.Errorf("message %s not found", messageID)
	}
	m.Status = &status
	return nil
}

func (f *fakeLedger) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	return nil, nil
}

func (f *fakeLedger) RecentMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Message
	for _, id := range f.order {
		m := f.messages[id]
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeLedger) ProcessingMessages(ctx context.Context, projectID string) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Message
	for _, id := range f.order {
		m := f.messages[id]
		if m.ProjectID == projectID && m.Status != nil && *m.Status == chat.StatusProcessing {
			out = append(out, *m)
		}
	}
	return out, nil
}

// fakeModel replays scripted responses.
type fakeModel struct {
	mu        sync.Mutex
	responses []*services.GenerateResponse
	err       error
	calls     []*services.GenerateRequest
	title      string
	titleErr   error
	titleModel string
}

func (f *fakeModel) Generate(ctx context.Context, req *services.GenerateRequest) (*services.GenerateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &services.GenerateResponse{Text: "done", StopReason: "end_turn"}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeModel) Complete(ctx context.Context, model, system, user string, maxTokens int) (string, error) {
	f.mu.Lock()
	f.titleModel = model
	f.mu.Unlock()
	if f.titleErr != nil {
		return "", f.titleErr
	}
	if f.title == "" {
		return "Generated Title", nil
	}
	return f.title, nil
}

// stubTree serves a fixed listing; mutations are not needed here.
type stubTree struct{}

func (stubTree) CreateFile(ctx context.Context, req *services.CreateFileRequest) (*filestore.Node, error) {
	return nil, errors.New("not supported")
}
func (stubTree) CreateFolder(ctx context.Context, req *services.CreateFolderRequest) (*filestore.Node, error) {
	return nil, errors.New("not supported")
}
func (stubTree) CreateFiles(ctx context.Context, projectID string, parentID *string, files []services.BatchFileInput) ([]services.BatchFileResult, error) {
	return nil, errors.New("not supported")
}
func (stubTree) Rename(ctx context.Context, nodeID, newName string) (*filestore.Node, error) {
	return nil, errors.New("not supported")
}
func (stubTree) UpdateContent(ctx context.Context, nodeID, content string) (*filestore.Node, error) {
	return nil, errors.New("not supported")
}
func (stubTree) ListChildren(ctx context.Context, projectID string, parentID *string) ([]filestore.Node, error) {
	return []filestore.Node{
		{ID: "n1", ProjectID: projectID, Name: "notes.md", Kind: filestore.KindFile},
	}, nil
}
func (stubTree) ListProject(ctx context.Context, projectID string) ([]filestore.Node, error) {
	return nil, nil
}
func (stubTree) DeleteRecursive(ctx context.Context, nodeID string) error { return nil }
func (stubTree) Read(ctx context.Context, nodeID string) (*filestore.Node, error) {
	return nil, errors.New("not found")
}

func newTestPipeline(t *testing.T, ledger *fakeLedger, model *fakeModel) *Pipeline {
	t.Helper()
	caps, err := capabilities.NewRegistry()
	if err != nil {
		t.Fatalf("capabilities registry: %v", err)
	}
	return NewPipeline(
		ledger,
		stubTree{},
		model,
		nil, // no scrape client
		caps,
		"claude-sonnet-4-5-20250929",
		"claude-haiku-4-5-20251001",
		0, // no settle delay in tests
		slog.Default(),
	)
}

func processingRun(ledger *fakeLedger) *Run {
	ledger.addConversation("conv-1", "Budget review")
	processing := chat.StatusProcessing
	ledger.addMessage("user-1", "conv-1", chat.RoleUser, "list my files", nil)
	ledger.addMessage("asst-1", "conv-1", chat.RoleAssistant, "", &processing)
	return &Run{
		ProjectID:      "proj-1",
		ConversationID: "conv-1",
		MessageID:      "asst-1",
		UserText:       "list my files",
	}
}

func TestPipeline_TextWithoutToolsTerminates(t *testing.T) {
	ledger := newFakeLedger()
	model := &fakeModel{responses: []*services.GenerateResponse{
		{Text: "You have one file: notes.md", StopReason: "end_turn"},
	}}
	pipeline := newTestPipeline(t, ledger, model)
	run := processingRun(ledger)

	pipeline.Execute(context.Background(), run)

	msg := ledger.messages["asst-1"]
	if msg.Content != "You have one file: notes.md" {
		t.Errorf("unexpected final content: %q", msg.Content)
	}
	if *msg.Status != chat.StatusCompleted {
		t.Errorf("expected completed status, got %s", *msg.Status)
	}
	if len(model.calls) != 1 {
		t.Errorf("expected 1 model call, got %d", len(model.calls))
	}
}

func TestPipeline_ToolLoopFeedsResultsBack(t *testing.T) {
	ledger := newFakeLedger()
	model := &fakeModel{responses: []*services.GenerateResponse{
		{
			ToolUses:   []services.ToolUse{{ID: "toolu_1", Name: "listFiles", Input: map[string]interface{}{}}},
			StopReason: "tool_use",
		},
		{Text: "Your project has notes.md.", StopReason: "end_turn"},
	}}
	pipeline := newTestPipeline(t, ledger, model)
	run := processingRun(ledger)

	pipeline.Execute(context.Background(), run)

	if len(model.calls) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(model.calls))
	}

	// The second call must carry the assistant tool_use turn and a user
	// turn with the tool result
	second := model.calls[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != "user" || len(last.ToolOutcomes) != 1 {
		t.Fatalf("expected trailing tool outcome turn, got %+v", last)
	}
	if !strings.Contains(last.ToolOutcomes[0].Content, "notes.md") {
		t.Errorf("expected listing in tool outcome, got %q", last.ToolOutcomes[0].Content)
	}

	if ledger.messages["asst-1"].Content != "Your project has notes.md." {
		t.Errorf("unexpected final content: %q", ledger.messages["asst-1"].Content)
	}
}

func TestPipeline_ToolErrorSurfacesAsText(t *testing.T) {
	ledger := newFakeLedger()
	model := &fakeModel{responses: []*services.GenerateResponse{
		{
			ToolUses:   []services.ToolUse{{ID: "toolu_1", Name: "readFiles", Input: map[string]interface{}{}}},
			StopReason: "tool_use",
		},
		{Text: "I could not read that.", StopReason: "end_turn"},
	}}
	pipeline := newTestPipeline(t, ledger, model)
	run := processingRun(ledger)

	pipeline.Execute(context.Background(), run)

	second := model.calls[1]
	last := second.Messages[len(second.Messages)-1]
	if !last.ToolOutcomes[0].IsError {
		t.Error("expected tool outcome marked as error")
	}
	if !strings.HasPrefix(last.ToolOutcomes[0].Content, "Error: ") {
		t.Errorf("expected Error-prefixed text, got %q", last.ToolOutcomes[0].Content)
	}
}

func TestPipeline_EmptyIterationContinues(t *testing.T) {
	ledger := newFakeLedger()
	model := &fakeModel{responses: []*services.GenerateResponse{
		{Text: "", StopReason: "end_turn"},
		{Text: "real answer", StopReason: "end_turn"},
	}}
	pipeline := newTestPipeline(t, ledger, model)
	run := processingRun(ledger)

	pipeline.Execute(context.Background(), run)

	if got := len(model.calls); got != 2 {
		t.Errorf("expected 2 model calls, got %d", got)
	}
	if ledger.messages["asst-1"].Content != "real answer" {
		t.Errorf("expected later text response, got %q", ledger.messages["asst-1"].Content)
	}
}

func TestPipeline_IterationCapUsesFallback(t *testing.T) {
	ledger := newFakeLedger()
	model := &fakeModel{}
	for i := 0; i < config.MaxAgentIterations; i++ {
		model.responses = append(model.responses, &services.GenerateResponse{Text: "", StopReason: "end_turn"})
	}
	pipeline := newTestPipeline(t, ledger, model)
	run := processingRun(ledger)

	pipeline.Execute(context.Background(), run)

	if got := len(model.calls); got != config.MaxAgentIterations {
		t.Errorf("expected %d model calls, got %d", config.MaxAgentIterations, got)
	}
	if ledger.messages["asst-1"].Content != fallbackReply {
		t.Errorf("expected fallback reply, got %q", ledger.messages["asst-1"].Content)
	}
}

func TestPipeline_ModelFailureWritesApology(t *testing.T) {
	ledger := newFakeLedger()
	model := &fakeModel{err: errors.New("rate limited")}
	pipeline := newTestPipeline(t, ledger, model)
	run := processingRun(ledger)

	pipeline.Execute(context.Background(), run)

	msg := ledger.messages["asst-1"]
	if msg.Content != apologyReply {
		t.Errorf("expected apology, got %q", msg.Content)
	}
	if *msg.Status != chat.StatusCompleted {
		t.Errorf("expected completed status, got %s", *msg.Status)
	}
}

func TestPipeline_CancelledRunWritesNothing(t *testing.T) {
	ledger := newFakeLedger()
	model := &fakeModel{}
	pipeline := newTestPipeline(t, ledger, model)
	run := processingRun(ledger)

	// Cancellation flips the status first, then stops the run
	cancelled := chat.StatusCancelled
	ledger.messages["asst-1"].Status = &cancelled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pipeline.Execute(ctx, run)

	msg := ledger.messages["asst-1"]
	if *msg.Status != chat.StatusCancelled {
		t.Errorf("expected cancelled status preserved, got %s", *msg.Status)
	}
	if msg.Content != "" {
		t.Errorf("expected no content written, got %q", msg.Content)
	}
	if len(model.calls) != 0 {
		t.Errorf("expected no model calls after cancellation, got %d", len(model.calls))
	}
}

func TestPipeline_LateFinalWriteIsDropped(t *testing.T) {
	ledger := newFakeLedger()
	model := &fakeModel{responses: []*services.GenerateResponse{
		{Text: "late answer", StopReason: "end_turn"},
	}}
	pipeline := newTestPipeline(t, ledger, model)
	run := processingRun(ledger)

	// Cancellation lands after the model call would have started: simulate
	// by flipping status before Execute writes
	cancelled := chat.StatusCancelled
	ledger.messages["asst-1"].Status = &cancelled

	pipeline.Execute(context.Background(), run)

	msg := ledger.messages["asst-1"]
	if *msg.Status != chat.StatusCancelled || msg.Content != "" {
		t.Errorf("late write must lose to cancellation: status=%s content=%q", *msg.Status, msg.Content)
	}
	if len(ledger.finalWrites) != 1 {
		t.Errorf("expected exactly one attempted final write, got %d", len(ledger.finalWrites))
	}
}

func TestPipeline_TitleGeneration(t *testing.T) {
	t.Run("sentinel title gets generated", func(t *testing.T) {
		ledger := newFakeLedger()
		model := &fakeModel{title: "File listing help"}
		pipeline := newTestPipeline(t, ledger, model)
		run := processingRun(ledger)
		ledger.conversations["conv-1"].Title = chat.DefaultConversationTitle

		pipeline.Execute(context.Background(), run)

		if len(ledger.titles) != 1 || ledger.titles[0] != "File listing help" {
			t.Errorf("expected generated title, got %v", ledger.titles)
		}
		if model.titleModel != "claude-haiku-4-5-20251001" {
			t.Errorf("expected title model to be used, got %q", model.titleModel)
		}
	})

	t.Run("existing title untouched", func(t *testing.T) {
		ledger := newFakeLedger()
		model := &fakeModel{}
		pipeline := newTestPipeline(t, ledger, model)
		run := processingRun(ledger)

		pipeline.Execute(context.Background(), run)

		if len(ledger.titles) != 0 {
			t.Errorf("expected no title updates, got %v", ledger.titles)
		}
	})

	t.Run("title failure does not fail the run", func(t *testing.T) {
		ledger := newFakeLedger()
		model := &fakeModel{titleErr: errors.New("model down")}
		pipeline := newTestPipeline(t, ledger, model)
		run := processingRun(ledger)
		ledger.conversations["conv-1"].Title = chat.DefaultConversationTitle

		pipeline.Execute(context.Background(), run)

		if *ledger.messages["asst-1"].Status != chat.StatusCompleted {
			t.Error("run should complete despite title failure")
		}
	})
}

func TestPipeline_SystemPromptFoldsHistory(t *testing.T) {
	ledger := newFakeLedger()
	model := &fakeModel{}
	pipeline := newTestPipeline(t, ledger, model)
	run := processingRun(ledger)

	completed := chat.StatusCompleted
	ledger.addMessage("old-1", "conv-1", chat.RoleUser, "earlier question", nil)
	ledger.addMessage("old-2", "conv-1", chat.RoleAssistant, "earlier answer", &completed)

	pipeline.Execute(context.Background(), run)

	system := model.calls[0].System
	if !strings.Contains(system, "## Previous Conversation") {
		t.Error("expected history section in system prompt")
	}
	if !strings.Contains(system, "earlier question") || !strings.Contains(system, "earlier answer") {
		t.Error("expected prior messages folded into system prompt")
	}
	// The empty processing placeholder must not appear as history
	if strings.Contains(system, "assistant: \n") {
		t.Error("placeholder message leaked into system prompt")
	}
}

func TestBuildSystemPrompt_NoHistory(t *testing.T) {
	processing := chat.StatusProcessing
	prompt := buildSystemPrompt([]chat.Message{
		{ID: "asst-1", Role: chat.RoleAssistant, Content: "", Status: &processing},
	}, "asst-1")

	if strings.Contains(prompt, "## Previous Conversation") {
		t.Error("expected no history section for placeholder-only history")
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Budget review", "Budget review"},
		{"quoted", `"Budget review"`, "Budget review"},
		{"multiline", "Budget review\nextra", "Budget review"},
		{"whitespace", "  Budget review  ", "Budget review"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeTitle(tt.input, 255); got != tt.want {
				t.Errorf("sanitizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
