package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"polaris/internal/domain/models/chat"
)

// recordingPublisher records publish order and can fail selectively.
type recordingPublisher struct {
	mu        sync.Mutex
	published []string
	failFor   map[string]bool
}

func (p *recordingPublisher) PublishCancel(messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor[messageID] {
		return errors.New("nats: connection closed")
	}
	p.published = append(p.published, messageID)
	return nil
}

// orderedLedger wraps fakeLedger to record the interleaving of status flips
// and cancel publishes.
type orderedLedger struct {
	*fakeLedger
	events *[]string
}

func (l *orderedLedger) SetMessageStatus(ctx context.Context, messageID string, status chat.MessageStatus) error {
	*l.events = append(*l.events, "status:"+messageID)
	return l.fakeLedger.SetMessageStatus(ctx, messageID, status)
}

type orderedPublisher struct {
	events *[]string
}

func (p *orderedPublisher) PublishCancel(messageID string) error {
	*p.events = append(*p.events, "publish:"+messageID)
	return nil
}

func TestCoordinator_NothingProcessing(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addConversation("conv-1", "Title")
	completed := chat.StatusCompleted
	ledger.addMessage("asst-1", "conv-1", chat.RoleAssistant, "done", &completed)

	publisher := &recordingPublisher{}
	coord := NewCoordinator(ledger, publisher, slog.Default())

	cancelled, err := coord.CancelAllProcessing(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled == nil || len(cancelled) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", cancelled)
	}
	if len(publisher.published) != 0 {
		t.Errorf("expected no signals, got %v", publisher.published)
	}
	if *ledger.messages["asst-1"].Status != chat.StatusCompleted {
		t.Error("completed message must not be touched")
	}
}

func TestCoordinator_CancelsAllProcessing(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addConversation("conv-1", "Title")
	processing := chat.StatusProcessing
	completed := chat.StatusCompleted
	ledger.addMessage("asst-1", "conv-1", chat.RoleAssistant, "", &processing)
	ledger.addMessage("asst-2", "conv-1", chat.RoleAssistant, "", &processing)
	ledger.addMessage("asst-3", "conv-1", chat.RoleAssistant, "done", &completed)

	publisher := &recordingPublisher{}
	coord := NewCoordinator(ledger, publisher, slog.Default())

	cancelled, err := coord.CancelAllProcessing(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cancelled) != 2 {
		t.Fatalf("expected 2 cancelled, got %v", cancelled)
	}
	for _, id := range []string{"asst-1", "asst-2"} {
		if *ledger.messages[id].Status != chat.StatusCancelled {
			t.Errorf("message %s not cancelled", id)
		}
	}
	if *ledger.messages["asst-3"].Status != chat.StatusCompleted {
		t.Error("completed message must not be touched")
	}
	if len(publisher.published) != 2 {
		t.Errorf("expected 2 signals, got %v", publisher.published)
	}
}

func TestCoordinator_StatusFlipsBeforePublish(t *testing.T) {
	var events []string
	ledger := newFakeLedger()
	ledger.addConversation("conv-1", "Title")
	processing := chat.StatusProcessing
	ledger.addMessage("asst-1", "conv-1", chat.RoleAssistant, "", &processing)
	ledger.addMessage("asst-2", "conv-1", chat.RoleAssistant, "", &processing)

	coord := NewCoordinator(
		&orderedLedger{fakeLedger: ledger, events: &events},
		&orderedPublisher{events: &events},
		slog.Default(),
	)

	if _, err := coord.CancelAllProcessing(context.Background(), "proj-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"status:asst-1", "publish:asst-1", "status:asst-2", "publish:asst-2"}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, events)
		}
	}
}

func TestCoordinator_PublishFailureStillCountsCancelled(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addConversation("conv-1", "Title")
	processing := chat.StatusProcessing
	ledger.addMessage("asst-1", "conv-1", chat.RoleAssistant, "", &processing)

	publisher := &recordingPublisher{failFor: map[string]bool{"asst-1": true}}
	coord := NewCoordinator(ledger, publisher, slog.Default())

	cancelled, err := coord.CancelAllProcessing(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The database is the source of truth: the status flip already dooms the
	// run's final write, so a lost signal does not unmake the cancellation.
	if len(cancelled) != 1 || cancelled[0] != "asst-1" {
		t.Errorf("expected asst-1 cancelled, got %v", cancelled)
	}
	if *ledger.messages["asst-1"].Status != chat.StatusCancelled {
		t.Error("status flip must survive a failed publish")
	}
}

func TestRunner_CancelStopsRun(t *testing.T) {
	ledger := newFakeLedger()
	model := &fakeModel{}
	pipeline := newTestPipeline(t, ledger, model)
	run := processingRun(ledger)

	// Block Execute inside the settle delay so Cancel has a live run to hit.
	pipeline.settleDelay = 10 * time.Second

	runner := NewRunner(pipeline, slog.Default())
	runner.Start(run)

	if runner.ActiveCount() != 1 {
		t.Fatalf("expected 1 active run, got %d", runner.ActiveCount())
	}

	runner.Cancel("asst-1")
	runner.Shutdown()

	if runner.ActiveCount() != 0 {
		t.Errorf("expected no active runs, got %d", runner.ActiveCount())
	}
	if len(model.calls) != 0 {
		t.Errorf("cancelled run must not call the model, got %d calls", len(model.calls))
	}
	if ledger.messages["asst-1"].Content != "" {
		t.Errorf("cancelled run must write nothing, got %q", ledger.messages["asst-1"].Content)
	}
}

func TestRunner_CancelUnknownIDIsNoop(t *testing.T) {
	ledger := newFakeLedger()
	pipeline := newTestPipeline(t, ledger, &fakeModel{})
	runner := NewRunner(pipeline, slog.Default())

	runner.Cancel("never-started")
	runner.Shutdown()
}
