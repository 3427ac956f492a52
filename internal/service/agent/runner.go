package agent

import (
	"context"
	"log/slog"
	"sync"
)

// Runner owns the in-process agent executions. Each run gets its own
// cancellable context keyed by its assistant message ID; cancel signals from
// the bus land here and stop the matching run.
type Runner struct {
	pipeline *Pipeline
	logger   *slog.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a new runner.
func NewRunner(pipeline *Pipeline, logger *slog.Logger) *Runner {
	return &Runner{
		pipeline: pipeline,
		logger:   logger,
		active:   make(map[string]context.CancelFunc),
	}
}

// Start launches a run in the background. The run detaches from the request
// context; it lives until it finishes or a cancel signal stops it.
func (r *Runner) Start(run *Run) {
	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.active[run.MessageID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.active, run.MessageID)
			r.mu.Unlock()
		}()

		r.pipeline.Execute(ctx, run)
	}()
}

// Cancel stops the run for the given message ID. Unknown IDs are a no-op;
// the signal may belong to a run on another instance or one that already
// finished.
func (r *Runner) Cancel(messageID string) {
	r.mu.Lock()
	cancel, ok := r.active[messageID]
	r.mu.Unlock()

	if !ok {
		return
	}

	r.logger.Info("stopping run on cancel signal", "message_id", messageID)
	cancel()
}

// ActiveCount returns the number of runs currently in flight.
func (r *Runner) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Shutdown cancels every run and waits for them to exit.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	for _, cancel := range r.active {
		cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()
}
