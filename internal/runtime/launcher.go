package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
	"github.com/akozyrev/event-orchestrator/internal/core/pipeline"
)

// Launcher is the in-process workflow substrate. Each launch runs on its
// own goroutine under a detached child id; launching an id that is already
// running or finished is a no-op, so deterministic ids give at-most-once
// semantics across retried signals.
type Launcher struct {
	executor *pipeline.Executor
	logger   *slog.Logger

	runStarted  func()
	runFinished func(domain.PipelineResult, time.Duration)

	mu      sync.Mutex
	known   map[string]struct{}
	results map[string]domain.PipelineResult

	wg sync.WaitGroup
}

type Option func(*Launcher)

// WithRunObserver installs hooks fired around every document pipeline
// run, e.g. for in-flight and duration metrics.
func WithRunObserver(started func(), finished func(domain.PipelineResult, time.Duration)) Option {
	return func(l *Launcher) {
		l.runStarted = started
		l.runFinished = finished
	}
}

func NewLauncher(executor *pipeline.Executor, logger *slog.Logger, opts ...Option) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Launcher{
		executor: executor,
		logger:   logger.With("component", "launcher"),
		known:    make(map[string]struct{}),
		results:  make(map[string]domain.PipelineResult),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Launcher) LaunchDocumentPipeline(ctx context.Context, childID string, req domain.DocumentRequest) error {
	if !l.claim(childID) {
		l.logger.Info("child id already launched, skipping", "child_id", childID)
		return nil
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if l.runStarted != nil {
			l.runStarted()
		}
		started := time.Now()
		// The run outlives the launching signal's context.
		result := l.executor.Run(context.WithoutCancel(ctx), req)
		if l.runFinished != nil {
			l.runFinished(result, time.Since(started))
		}
		l.mu.Lock()
		l.results[childID] = result
		l.mu.Unlock()
		l.logger.Info("document pipeline finished", "child_id", childID, "success", result.Success)
	}()
	return nil
}

func (l *Launcher) LaunchGeneric(ctx context.Context, childID string, event domain.Event) error {
	if !l.claim(childID) {
		l.logger.Info("child id already launched, skipping", "child_id", childID)
		return nil
	}
	// Generic events have no processing body yet; the launch is recorded
	// so the routing surface stays uniform.
	l.logger.Info("generic workflow launched", "child_id", childID, "event_type", event.EventType)
	return nil
}

func (l *Launcher) LaunchIncident(ctx context.Context, childID string, initialPrompt string) error {
	if !l.claim(childID) {
		return fmt.Errorf("incident %s already launched", childID)
	}
	l.logger.Info("incident workflow launched", "child_id", childID, "prompt_length", len(initialPrompt))
	return nil
}

// Result returns the pipeline outcome of a finished child, if any.
func (l *Launcher) Result(childID string) (domain.PipelineResult, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	result, ok := l.results[childID]
	return result, ok
}

// Wait blocks until every launched pipeline has finished.
func (l *Launcher) Wait() {
	l.wg.Wait()
}

func (l *Launcher) claim(childID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.known[childID]; ok {
		return false
	}
	l.known[childID] = struct{}{}
	return true
}
