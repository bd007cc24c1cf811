package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
	"github.com/akozyrev/event-orchestrator/internal/core/ports"
)

// Status is the terminal outcome of a session actor.
type Status string

const (
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
	StatusTimedOut Status = "timed_out"
)

const (
	// DefaultIdleTimeout ends a session that saw no signal for a day.
	DefaultIdleTimeout = 24 * time.Hour

	// DefaultHistoryLimit is what transports use when the caller does not
	// ask for a specific history window.
	DefaultHistoryLimit = 50

	defaultMailboxSize = 64
)

// Deps are the collaborators one actor needs. Launcher and Searcher drive
// intent dispatch; Acknowledger and Recorder are optional hooks.
type Deps struct {
	Launcher     ports.WorkflowLauncher
	Searcher     ports.Searcher
	Acknowledger ports.Acknowledger
	Recorder     ports.SessionRecorder
	Logger       *slog.Logger
	IdleTimeout  time.Duration
	MailboxSize  int
}

type command any

type msgSignal struct {
	msg domain.ChatMessage
}

type triggerSignal struct {
	event domain.Event
}

type updateUserSignal struct {
	userID   string
	userType domain.UserType
}

type endSignal struct {
	reason string
}

type stateQuery struct {
	reply chan domain.ChatSession
}

type historyQuery struct {
	limit int
	reply chan []domain.ChatMessage
}

type triggeredQuery struct {
	reply chan []string
}

type rateQuery struct {
	reply chan domain.RateLimitStatus
}

// Actor owns one chat session. All state lives on the run goroutine;
// signals and queries travel through the mailbox, so no lock guards the
// session itself. Once the actor terminates the state is frozen and
// queries serve the final snapshot.
type Actor struct {
	deps    Deps
	mailbox chan command
	done    chan struct{}

	// Owned by the run goroutine; safe to read after done closes.
	state     domain.ChatSession
	history   []domain.ChatMessage
	triggered []string
	status    Status
	endReason string
}

// Start spawns the actor goroutine for the given initial session state.
func Start(ctx context.Context, initial domain.ChatSession, deps Deps) *Actor {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.IdleTimeout <= 0 {
		deps.IdleTimeout = DefaultIdleTimeout
	}
	if deps.MailboxSize <= 0 {
		deps.MailboxSize = defaultMailboxSize
	}
	if initial.UserType == "" {
		initial.UserType = domain.UserGuest
	}
	initial.IsActive = true

	a := &Actor{
		deps:    deps,
		mailbox: make(chan command, deps.MailboxSize),
		done:    make(chan struct{}),
		state:   initial,
		status:  StatusActive,
	}
	a.deps.Logger = deps.Logger.With("component", "session", "session_id", initial.SessionID)
	go a.run(ctx)
	return a
}

// Done closes once the actor has terminated.
func (a *Actor) Done() <-chan struct{} { return a.done }

// Result reports the terminal status; valid once Done is closed.
func (a *Actor) Result() (Status, string) {
	select {
	case <-a.done:
		return a.status, a.endReason
	default:
		return StatusActive, ""
	}
}

// ReceiveMessage appends a user message and processes it for intent.
// Messages enqueue even past the guest rate limit; the limit is reported
// by RateLimit, never enforced here.
func (a *Actor) ReceiveMessage(ctx context.Context, msg domain.ChatMessage) error {
	return a.signal(ctx, msgSignal{msg: msg})
}

// TriggerWorkflow starts a child workflow for an explicitly requested
// event, bypassing intent analysis.
func (a *Actor) TriggerWorkflow(ctx context.Context, event domain.Event) error {
	return a.signal(ctx, triggerSignal{event: event})
}

// UpdateUser swaps the session identity, typically on guest login.
func (a *Actor) UpdateUser(ctx context.Context, userID string, userType domain.UserType) error {
	return a.signal(ctx, updateUserSignal{userID: userID, userType: userType})
}

// End terminates the session. Messages still queued in the mailbox are
// dropped unprocessed.
func (a *Actor) End(ctx context.Context, reason string) error {
	return a.signal(ctx, endSignal{reason: reason})
}

// State answers the session-state query.
func (a *Actor) State(ctx context.Context) (domain.ChatSession, error) {
	q := stateQuery{reply: make(chan domain.ChatSession, 1)}
	if err := a.query(ctx, q); err != nil {
		return domain.ChatSession{}, err
	}
	select {
	case s := <-q.reply:
		return s, nil
	case <-a.done:
		return a.state, nil
	case <-ctx.Done():
		return domain.ChatSession{}, ctx.Err()
	}
}

// History returns the most recent limit messages, or the full history when
// limit is zero or negative.
func (a *Actor) History(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	q := historyQuery{limit: limit, reply: make(chan []domain.ChatMessage, 1)}
	if err := a.query(ctx, q); err != nil {
		return nil, err
	}
	select {
	case h := <-q.reply:
		return h, nil
	case <-a.done:
		return historyTail(a.history, limit), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TriggeredWorkflows lists the child workflow ids this session started.
func (a *Actor) TriggeredWorkflows(ctx context.Context) ([]string, error) {
	q := triggeredQuery{reply: make(chan []string, 1)}
	if err := a.query(ctx, q); err != nil {
		return nil, err
	}
	select {
	case ids := <-q.reply:
		return ids, nil
	case <-a.done:
		return append([]string(nil), a.triggered...), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RateLimit answers the read-only rate-limit query.
func (a *Actor) RateLimit(ctx context.Context) (domain.RateLimitStatus, error) {
	q := rateQuery{reply: make(chan domain.RateLimitStatus, 1)}
	if err := a.query(ctx, q); err != nil {
		return domain.RateLimitStatus{}, err
	}
	select {
	case s := <-q.reply:
		return s, nil
	case <-a.done:
		return a.state.RateLimit(), nil
	case <-ctx.Done():
		return domain.RateLimitStatus{}, ctx.Err()
	}
}

func (a *Actor) signal(ctx context.Context, cmd command) error {
	select {
	case <-a.done:
		return domain.ErrSessionEnded
	default:
	}
	select {
	case a.mailbox <- cmd:
		return nil
	case <-a.done:
		return domain.ErrSessionEnded
	case <-ctx.Done():
		return ctx.Err()
	}
}

// query enqueues a read command. Unlike signals, queries are still served
// from the frozen snapshot after termination.
func (a *Actor) query(ctx context.Context, cmd command) error {
	select {
	case a.mailbox <- cmd:
		return nil
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Actor) run(ctx context.Context) {
	defer close(a.done)

	a.deps.Logger.Info("session started", "user_id", a.state.UserID, "user_type", string(a.state.UserType))
	idle := time.NewTimer(a.deps.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case cmd := <-a.mailbox:
			if a.handle(ctx, cmd) {
				if !idle.Stop() {
					select {
					case <-idle.C:
					default:
					}
				}
				idle.Reset(a.deps.IdleTimeout)
			}
			if !a.state.IsActive {
				a.finish(ctx)
				return
			}
		case <-idle.C:
			a.state.IsActive = false
			a.status = StatusTimedOut
			a.endReason = "idle timeout"
			a.finish(ctx)
			return
		case <-ctx.Done():
			a.state.IsActive = false
			a.status = StatusEnded
			a.endReason = "context canceled"
			a.finish(ctx)
			return
		}
	}
}

// handle applies one command. The return value reports whether the command
// was a signal, which resets the idle timer; queries do not.
func (a *Actor) handle(ctx context.Context, cmd command) bool {
	switch c := cmd.(type) {
	case msgSignal:
		a.applyMessage(ctx, c.msg)
		return true
	case triggerSignal:
		a.applyTrigger(ctx, c.event)
		return true
	case updateUserSignal:
		a.state.UserID = c.userID
		a.state.UserType = c.userType
		if a.state.UserType == "" {
			a.state.UserType = domain.UserGuest
		}
		a.deps.Logger.Info("session user updated", "user_id", c.userID, "user_type", string(a.state.UserType))
		return true
	case endSignal:
		a.state.IsActive = false
		a.status = StatusEnded
		a.endReason = c.reason
		return true
	case stateQuery:
		c.reply <- a.state
	case historyQuery:
		c.reply <- historyTail(a.history, c.limit)
	case triggeredQuery:
		c.reply <- append([]string(nil), a.triggered...)
	case rateQuery:
		c.reply <- a.state.RateLimit()
	}
	return false
}

func (a *Actor) applyMessage(ctx context.Context, msg domain.ChatMessage) {
	if msg.MessageID == "" {
		msg.MessageID = fmt.Sprintf("%s-msg-%d", a.state.SessionID, len(a.history)+1)
	}
	if msg.Role == "" {
		msg.Role = domain.RoleUser
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	a.history = append(a.history, msg)
	a.state.MessageCount++
	a.state.LastActivity = msg.Timestamp
	a.deps.Logger.Info("message received", "message_id", msg.MessageID, "total", len(a.history))
	a.recordEvent(ctx, "message_received", map[string]any{"messageId": msg.MessageID})

	a.dispatchIntent(ctx, msg)

	if a.deps.Acknowledger != nil {
		if err := a.deps.Acknowledger.Acknowledge(ctx, a.state.SessionID, msg); err != nil {
			a.deps.Logger.Warn("message acknowledgment failed", "message_id", msg.MessageID, "error", err)
		}
	}
}

func (a *Actor) dispatchIntent(ctx context.Context, msg domain.ChatMessage) {
	analysis := ClassifyMessage(msg.Content)
	if !analysis.ShouldTrigger || analysis.Primary == nil {
		return
	}
	a.deps.Logger.Info("intent detected", "message_id", msg.MessageID, "intent", string(analysis.Primary.Type), "confidence", analysis.Confidence)

	switch analysis.Primary.Type {
	case IntentSearch:
		a.runSearch(ctx, msg)
	case IntentDocument:
		a.applyTrigger(ctx, domain.Event{
			EventType: "document-added",
			Source:    "chat",
			Fields: map[string]any{
				"message": msg.Content,
				"metadata": map[string]any{
					"messageId":         msg.MessageID,
					"detectedWorkflows": analysis.Detected,
					"confidence":        analysis.Confidence,
				},
			},
		})
	case IntentData, IntentAutomation:
		a.applyTrigger(ctx, domain.Event{
			EventType: "user-request",
			Source:    "chat",
			Fields: map[string]any{
				"message": msg.Content,
				"metadata": map[string]any{
					"messageId":    msg.MessageID,
					"workflowType": string(analysis.Primary.Type),
					"confidence":   analysis.Confidence,
				},
			},
		})
	}
}

func (a *Actor) runSearch(ctx context.Context, msg domain.ChatMessage) {
	if a.deps.Searcher == nil {
		return
	}
	result, err := a.deps.Searcher.Search(ctx, domain.SearchQuery{
		Query:     msg.Content,
		SessionID: a.state.SessionID,
		UserID:    msg.UserID,
		MessageID: msg.MessageID,
	})
	if err != nil {
		a.deps.Logger.Error("semantic search failed", "message_id", msg.MessageID, "error", err)
		return
	}
	if !result.Success {
		a.deps.Logger.Error("semantic search unsuccessful", "message_id", msg.MessageID, "error", result.Error)
		return
	}
	a.deps.Logger.Info("semantic search completed", "message_id", msg.MessageID, "chunks", len(result.Chunks))
	a.recordEvent(ctx, "search_completed", map[string]any{"messageId": msg.MessageID, "chunks": len(result.Chunks)})
}

func (a *Actor) applyTrigger(ctx context.Context, event domain.Event) {
	if event.EventType == "" {
		a.deps.Logger.Warn("workflow trigger without event type, skipping")
		return
	}

	childID := fmt.Sprintf("chat-triggered-%s-%s-%d", event.EventType, a.state.SessionID, a.state.MessageCount)

	var err error
	switch event.EventType {
	case "document-added", "document-uploaded":
		metadata, _ := event.Field("metadata")
		req := domain.DocumentRequest{
			DocumentURI: event.StringField("documentUri"),
			Source:      domain.SourceChat,
			EventType:   event.EventType,
			Bucket:      event.StringField("bucket"),
			Key:         event.StringField("key"),
			AdditionalContext: map[string]any{
				"chatId":   a.state.SessionID,
				"userId":   a.state.UserID,
				"metadata": metadata,
			},
		}
		err = a.deps.Launcher.LaunchDocumentPipeline(ctx, childID, req)
	default:
		err = a.deps.Launcher.LaunchGeneric(ctx, childID, event)
	}

	if err != nil {
		a.deps.Logger.Error("workflow trigger failed", "child_id", childID, "error", err)
		return
	}
	a.triggered = append(a.triggered, childID)
	a.deps.Logger.Info("workflow triggered", "child_id", childID, "event_type", event.EventType)
	a.recordEvent(ctx, "workflow_triggered", map[string]any{"childId": childID, "eventType": event.EventType})
}

func (a *Actor) finish(ctx context.Context) {
	dropped := len(a.mailbox)
	a.deps.Logger.Info("session ended",
		"status", string(a.status),
		"reason", a.endReason,
		"messages", a.state.MessageCount,
		"triggered_workflows", len(a.triggered),
		"dropped", dropped)
	a.recordEvent(ctx, "session_ended", map[string]any{
		"status":  string(a.status),
		"reason":  a.endReason,
		"dropped": dropped,
	})
}

func (a *Actor) recordEvent(ctx context.Context, kind string, payload map[string]any) {
	if a.deps.Recorder == nil {
		return
	}
	event := domain.SessionEvent{
		SessionID:  a.state.SessionID,
		Kind:       kind,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
	if err := a.deps.Recorder.RecordSessionEvent(ctx, event); err != nil {
		a.deps.Logger.Warn("session event not recorded", "kind", kind, "error", err)
	}
}

func historyTail(history []domain.ChatMessage, limit int) []domain.ChatMessage {
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return append([]domain.ChatMessage(nil), history...)
}
