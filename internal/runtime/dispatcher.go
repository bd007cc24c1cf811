package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/akozyrev/event-orchestrator/internal/core/coordinator"
	"github.com/akozyrev/event-orchestrator/internal/core/domain"
	"github.com/akozyrev/event-orchestrator/internal/core/ports"
	"github.com/akozyrev/event-orchestrator/internal/core/routing"
	"github.com/akozyrev/event-orchestrator/internal/core/session"
	"github.com/akozyrev/event-orchestrator/internal/observability/metrics"
)

// Session control event types. These bypass the routing table: they
// address a session actor directly instead of launching a workflow.
const (
	EventSessionStarted = "chat-session-started"
	EventSessionMessage = "chat-message"
	EventSessionTrigger = "chat-trigger"
	EventSessionUser    = "chat-user-updated"
	EventSessionEnded   = "chat-session-ended"
)

const eventIncident = "incident"

// Dispatcher is the worker's event intake: every envelope read off the
// queue goes through exactly one of three paths — coordinator escalation,
// session actor signal, or routing table dispatch.
type Dispatcher struct {
	service  string
	table    domain.RoutingTable
	launcher ports.WorkflowLauncher
	sessions *session.Manager
	coord    *coordinator.Coordinator
	metrics  *metrics.OrchestratorMetrics
	logger   *slog.Logger
}

func NewDispatcher(
	service string,
	table domain.RoutingTable,
	launcher ports.WorkflowLauncher,
	sessions *session.Manager,
	coord *coordinator.Coordinator,
	m *metrics.OrchestratorMetrics,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		service:  service,
		table:    table,
		launcher: launcher,
		sessions: sessions,
		coord:    coord,
		metrics:  m,
		logger:   logger.With("component", "dispatcher"),
	}
}

func (d *Dispatcher) HandleEvent(ctx context.Context, event domain.Event) error {
	eventType := strings.TrimSpace(event.EventType)
	if eventType == "" {
		d.metrics.RecordRejectedEvent(d.service, "empty_event_type")
		return domain.WrapError(domain.ErrValidation, "dispatch event", fmt.Errorf("eventType is empty"))
	}
	event.EventType = eventType

	if strings.EqualFold(eventType, eventIncident) {
		childID, err := d.coord.Handle(ctx, event)
		if err != nil {
			d.metrics.RecordRejectedEvent(d.service, "coordinator")
			return err
		}
		d.metrics.RecordWorkflowLaunch(d.service, domain.WorkflowIncident)
		d.logger.Info("incident dispatched", "child_id", childID)
		return nil
	}

	if isSessionEvent(eventType) {
		return d.handleSessionEvent(ctx, eventType, event)
	}

	decision, err := routing.Route(&event, d.table)
	if err != nil {
		d.metrics.RecordRejectedEvent(d.service, "no_route")
		return err
	}
	d.metrics.RecordRoutedEvent(d.service, decision)
	d.logger.Info("event routed",
		"event_type", event.EventType,
		"source", event.Source,
		"workflow", decision.Workflow.Kind,
		"matched_by", decision.MatchedBy,
		"confidence", decision.Confidence,
	)

	kind := decision.Workflow.Kind
	switch kind {
	case domain.WorkflowDocumentProcessing:
		err = d.launcher.LaunchDocumentPipeline(ctx, documentChildID(event), buildDocumentRequest(event))
	case domain.WorkflowIncident:
		_, err = d.coord.Handle(ctx, event)
	default:
		err = d.launcher.LaunchGeneric(ctx, string(kind)+"-"+uuid.NewString(), event)
	}
	if err != nil {
		return fmt.Errorf("launch %s: %w", kind, err)
	}
	d.metrics.RecordWorkflowLaunch(d.service, kind)
	return nil
}

func isSessionEvent(eventType string) bool {
	switch eventType {
	case EventSessionStarted, EventSessionMessage, EventSessionTrigger, EventSessionUser, EventSessionEnded:
		return true
	}
	return false
}

func (d *Dispatcher) handleSessionEvent(ctx context.Context, eventType string, event domain.Event) error {
	sessionID := strings.TrimSpace(event.StringField("sessionId"))
	if sessionID == "" {
		d.metrics.RecordRejectedEvent(d.service, "missing_session_id")
		return domain.WrapError(domain.ErrValidation, "dispatch session event", fmt.Errorf("sessionId is required"))
	}
	d.metrics.RecordSessionSignal(d.service, eventType)

	if eventType == EventSessionStarted {
		_, err := d.sessions.StartSession(ctx, domain.ChatSession{
			SessionID: sessionID,
			UserID:    event.StringField("userId"),
			UserType:  domain.UserType(event.StringField("userType")),
		})
		if err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		d.metrics.SetActiveSessions(d.sessions.Count())
		return nil
	}

	actor, err := d.sessions.Get(sessionID)
	if err != nil {
		return err
	}

	switch eventType {
	case EventSessionMessage:
		err = actor.ReceiveMessage(ctx, domain.ChatMessage{
			MessageID: event.StringField("messageId"),
			Content:   event.StringField("content"),
			Role:      domain.MessageRole(event.StringField("role")),
			UserID:    event.StringField("userId"),
		})
	case EventSessionTrigger:
		err = actor.TriggerWorkflow(ctx, triggerEvent(event))
	case EventSessionUser:
		err = actor.UpdateUser(ctx, event.StringField("userId"), domain.UserType(event.StringField("userType")))
	case EventSessionEnded:
		reason := event.StringField("reason")
		if reason == "" {
			reason = "client request"
		}
		err = actor.End(ctx, reason)
	}
	if err != nil {
		return fmt.Errorf("session %s signal %s: %w", sessionID, eventType, err)
	}

	if eventType == EventSessionEnded {
		d.sessions.Reap()
		d.metrics.SetActiveSessions(d.sessions.Count())
	}
	return nil
}

// triggerEvent rebuilds the embedded workflow trigger a chat client sent
// through the session: triggerEventType becomes the eventType, the
// remaining fields ride along.
func triggerEvent(event domain.Event) domain.Event {
	fields := make(map[string]any, len(event.Fields))
	for k, v := range event.Fields {
		if k == "sessionId" || k == "triggerEventType" {
			continue
		}
		fields[k] = v
	}
	return domain.Event{
		EventType: event.StringField("triggerEventType"),
		Source:    string(domain.SourceChat),
		Fields:    fields,
	}
}

func buildDocumentRequest(event domain.Event) domain.DocumentRequest {
	source := domain.DocumentSource(event.Source)
	if source == "" {
		source = domain.SourceWebhook
	}

	req := domain.DocumentRequest{
		DocumentURI: event.StringField("documentUri"),
		Source:      source,
		EventType:   event.EventType,
		Bucket:      event.StringField("bucket"),
		Key:         event.StringField("key"),
		Container:   event.StringField("container"),
		BlobName:    event.StringField("blobName"),
		ContentType: event.StringField("contentType"),
	}
	if v, ok := event.Field("size"); ok {
		if f, isFloat := v.(float64); isFloat {
			req.Size = int64(f)
		}
	}
	return req
}

// documentChildID derives a stable child id from the document identity,
// so a redelivered notification reuses the id and the launcher's
// at-most-once claim suppresses the duplicate run.
func documentChildID(event domain.Event) string {
	uri := event.StringField("documentUri")
	if uri == "" {
		return "doc-" + uuid.NewString()
	}
	seed := event.Source + "|" + event.EventType + "|" + uri
	return "doc-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}
