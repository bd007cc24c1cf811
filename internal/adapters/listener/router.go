package listener

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
	"github.com/akozyrev/event-orchestrator/internal/core/ports"
	"github.com/akozyrev/event-orchestrator/internal/core/routing"
	"github.com/akozyrev/event-orchestrator/internal/observability/metrics"
)

const maxEventBody = 1 << 20

// Router exposes the ingress HTTP surface. Each endpoint normalizes one
// provider's notification shape into an event envelope and publishes it to
// the queue; routing decisions stay with the worker.
type Router struct {
	service string
	queue   ports.EventQueue
	metrics *metrics.ListenerMetrics
	limiter *rate.Limiter
	logger  *slog.Logger
}

type Options struct {
	RatePerSecond float64
	Burst         int
	Logger        *slog.Logger
}

func NewRouter(service string, queue ports.EventQueue, m *metrics.ListenerMetrics, opts Options) *Router {
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 50
	}
	if opts.Burst <= 0 {
		opts.Burst = 100
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		service: service,
		queue:   queue,
		metrics: m,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		logger:  logger.With("component", "listener"),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/events/webhook", rt.webhookEvent)
	mux.HandleFunc("/events/s3", rt.s3Event)
	mux.HandleFunc("/events/azure-blob", rt.azureBlobEvent)

	var handler http.Handler = mux
	handler = rt.rateLimitMiddleware(handler)
	handler = accessLogMiddleware(handler)
	handler = rt.metrics.Middleware(rt.service, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// webhookEvent accepts a raw event envelope. The payload is validated as a
// whole; all violations come back together in one response.
func (rt *Router) webhookEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var payload map[string]any
	if err := decodeBody(w, r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	validation := routing.ValidateEvent(payload)
	if !validation.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "invalid event",
			"details": validation.Errors,
		})
		return
	}

	event := *validation.Event
	if event.Source == "" {
		event.Source = string(domain.SourceWebhook)
	}
	rt.publish(w, r, event)
}

// s3Event normalizes an S3 object notification.
func (rt *Router) s3Event(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var payload struct {
		Bucket      string `json:"bucket"`
		Key         string `json:"key"`
		EventName   string `json:"eventName"`
		Size        int64  `json:"size"`
		ContentType string `json:"contentType"`
	}
	if err := decodeBody(w, r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	var errs []string
	if strings.TrimSpace(payload.Bucket) == "" {
		errs = append(errs, "bucket is required")
	}
	if strings.TrimSpace(payload.Key) == "" {
		errs = append(errs, "key is required")
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid event", "details": errs})
		return
	}

	eventType := payload.EventName
	if eventType == "" {
		eventType = "document-added"
	}

	fields := map[string]any{
		"documentUri": fmt.Sprintf("s3://%s/%s", payload.Bucket, payload.Key),
		"bucket":      payload.Bucket,
		"key":         payload.Key,
	}
	if payload.Size > 0 {
		fields["size"] = payload.Size
	}
	if payload.ContentType != "" {
		fields["contentType"] = payload.ContentType
	}

	rt.publish(w, r, domain.Event{
		EventType: eventType,
		Source:    string(domain.SourceS3),
		Fields:    fields,
	})
}

// azureBlobEvent normalizes an Azure Blob created notification.
func (rt *Router) azureBlobEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var payload struct {
		Container   string `json:"container"`
		Blob        string `json:"blob"`
		URL         string `json:"url"`
		EventType   string `json:"eventType"`
		ContentType string `json:"contentType"`
	}
	if err := decodeBody(w, r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	var errs []string
	if strings.TrimSpace(payload.Container) == "" {
		errs = append(errs, "container is required")
	}
	if strings.TrimSpace(payload.Blob) == "" {
		errs = append(errs, "blob is required")
	}
	if strings.TrimSpace(payload.URL) == "" {
		errs = append(errs, "url is required")
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid event", "details": errs})
		return
	}

	eventType := payload.EventType
	if eventType == "" {
		eventType = "document-added"
	}

	fields := map[string]any{
		"documentUri": payload.URL,
		"container":   payload.Container,
		"blobName":    payload.Blob,
	}
	if payload.ContentType != "" {
		fields["contentType"] = payload.ContentType
	}

	rt.publish(w, r, domain.Event{
		EventType: eventType,
		Source:    string(domain.SourceAzureBlob),
		Fields:    fields,
	})
}

func (rt *Router) publish(w http.ResponseWriter, r *http.Request, event domain.Event) {
	if err := rt.queue.PublishEvent(r.Context(), event); err != nil {
		rt.metrics.RecordPublishError(rt.service, event.Source)
		rt.logger.Error("event publish failed",
			"request_id", requestIDFromContext(r.Context()),
			"event_type", event.EventType,
			"source", event.Source,
			"error", err,
		)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "event could not be queued"})
		return
	}

	payloadBytes := 0
	if raw, err := json.Marshal(event); err == nil {
		payloadBytes = len(raw)
	}
	rt.metrics.RecordPublishedEvent(rt.service, event.Source, event.EventType, payloadBytes)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":    "accepted",
		"eventType": event.EventType,
		"source":    event.Source,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxEventBody)
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
