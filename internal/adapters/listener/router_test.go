package listener

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
	"github.com/akozyrev/event-orchestrator/internal/observability/metrics"
)

type fakeQueue struct {
	mu         sync.Mutex
	published  []domain.Event
	publishErr error
}

func (q *fakeQueue) PublishEvent(_ context.Context, event domain.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, event)
	return nil
}

func (q *fakeQueue) SubscribeEvents(context.Context, func(context.Context, domain.Event) error) error {
	return nil
}

func (q *fakeQueue) events() []domain.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.Event(nil), q.published...)
}

func newTestRouter(queue *fakeQueue, opts Options) http.Handler {
	return NewRouter("listener-test", queue, metrics.NewListenerMetrics("listener-test"), opts).Handler()
}

func TestWebhookEventPublishesNormalizedEnvelope(t *testing.T) {
	queue := &fakeQueue{}
	handler := newTestRouter(queue, Options{})

	body := `{"eventType":" document-added ","bucket":"docs","key":"q3.pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/events/webhook", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	events := queue.events()
	if len(events) != 1 {
		t.Fatalf("expected one published event, got %d", len(events))
	}
	if events[0].EventType != "document-added" {
		t.Fatalf("expected trimmed eventType, got %q", events[0].EventType)
	}
	if events[0].Source != "webhook" {
		t.Fatalf("expected webhook source default, got %q", events[0].Source)
	}
	if events[0].Fields["bucket"] != "docs" {
		t.Fatalf("expected pass-through fields, got %+v", events[0].Fields)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestWebhookEventReportsAllViolationsTogether(t *testing.T) {
	queue := &fakeQueue{}
	handler := newTestRouter(queue, Options{})

	req := httptest.NewRequest(http.MethodPost, "/events/webhook", strings.NewReader(`{"eventType":42,"source":7}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	var resp struct {
		Details []string `json:"details"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Details) != 2 {
		t.Fatalf("expected both violations reported, got %v", resp.Details)
	}
	if len(queue.events()) != 0 {
		t.Fatalf("invalid event must not be published")
	}
}

func TestS3EventBuildsDocumentURI(t *testing.T) {
	queue := &fakeQueue{}
	handler := newTestRouter(queue, Options{})

	body := `{"bucket":"reports","key":"2026/q3.pdf","size":1024,"contentType":"application/pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/events/s3", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	events := queue.events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	event := events[0]
	if event.EventType != "document-added" || event.Source != "s3" {
		t.Fatalf("unexpected envelope %+v", event)
	}
	if event.Fields["documentUri"] != "s3://reports/2026/q3.pdf" {
		t.Fatalf("unexpected documentUri %v", event.Fields["documentUri"])
	}
	if event.Fields["bucket"] != "reports" || event.Fields["key"] != "2026/q3.pdf" {
		t.Fatalf("unexpected fields %+v", event.Fields)
	}
}

func TestS3EventRequiresBucketAndKey(t *testing.T) {
	queue := &fakeQueue{}
	handler := newTestRouter(queue, Options{})

	req := httptest.NewRequest(http.MethodPost, "/events/s3", strings.NewReader(`{}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	var resp struct {
		Details []string `json:"details"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Details) != 2 {
		t.Fatalf("expected bucket and key violations, got %v", resp.Details)
	}
}

func TestAzureBlobEventNormalizesFields(t *testing.T) {
	queue := &fakeQueue{}
	handler := newTestRouter(queue, Options{})

	body := `{"container":"docs","blob":"quarterly.pdf","url":"https://acct.blob.core.windows.net/docs/quarterly.pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/events/azure-blob", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	event := queue.events()[0]
	if event.Source != "azure-blob" {
		t.Fatalf("unexpected source %q", event.Source)
	}
	if event.Fields["container"] != "docs" || event.Fields["blobName"] != "quarterly.pdf" {
		t.Fatalf("unexpected fields %+v", event.Fields)
	}
	if event.Fields["documentUri"] != "https://acct.blob.core.windows.net/docs/quarterly.pdf" {
		t.Fatalf("unexpected documentUri %v", event.Fields["documentUri"])
	}
}

func TestPublishFailureReturns503(t *testing.T) {
	queue := &fakeQueue{publishErr: errors.New("nats unavailable")}
	handler := newTestRouter(queue, Options{})

	body := `{"eventType":"document-added"}`
	req := httptest.NewRequest(http.MethodPost, "/events/webhook", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestRateLimitReturns429WithRetryAfter(t *testing.T) {
	queue := &fakeQueue{}
	handler := newTestRouter(queue, Options{RatePerSecond: 1, Burst: 1})

	body := `{"eventType":"document-added"}`
	req1 := httptest.NewRequest(http.MethodPost, "/events/webhook", strings.NewReader(body))
	res1 := httptest.NewRecorder()
	handler.ServeHTTP(res1, req1)
	if res1.Code != http.StatusAccepted {
		t.Fatalf("first request expected 202, got %d", res1.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/events/webhook", strings.NewReader(body))
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}
}

func TestHealthzBypassesRateLimit(t *testing.T) {
	queue := &fakeQueue{}
	handler := newTestRouter(queue, Options{RatePerSecond: 1, Burst: 1})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("healthz request %d expected 200, got %d", i, res.Code)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	queue := &fakeQueue{}
	handler := newTestRouter(queue, Options{})

	req := httptest.NewRequest(http.MethodGet, "/events/s3", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}
