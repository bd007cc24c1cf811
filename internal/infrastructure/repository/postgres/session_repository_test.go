package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
)

func newSessionRepoWithMock(t *testing.T) (*SessionRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &SessionRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestRecordSessionEventSerializesPayload(t *testing.T) {
	repo, mock, done := newSessionRepoWithMock(t)
	defer done()

	occurred := time.Now().UTC()
	mock.ExpectExec("INSERT INTO session_events").
		WithArgs("s-1", "workflow_triggered", []byte(`{"childId":"chat-triggered-document-added-s-1-1"}`), occurred).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.RecordSessionEvent(context.Background(), domain.SessionEvent{
		SessionID:  "s-1",
		Kind:       "workflow_triggered",
		Payload:    map[string]any{"childId": "chat-triggered-document-added-s-1-1"},
		OccurredAt: occurred,
	})
	if err != nil {
		t.Fatalf("RecordSessionEvent() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordSessionEventNilPayloadBecomesEmptyObject(t *testing.T) {
	repo, mock, done := newSessionRepoWithMock(t)
	defer done()

	occurred := time.Now().UTC()
	mock.ExpectExec("INSERT INTO session_events").
		WithArgs("s-1", "session_ended", []byte(`{}`), occurred).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.RecordSessionEvent(context.Background(), domain.SessionEvent{
		SessionID:  "s-1",
		Kind:       "session_ended",
		OccurredAt: occurred,
	})
	if err != nil {
		t.Fatalf("RecordSessionEvent() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionHistoryScansPayload(t *testing.T) {
	repo, mock, done := newSessionRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"session_id", "kind", "payload", "occurred_at"}).
		AddRow("s-1", "message_received", []byte(`{"messageId":"m-1"}`), now)

	mock.ExpectQuery("SELECT session_id, kind, payload, occurred_at").
		WithArgs("s-1").
		WillReturnRows(rows)

	events, err := repo.SessionHistory(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("SessionHistory() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Payload["messageId"] != "m-1" {
		t.Fatalf("payload not decoded: %+v", events[0].Payload)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
