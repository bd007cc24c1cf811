package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
)

// SessionRepository appends session audit events. Rows are append-only;
// the session actor owns the live state and this table only records what
// happened.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082802)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS session_events (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	payload JSONB NOT NULL DEFAULT '{}'::jsonb,
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_events_session_id ON session_events(session_id, occurred_at);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SessionRepository) RecordSessionEvent(ctx context.Context, event domain.SessionEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal session event payload: %w", err)
	}
	if event.Payload == nil {
		payload = []byte("{}")
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO session_events (session_id, kind, payload, occurred_at)
VALUES ($1,$2,$3,$4)
`,
		event.SessionID, event.Kind, payload, event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert session event: %w", err)
	}
	return nil
}

// SessionHistory returns the audit trail of one session in occurrence
// order.
func (r *SessionRepository) SessionHistory(ctx context.Context, sessionID string) ([]domain.SessionEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT session_id, kind, payload, occurred_at
FROM session_events
WHERE session_id = $1
ORDER BY occurred_at, id
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	defer rows.Close()

	var events []domain.SessionEvent
	for rows.Next() {
		var event domain.SessionEvent
		var payload []byte
		if err := rows.Scan(&event.SessionID, &event.Kind, &payload, &event.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &event.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal session event payload: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session events: %w", err)
	}
	return events, nil
}
