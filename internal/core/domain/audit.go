package domain

import "time"

// PipelineRun is the persisted record of one pipeline execution, written
// by the executor for every run regardless of outcome.
type PipelineRun struct {
	ID          string         `json:"id"`
	DocumentURI string         `json:"document_uri"`
	Source      DocumentSource `json:"source"`
	EventType   string         `json:"event_type"`
	Success     bool           `json:"success"`
	FailedStage StageName      `json:"failed_stage,omitempty"`
	Error       string         `json:"error,omitempty"`
	ChunkCount  int            `json:"chunk_count"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
}

// SessionEvent is one append-only audit entry written when a session actor
// applies a signal or spawns a child workflow.
type SessionEvent struct {
	SessionID  string         `json:"session_id"`
	Kind       string         `json:"kind"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
