package ports

import (
	"context"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
)

// FileStorage reads chat-uploaded documents from the local filesystem.
type FileStorage interface {
	ReadFile(ctx context.Context, path string) (content []byte, contentType string, err error)
}

// ObjectStorage fetches documents from bucket/container object stores
// (S3, Azure Blob). The real cloud clients live behind this boundary.
type ObjectStorage interface {
	Fetch(ctx context.Context, container, object string) (content []byte, contentType string, err error)
}

// HTTPFetcher downloads documents referenced by plain http(s) URIs.
type HTTPFetcher interface {
	Get(ctx context.Context, url string) (content []byte, contentType string, err error)
}

// TextExtractor pulls plain text out of downloaded document bytes.
// It returns the text and the extraction method used.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte, contentType string) (text string, method string, err error)
}

// Embedder builds fixed-dimension vectors for chunks and query text.
// This is the pluggable external embedding function; implementations only
// honor the contract, not any particular model.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore persists (chunk, vector) pairs and serves semantic search.
type VectorStore interface {
	UpsertChunks(ctx context.Context, index string, ids []string, chunks []string, vectors [][]float32, meta []domain.ChunkMetadata) error
	Search(ctx context.Context, index string, queryVector []float32, limit int) ([]domain.RetrievedChunk, error)
}

// EventQueue transports normalized event envelopes between listeners and
// the orchestrator worker.
type EventQueue interface {
	PublishEvent(ctx context.Context, event domain.Event) error
	SubscribeEvents(ctx context.Context, handler func(context.Context, domain.Event) error) error
}

// WorkflowLauncher starts child workflow instances. The durable execution
// substrate sits behind this boundary; the in-process runtime is a
// stand-in with the same contract.
type WorkflowLauncher interface {
	LaunchDocumentPipeline(ctx context.Context, childID string, req domain.DocumentRequest) error
	LaunchGeneric(ctx context.Context, childID string, event domain.Event) error
	LaunchIncident(ctx context.Context, childID string, initialPrompt string) error
}

// Searcher runs the synchronous semantic search sub-process.
type Searcher interface {
	Search(ctx context.Context, query domain.SearchQuery) (domain.SearchResult, error)
}

// Acknowledger is the lightweight post-processing hook a session actor
// calls after every drained message.
type Acknowledger interface {
	Acknowledge(ctx context.Context, sessionID string, msg domain.ChatMessage) error
}

// RunRecorder persists pipeline run records for audit.
type RunRecorder interface {
	RecordRun(ctx context.Context, run domain.PipelineRun) error
}

// SessionRecorder persists session audit events.
type SessionRecorder interface {
	RecordSessionEvent(ctx context.Context, event domain.SessionEvent) error
}
