package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
	"github.com/akozyrev/event-orchestrator/internal/core/ports"
)

// DefaultLimit caps how many chunks one query retrieves.
const DefaultLimit = 5

// Service runs the synchronous semantic search sub-process: embed the
// query, retrieve the nearest chunks, format a response. Failures come
// back inside the result, never as an error, so a failed search cannot
// take down the calling session.
type Service struct {
	embedder ports.Embedder
	vectors  ports.VectorStore
	index    string
	limit    int
	logger   *slog.Logger
}

func NewService(embedder ports.Embedder, vectors ports.VectorStore, index string, limit int, logger *slog.Logger) *Service {
	if index == "" {
		index = domain.DefaultIndexName
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		embedder: embedder,
		vectors:  vectors,
		index:    index,
		limit:    limit,
		logger:   logger.With("component", "search"),
	}
}

func (s *Service) Search(ctx context.Context, query domain.SearchQuery) (domain.SearchResult, error) {
	s.logger.Info("search started", "session_id", query.SessionID, "message_id", query.MessageID)

	vector, err := s.embedder.EmbedQuery(ctx, query.Query)
	if err != nil {
		s.logger.Error("query embedding failed", "message_id", query.MessageID, "error", err)
		return domain.SearchResult{Error: fmt.Sprintf("query embedding failed: %v", err)}, nil
	}

	chunks, err := s.vectors.Search(ctx, s.index, vector, s.limit)
	if err != nil {
		s.logger.Error("chunk retrieval failed", "message_id", query.MessageID, "error", err)
		return domain.SearchResult{Error: fmt.Sprintf("chunk retrieval failed: %v", err)}, nil
	}

	s.logger.Info("search completed", "message_id", query.MessageID, "chunks", len(chunks))
	return domain.SearchResult{
		Success:  true,
		Response: formatResponse(chunks),
		Chunks:   chunks,
	}, nil
}

func formatResponse(chunks []domain.RetrievedChunk) string {
	if len(chunks) == 0 {
		return "No relevant documents found for your query."
	}
	var b strings.Builder
	b.WriteString("Here are the most relevant results for your query:\n")
	for i, chunk := range chunks {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s (score: %.2f)", chunk.Text, chunk.Score)
	}
	return b.String()
}
