package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
)

// Store persists every (chunk, vector) pair under a freshly minted id and
// reports aggregate statistics. Ids are never reused: re-running store on
// identical input mints a new id set but identical stats.
func (s *Stages) Store(ctx context.Context, chunking domain.ChunkingResult, embedding domain.EmbeddingResult, req domain.DocumentRequest) domain.StorageResult {
	if !chunking.Success || !embedding.Success {
		return domain.StorageResult{
			StageStatus: domain.StageFailed("previous processing steps failed"),
		}
	}
	if len(embedding.Vectors) != len(chunking.Chunks) {
		return domain.StorageResult{
			StageStatus: domain.StageFailed(fmt.Sprintf("chunk/vector count mismatch: %d/%d", len(chunking.Chunks), len(embedding.Vectors))),
		}
	}

	indexName := req.IndexName
	if indexName == "" {
		indexName = domain.DefaultIndexName
	}

	ids := make([]string, 0, len(chunking.Chunks))
	for i := range chunking.Chunks {
		ids = append(ids, mintChunkID(req, i))
	}

	if err := s.Vectors.UpsertChunks(ctx, indexName, ids, chunking.Chunks, embedding.Vectors, chunking.Metadata); err != nil {
		return domain.StorageResult{
			StageStatus: domain.StageFailed(fmt.Sprintf("chunk storage failed: %v", err)),
		}
	}

	return domain.StorageResult{
		StageStatus: domain.StageOK(),
		StoredIDs:   ids,
		Stats:       computeStats(chunking.Chunks, embedding.Dimensions),
		IndexName:   indexName,
	}
}

func mintChunkID(req domain.DocumentRequest, index int) string {
	fresh := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s_%d", req.Source, req.EventType, fresh, index)
}

func computeStats(chunks []string, dimensions int) domain.StorageStats {
	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	avg := 0.0
	if len(chunks) > 0 {
		avg = float64(total) / float64(len(chunks))
	}
	return domain.StorageStats{
		TotalChunks:         len(chunks),
		TotalCharacters:     total,
		EmbeddingDimensions: dimensions,
		AverageChunkSize:    avg,
	}
}
