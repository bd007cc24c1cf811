package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
)

func successfulChunking(chunks ...string) domain.ChunkingResult {
	meta := make([]domain.ChunkMetadata, len(chunks))
	for i := range meta {
		meta[i] = domain.ChunkMetadata{Index: i, Size: len(chunks[i])}
	}
	return domain.ChunkingResult{StageStatus: domain.StageOK(), Chunks: chunks, Metadata: meta}
}

func successfulEmbedding(count, dims int) domain.EmbeddingResult {
	vectors := make([][]float32, count)
	for i := range vectors {
		vectors[i] = make([]float32, dims)
	}
	return domain.EmbeddingResult{StageStatus: domain.StageOK(), Vectors: vectors, Dimensions: dims}
}

func TestStoreRequiresBothPriorStages(t *testing.T) {
	stages, _, _, _, _, vectors := newTestStages()
	req := domain.DocumentRequest{Source: domain.SourceS3, EventType: "document-added"}

	result := stages.Store(context.Background(), domain.ChunkingResult{StageStatus: domain.StageFailed("x")}, successfulEmbedding(1, 4), req)
	if result.Success {
		t.Fatal("expected failure when chunking failed")
	}
	if result.Error != "previous processing steps failed" {
		t.Fatalf("unexpected error %q", result.Error)
	}
	if vectors.calls != 0 {
		t.Fatal("vector store must not be touched on guard failure")
	}
}

func TestStoreMintsFreshIDsWithStableStats(t *testing.T) {
	stages, _, _, _, _, vectors := newTestStages()
	req := domain.DocumentRequest{Source: domain.SourceS3, EventType: "document-added"}
	chunking := successfulChunking("alpha", "bravo charlie", "delta")
	embedding := successfulEmbedding(3, 4)

	first := stages.Store(context.Background(), chunking, embedding, req)
	second := stages.Store(context.Background(), chunking, embedding, req)

	if !first.Success || !second.Success {
		t.Fatalf("unexpected failure: %q / %q", first.Error, second.Error)
	}
	if first.Stats != second.Stats {
		t.Fatalf("stats differ between identical runs: %+v vs %+v", first.Stats, second.Stats)
	}
	for i := range first.StoredIDs {
		if first.StoredIDs[i] == second.StoredIDs[i] {
			t.Fatalf("id %d reused across runs: %s", i, first.StoredIDs[i])
		}
	}
	if vectors.index != domain.DefaultIndexName {
		t.Fatalf("expected default index, got %q", vectors.index)
	}
}

func TestStoreChunkIDFormat(t *testing.T) {
	stages, _, _, _, _, _ := newTestStages()
	req := domain.DocumentRequest{Source: domain.SourceS3, EventType: "document-added"}

	result := stages.Store(context.Background(), successfulChunking("one", "two"), successfulEmbedding(2, 4), req)

	if !result.Success {
		t.Fatalf("unexpected failure: %s", result.Error)
	}
	for i, id := range result.StoredIDs {
		parts := strings.Split(id, "_")
		if len(parts) != 4 {
			t.Fatalf("id %q does not have 4 segments", id)
		}
		if parts[0] != "s3" || parts[1] != "document-added" {
			t.Fatalf("id %q lost source/event provenance", id)
		}
		if len(parts[2]) != 8 {
			t.Fatalf("id %q random segment is not 8 chars", id)
		}
		if parts[3] != []string{"0", "1"}[i] {
			t.Fatalf("id %q carries wrong index", id)
		}
	}
}

func TestStoreStats(t *testing.T) {
	stats := computeStats([]string{"aaaa", "bbbbbb"}, 1536)

	if stats.TotalChunks != 2 || stats.TotalCharacters != 10 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	if stats.EmbeddingDimensions != 1536 {
		t.Fatalf("unexpected dimensions %d", stats.EmbeddingDimensions)
	}
	if stats.AverageChunkSize != 5.0 {
		t.Fatalf("unexpected average %f", stats.AverageChunkSize)
	}
}

func TestStoreCountMismatch(t *testing.T) {
	stages, _, _, _, _, vectors := newTestStages()
	req := domain.DocumentRequest{Source: domain.SourceS3, EventType: "document-added"}

	result := stages.Store(context.Background(), successfulChunking("one", "two"), successfulEmbedding(1, 4), req)

	if result.Success {
		t.Fatal("expected failure on chunk/vector count mismatch")
	}
	if vectors.calls != 0 {
		t.Fatal("vector store must not be touched on mismatch")
	}
}
