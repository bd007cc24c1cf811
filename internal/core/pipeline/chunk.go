package pipeline

import (
	"github.com/akozyrev/event-orchestrator/internal/core/domain"
)

// Chunk splits extracted text into a sliding window of ChunkSize runes
// advancing by ChunkSize−ChunkOverlap, pairing every chunk with its full
// request provenance. A failed extraction short-circuits immediately.
func Chunk(extraction domain.ExtractionResult, req domain.DocumentRequest) domain.ChunkingResult {
	if !extraction.Success {
		return domain.ChunkingResult{
			StageStatus: domain.StageFailed("text extraction failed"),
		}
	}

	chunks := splitWindows(extraction.Text, req.ChunkSize, req.ChunkOverlap)

	meta := make([]domain.ChunkMetadata, 0, len(chunks))
	for i, chunk := range chunks {
		m := domain.ChunkMetadata{
			Index:          i,
			Size:           len(chunk),
			Source:         req.Source,
			DocumentURI:    req.DocumentURI,
			EventType:      req.EventType,
			Timestamp:      req.Timestamp,
			ChunkSizeCfg:   req.ChunkSize,
			ChunkOverlap:   req.ChunkOverlap,
			EmbeddingModel: req.EmbeddingModel,
		}
		if req.Source == domain.SourceChat {
			m.UserContext = req.AdditionalContext
		}
		meta = append(meta, m)
	}

	return domain.ChunkingResult{
		StageStatus: domain.StageOK(),
		Chunks:      chunks,
		Metadata:    meta,
	}
}

// splitWindows walks the text in rune windows of the configured size.
// The loop terminates explicitly once the unconsumed tail is smaller than
// the overlap, which also guards against overlap >= size never advancing.
func splitWindows(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 || size <= 0 {
		return nil
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))

		next := start + size - overlap
		if next <= start || next >= len(runes)-overlap {
			break
		}
		start = next
	}
	return out
}
