package pipeline

import (
	"context"
	"fmt"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
	"github.com/akozyrev/event-orchestrator/internal/core/ports"
)

// Stages bundles the external collaborators the ingestion stages call.
// Each stage is deterministic given identical input and collaborator
// behavior; failures come back as structured results, never as panics.
type Stages struct {
	Files     ports.FileStorage
	Objects   ports.ObjectStorage
	HTTP      ports.HTTPFetcher
	Extractor ports.TextExtractor
	Embedder  ports.Embedder
	Vectors   ports.VectorStore
}

// Download fetches the document bytes using a strategy selected purely by
// the request source: chat reads a staged local file, s3/azure-blob fetch
// from object storage, everything else does a plain HTTP GET.
func (s *Stages) Download(ctx context.Context, req domain.DocumentRequest) domain.DownloadResult {
	var (
		content     []byte
		contentType string
		err         error
	)

	switch req.Source {
	case domain.SourceChat:
		content, contentType, err = s.Files.ReadFile(ctx, req.DocumentURI)
	case domain.SourceS3:
		content, contentType, err = s.Objects.Fetch(ctx, req.Bucket, req.Key)
	case domain.SourceAzureBlob:
		content, contentType, err = s.Objects.Fetch(ctx, req.Container, req.BlobName)
	default:
		content, contentType, err = s.HTTP.Get(ctx, req.DocumentURI)
	}

	if err != nil {
		return domain.DownloadResult{
			StageStatus: domain.StageFailed(fmt.Sprintf("download from %s failed: %v", req.Source, err)),
		}
	}
	if contentType == "" {
		contentType = req.ContentType
	}

	return domain.DownloadResult{
		StageStatus: domain.StageOK(),
		Content:     content,
		ContentType: contentType,
		Size:        len(content),
	}
}

// Extract turns downloaded bytes into plain text via the pluggable
// extraction function. A failed download short-circuits immediately.
func (s *Stages) Extract(ctx context.Context, download domain.DownloadResult, req domain.DocumentRequest) domain.ExtractionResult {
	if !download.Success {
		return domain.ExtractionResult{
			StageStatus: domain.StageFailed("document download failed"),
		}
	}

	text, method, err := s.Extractor.Extract(ctx, download.Content, download.ContentType)
	if err != nil {
		return domain.ExtractionResult{
			StageStatus: domain.StageFailed(fmt.Sprintf("text extraction failed: %v", err)),
		}
	}

	return domain.ExtractionResult{
		StageStatus: domain.StageOK(),
		Text:        text,
		Metadata: domain.ExtractionMetadata{
			Method:       method,
			ContentType:  download.ContentType,
			OriginalSize: download.Size,
			TextLength:   len(text),
		},
	}
}

// Embed produces one fixed-dimension vector per chunk via the external
// embedding function.
func (s *Stages) Embed(ctx context.Context, chunking domain.ChunkingResult, req domain.DocumentRequest) domain.EmbeddingResult {
	if !chunking.Success {
		return domain.EmbeddingResult{
			StageStatus: domain.StageFailed("text chunking failed"),
		}
	}

	vectors, err := s.Embedder.Embed(ctx, chunking.Chunks)
	if err != nil {
		return domain.EmbeddingResult{
			StageStatus: domain.StageFailed(fmt.Sprintf("embedding generation failed: %v", err)),
		}
	}
	if len(vectors) != len(chunking.Chunks) {
		return domain.EmbeddingResult{
			StageStatus: domain.StageFailed(fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(chunking.Chunks))),
		}
	}

	dimensions := 0
	if len(vectors) > 0 {
		dimensions = len(vectors[0])
	}

	return domain.EmbeddingResult{
		StageStatus: domain.StageOK(),
		Vectors:     vectors,
		Model:       req.EmbeddingModel,
		Dimensions:  dimensions,
	}
}
