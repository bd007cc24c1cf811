package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
	"github.com/akozyrev/event-orchestrator/internal/core/ports"
)

// Per-stage deadlines grow with expected I/O cost.
const (
	downloadTimeout = 10 * time.Minute
	extractTimeout  = 5 * time.Minute
	embedTimeout    = 10 * time.Minute
	storeTimeout    = 10 * time.Minute
)

// Executor runs the six ingestion stages strictly in order, stopping at
// the first failure. It always returns a structured result: recovered
// panics become a workflow_execution failure instead of crashing the run.
type Executor struct {
	stages   *Stages
	recorder ports.RunRecorder
	logger   *slog.Logger
}

func NewExecutor(stages *Stages, recorder ports.RunRecorder, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		stages:   stages,
		recorder: recorder,
		logger:   logger.With("component", "pipeline"),
	}
}

func (e *Executor) Run(ctx context.Context, req domain.DocumentRequest) (result domain.PipelineResult) {
	started := time.Now().UTC()
	req.ApplyDefaults()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("pipeline panic recovered", "document_uri", req.DocumentURI, "panic", fmt.Sprint(r))
			result = e.failure(req, domain.StageExecution, fmt.Sprintf("unexpected failure: %v", r))
		}
		e.record(ctx, req, result, started)
	}()

	e.logger.Info("pipeline started", "document_uri", req.DocumentURI, "source", req.Source, "event_type", req.EventType)

	validation := ValidateRequest(req)
	if !validation.Success {
		return e.failure(req, domain.StageValidate, validation.Error)
	}

	downloadCtx, cancelDownload := context.WithTimeout(ctx, downloadTimeout)
	download := e.stages.Download(downloadCtx, req)
	cancelDownload()
	if !download.Success {
		return e.failure(req, domain.StageDownload, download.Error)
	}
	e.logger.Info("document downloaded", "document_uri", req.DocumentURI, "bytes", download.Size)

	extractCtx, cancelExtract := context.WithTimeout(ctx, extractTimeout)
	extraction := e.stages.Extract(extractCtx, download, req)
	cancelExtract()
	if !extraction.Success {
		return e.failure(req, domain.StageExtract, extraction.Error)
	}

	chunking := Chunk(extraction, req)
	if !chunking.Success {
		return e.failure(req, domain.StageChunk, chunking.Error)
	}
	e.logger.Info("text chunked", "document_uri", req.DocumentURI, "chunks", len(chunking.Chunks))

	embedCtx, cancelEmbed := context.WithTimeout(ctx, embedTimeout)
	embedding := e.stages.Embed(embedCtx, chunking, req)
	cancelEmbed()
	if !embedding.Success {
		return e.failure(req, domain.StageEmbed, embedding.Error)
	}

	storeCtx, cancelStore := context.WithTimeout(ctx, storeTimeout)
	storage := e.stages.Store(storeCtx, chunking, embedding, req)
	cancelStore()
	if !storage.Success {
		return e.failure(req, domain.StageStore, storage.Error)
	}
	e.logger.Info("chunks stored", "document_uri", req.DocumentURI, "stored", len(storage.StoredIDs), "index", storage.IndexName)

	result = domain.PipelineResult{
		Success:     true,
		DocumentURI: req.DocumentURI,
		Source:      req.Source,
		EventType:   req.EventType,
		Summary: &domain.PipelineSummary{
			ContentSize:    download.Size,
			ContentType:    download.ContentType,
			TextLength:     extraction.Metadata.TextLength,
			ChunkCount:     len(chunking.Chunks),
			EmbeddingCount: len(embedding.Vectors),
			StoredCount:    len(storage.StoredIDs),
			Stats:          storage.Stats,
			IndexName:      storage.IndexName,
		},
		StoredIDs: storage.StoredIDs,
	}
	if req.Source == domain.SourceChat {
		result.UserContext = req.AdditionalContext
	}
	return result
}

func (e *Executor) failure(req domain.DocumentRequest, stage domain.StageName, reason string) domain.PipelineResult {
	e.logger.Error("pipeline stage failed", "document_uri", req.DocumentURI, "stage", string(stage), "error", reason)
	return domain.PipelineResult{
		Success:     false,
		FailedStage: stage,
		Error:       reason,
		DocumentURI: req.DocumentURI,
		Source:      req.Source,
		EventType:   req.EventType,
	}
}

func (e *Executor) record(ctx context.Context, req domain.DocumentRequest, result domain.PipelineResult, started time.Time) {
	if e.recorder == nil {
		return
	}
	run := domain.PipelineRun{
		ID:          uuid.NewString(),
		DocumentURI: req.DocumentURI,
		Source:      req.Source,
		EventType:   req.EventType,
		Success:     result.Success,
		FailedStage: result.FailedStage,
		Error:       result.Error,
		StartedAt:   started,
		FinishedAt:  time.Now().UTC(),
	}
	if result.Summary != nil {
		run.ChunkCount = result.Summary.ChunkCount
	}
	if err := e.recorder.RecordRun(ctx, run); err != nil {
		e.logger.Warn("record pipeline run failed", "document_uri", req.DocumentURI, "error", err)
	}
}
