package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
)

func validS3Request() domain.DocumentRequest {
	return domain.DocumentRequest{
		DocumentURI: "s3://reports/2026/q3.pdf",
		Source:      domain.SourceS3,
		EventType:   "document-added",
		Bucket:      "reports",
		Key:         "2026/q3.pdf",
	}
}

func TestExecutorHappyPath(t *testing.T) {
	stages, _, _, _, _, vectors := newTestStages()
	recorder := &fakeRunRecorder{}
	exec := NewExecutor(stages, recorder, nil)

	result := exec.Run(context.Background(), validS3Request())

	if !result.Success {
		t.Fatalf("unexpected failure at %s: %s", result.FailedStage, result.Error)
	}
	if result.Summary == nil {
		t.Fatal("expected a summary on success")
	}
	if result.Summary.ChunkCount != 1 || result.Summary.StoredCount != 1 {
		t.Fatalf("unexpected summary %+v", result.Summary)
	}
	if vectors.calls != 1 {
		t.Fatalf("expected a single upsert, got %d", vectors.calls)
	}
	if len(recorder.runs) != 1 || !recorder.runs[0].Success {
		t.Fatalf("expected one successful run record, got %+v", recorder.runs)
	}
}

func TestExecutorShortCircuitsOnDownloadFailure(t *testing.T) {
	stages, _, _, extractor, embedder, vectors := newTestStages()
	failing := &fakeObjectStorage{err: errors.New("bucket unreachable")}
	stages.Objects = failing
	exec := NewExecutor(stages, nil, nil)

	result := exec.Run(context.Background(), validS3Request())

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.FailedStage != domain.StageDownload {
		t.Fatalf("expected failed stage %q, got %q", domain.StageDownload, result.FailedStage)
	}
	if extractor.calls != 0 || embedder.calls != 0 || vectors.calls != 0 {
		t.Fatal("later stages must not run after a download failure")
	}
	if result.Summary != nil {
		t.Fatal("failed result must not carry a summary")
	}
}

func TestExecutorInvalidRequestNeverDownloads(t *testing.T) {
	stages, files, fetcher, _, _, _ := newTestStages()
	exec := NewExecutor(stages, nil, nil)

	result := exec.Run(context.Background(), domain.DocumentRequest{Source: domain.SourceChat})

	if result.Success {
		t.Fatal("expected validation failure")
	}
	if result.FailedStage != domain.StageValidate {
		t.Fatalf("expected failed stage %q, got %q", domain.StageValidate, result.FailedStage)
	}
	if files.calls != 0 || fetcher.calls != 0 {
		t.Fatal("download must not run for an invalid request")
	}
}

func TestExecutorRecoversPanicAsExecutionFailure(t *testing.T) {
	stages, _, _, _, embedder, _ := newTestStages()
	embedder.panic = true
	recorder := &fakeRunRecorder{}
	exec := NewExecutor(stages, recorder, nil)

	result := exec.Run(context.Background(), validS3Request())

	if result.Success {
		t.Fatal("expected failure from recovered panic")
	}
	if result.FailedStage != domain.StageExecution {
		t.Fatalf("expected failed stage %q, got %q", domain.StageExecution, result.FailedStage)
	}
	if len(recorder.runs) != 1 || recorder.runs[0].Success {
		t.Fatalf("expected one failed run record, got %+v", recorder.runs)
	}
	if recorder.runs[0].FailedStage != domain.StageExecution {
		t.Fatalf("run record carries stage %q", recorder.runs[0].FailedStage)
	}
}

func TestExecutorRecorderFailureDoesNotAffectResult(t *testing.T) {
	stages, _, _, _, _, _ := newTestStages()
	recorder := &fakeRunRecorder{err: errors.New("db down")}
	exec := NewExecutor(stages, recorder, nil)

	result := exec.Run(context.Background(), validS3Request())

	if !result.Success {
		t.Fatalf("recorder failure leaked into pipeline result: %s", result.Error)
	}
}

func TestExecutorAppliesDefaults(t *testing.T) {
	stages, _, _, _, _, vectors := newTestStages()
	exec := NewExecutor(stages, nil, nil)
	req := validS3Request()

	result := exec.Run(context.Background(), req)

	if !result.Success {
		t.Fatalf("unexpected failure: %s", result.Error)
	}
	if len(vectors.meta) == 0 {
		t.Fatal("expected chunk metadata")
	}
	if vectors.meta[0].ChunkSizeCfg != domain.DefaultChunkSize || vectors.meta[0].ChunkOverlap != domain.DefaultChunkOverlap {
		t.Fatalf("defaults not applied: %+v", vectors.meta[0])
	}
	if vectors.meta[0].EmbeddingModel != domain.DefaultEmbeddingModel {
		t.Fatalf("default model not applied: %+v", vectors.meta[0])
	}
}
