package domain

import "time"

// DocumentSource identifies where a document notification came from and
// therefore how the pipeline validates and fetches it.
type DocumentSource string

const (
	SourceChat       DocumentSource = "chat"
	SourceS3         DocumentSource = "s3"
	SourceAzureBlob  DocumentSource = "azure-blob"
	SourceWebhook    DocumentSource = "webhook"
	SourceSharePoint DocumentSource = "sharepoint"
)

const (
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultIndexName      = "default-documents"
)

// DocumentRequest is the typed input of one pipeline run. It is built once
// at the boundary and threaded through every stage unchanged.
type DocumentRequest struct {
	DocumentURI string         `json:"document_uri"`
	Source      DocumentSource `json:"source"`
	EventType   string         `json:"event_type"`

	Bucket      string    `json:"bucket,omitempty"`
	Key         string    `json:"key,omitempty"`
	Container   string    `json:"container,omitempty"`
	BlobName    string    `json:"blob_name,omitempty"`
	Size        int64     `json:"size,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`

	ChunkSize      int    `json:"chunk_size"`
	ChunkOverlap   int    `json:"chunk_overlap"`
	EmbeddingModel string `json:"embedding_model"`
	IndexName      string `json:"index_name,omitempty"`

	AdditionalContext map[string]any `json:"additional_context,omitempty"`
}

// ApplyDefaults fills in the processing configuration a caller left unset.
func (r *DocumentRequest) ApplyDefaults() {
	if r.ChunkSize <= 0 {
		r.ChunkSize = DefaultChunkSize
	}
	if r.ChunkOverlap <= 0 {
		r.ChunkOverlap = DefaultChunkOverlap
	}
	if r.EmbeddingModel == "" {
		r.EmbeddingModel = DefaultEmbeddingModel
	}
}

// StageStatus tags a stage result as success or failure. On failure Error
// carries the human-readable reason and all payload fields hold neutral
// zero values, never partial data.
type StageStatus struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func StageOK() StageStatus {
	return StageStatus{Success: true}
}

func StageFailed(reason string) StageStatus {
	return StageStatus{Success: false, Error: reason}
}

// ValidationResult is the outcome of the validate stage.
type ValidationResult struct {
	StageStatus
	Errors       []string          `json:"errors,omitempty"`
	DocumentInfo map[string]string `json:"document_info,omitempty"`
}

// DownloadResult is the outcome of the download stage.
type DownloadResult struct {
	StageStatus
	Content     []byte `json:"-"`
	ContentType string `json:"content_type,omitempty"`
	Size        int    `json:"size"`
}

// ExtractionMetadata describes how text was pulled out of a document.
type ExtractionMetadata struct {
	Method       string `json:"method"`
	ContentType  string `json:"content_type"`
	OriginalSize int    `json:"original_size"`
	TextLength   int    `json:"text_length"`
}

// ExtractionResult is the outcome of the extract stage.
type ExtractionResult struct {
	StageStatus
	Text     string             `json:"text,omitempty"`
	Metadata ExtractionMetadata `json:"metadata"`
}

// ChunkMetadata carries the full provenance of one chunk.
type ChunkMetadata struct {
	Index          int            `json:"chunk_index"`
	Size           int            `json:"chunk_size"`
	Source         DocumentSource `json:"source"`
	DocumentURI    string         `json:"document_uri"`
	EventType      string         `json:"event_type"`
	Timestamp      time.Time      `json:"timestamp"`
	ChunkSizeCfg   int            `json:"chunk_size_cfg"`
	ChunkOverlap   int            `json:"chunk_overlap"`
	EmbeddingModel string         `json:"embedding_model"`
	// UserContext is populated only for chat-sourced documents.
	UserContext map[string]any `json:"user_context,omitempty"`
}

// ChunkingResult is the outcome of the chunk stage.
type ChunkingResult struct {
	StageStatus
	Chunks   []string        `json:"chunks,omitempty"`
	Metadata []ChunkMetadata `json:"chunk_metadata,omitempty"`
}

// EmbeddingResult is the outcome of the embed stage.
type EmbeddingResult struct {
	StageStatus
	Vectors    [][]float32 `json:"-"`
	Model      string      `json:"model,omitempty"`
	Dimensions int         `json:"dimensions"`
}

// StorageStats aggregates what one pipeline run persisted.
type StorageStats struct {
	TotalChunks         int     `json:"total_chunks"`
	TotalCharacters     int     `json:"total_characters"`
	EmbeddingDimensions int     `json:"embedding_dimensions"`
	AverageChunkSize    float64 `json:"average_chunk_size"`
}

// StorageResult is the outcome of the store stage. StoredIDs are always
// freshly minted; re-running store on identical input yields new ids but
// identical Stats.
type StorageResult struct {
	StageStatus
	StoredIDs []string     `json:"stored_ids,omitempty"`
	Stats     StorageStats `json:"storage_stats"`
	IndexName string       `json:"index_name,omitempty"`
}

// StageName names a pipeline stage in results and metrics.
type StageName string

const (
	StageValidate StageName = "validation"
	StageDownload StageName = "download"
	StageExtract  StageName = "text_extraction"
	StageChunk    StageName = "chunking"
	StageEmbed    StageName = "embedding"
	StageStore    StageName = "storage"
	// StageExecution tags failures raised by the executor itself rather
	// than by a stage, e.g. a recovered panic.
	StageExecution StageName = "workflow_execution"
)

// PipelineSummary reports what a fully successful run produced.
type PipelineSummary struct {
	ContentSize     int          `json:"content_size"`
	ContentType     string       `json:"content_type"`
	TextLength      int          `json:"text_length"`
	ChunkCount      int          `json:"chunks_created"`
	EmbeddingCount  int          `json:"embeddings_generated"`
	StoredCount     int          `json:"chunks_stored"`
	Stats           StorageStats `json:"storage_stats"`
	IndexName       string       `json:"index_name"`
}

// PipelineResult is the structured outcome of one pipeline run. The
// executor always returns one of these; it never raises.
type PipelineResult struct {
	Success     bool           `json:"success"`
	FailedStage StageName      `json:"step,omitempty"`
	Error       string         `json:"error,omitempty"`
	DocumentURI string         `json:"document_uri"`
	Source      DocumentSource `json:"source"`
	EventType   string         `json:"event_type,omitempty"`

	Summary     *PipelineSummary `json:"processing_summary,omitempty"`
	StoredIDs   []string         `json:"stored_ids,omitempty"`
	UserContext map[string]any   `json:"user_context,omitempty"`
}
