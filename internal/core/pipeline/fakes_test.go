package pipeline

import (
	"context"
	"errors"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
)

type fakeFileStorage struct {
	content []byte
	err     error
	calls   int
}

func (f *fakeFileStorage) ReadFile(ctx context.Context, path string) ([]byte, string, error) {
	f.calls++
	return f.content, "text/plain", f.err
}

type fakeObjectStorage struct {
	content     []byte
	contentType string
	err         error

	container string
	object    string
}

func (f *fakeObjectStorage) Fetch(ctx context.Context, container, object string) ([]byte, string, error) {
	f.container = container
	f.object = object
	return f.content, f.contentType, f.err
}

type fakeHTTPFetcher struct {
	content []byte
	err     error
	calls   int
}

func (f *fakeHTTPFetcher) Get(ctx context.Context, uri string) ([]byte, string, error) {
	f.calls++
	return f.content, "application/octet-stream", f.err
}

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) Extract(ctx context.Context, content []byte, contentType string) (string, string, error) {
	f.calls++
	return f.text, "plain_text", f.err
}

type fakeEmbedder struct {
	dims  int
	err   error
	calls int
	panic bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, chunks []string) ([][]float32, error) {
	f.calls++
	if f.panic {
		panic("embedder exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(chunks))
	for i := range vectors {
		vectors[i] = make([]float32, f.dims)
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, f.dims), nil
}

type fakeVectorStore struct {
	err   error
	calls int

	index string
	ids   []string
	meta  []domain.ChunkMetadata
}

func (f *fakeVectorStore) UpsertChunks(ctx context.Context, index string, ids, chunks []string, vectors [][]float32, meta []domain.ChunkMetadata) error {
	f.calls++
	f.index = index
	f.ids = append([]string(nil), ids...)
	f.meta = meta
	return f.err
}

func (f *fakeVectorStore) Search(ctx context.Context, index string, vector []float32, limit int) ([]domain.RetrievedChunk, error) {
	return nil, errors.New("not used")
}

type fakeRunRecorder struct {
	runs []domain.PipelineRun
	err  error
}

func (f *fakeRunRecorder) RecordRun(ctx context.Context, run domain.PipelineRun) error {
	f.runs = append(f.runs, run)
	return f.err
}

func newTestStages() (*Stages, *fakeFileStorage, *fakeHTTPFetcher, *fakeExtractor, *fakeEmbedder, *fakeVectorStore) {
	files := &fakeFileStorage{content: []byte("staged upload")}
	fetcher := &fakeHTTPFetcher{content: []byte("downloaded body")}
	extractor := &fakeExtractor{text: "extracted text for the test document"}
	embedder := &fakeEmbedder{dims: 4}
	vectors := &fakeVectorStore{}
	stages := &Stages{
		Files:     files,
		Objects:   &fakeObjectStorage{content: []byte("object body")},
		HTTP:      fetcher,
		Extractor: extractor,
		Embedder:  embedder,
		Vectors:   vectors,
	}
	return stages, files, fetcher, extractor, embedder, vectors
}
