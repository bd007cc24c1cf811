package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
)

func TestUpsertChunksEnsuresCollectionOncePerIndex(t *testing.T) {
	var ensureCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL)
	ids := []string{"s3_document-added_aaaa1111_0", "s3_document-added_aaaa1111_1"}
	chunks := []string{"a", "b"}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}
	meta := []domain.ChunkMetadata{{Index: 0}, {Index: 1}}

	if err := client.UpsertChunks(context.Background(), "docs", ids, chunks, vectors, meta); err != nil {
		t.Fatalf("first UpsertChunks() error = %v", err)
	}
	if err := client.UpsertChunks(context.Background(), "docs", ids, chunks, vectors, meta); err != nil {
		t.Fatalf("second UpsertChunks() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
}

func TestUpsertChunksCarriesProvenancePayload(t *testing.T) {
	var captured struct {
		Points []struct {
			ID      string         `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Errorf("decode upsert body: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL)
	meta := []domain.ChunkMetadata{{
		Index:          0,
		Source:         domain.SourceS3,
		DocumentURI:    "s3://reports/q3.pdf",
		EventType:      "document-added",
		EmbeddingModel: "text-embedding-3-small",
	}}
	err := client.UpsertChunks(context.Background(), "docs",
		[]string{"s3_document-added_aaaa1111_0"}, []string{"chunk text"}, [][]float32{{0.1}}, meta)
	if err != nil {
		t.Fatal(err)
	}

	if len(captured.Points) != 1 {
		t.Fatalf("expected one point, got %d", len(captured.Points))
	}
	p := captured.Points[0]
	if p.Payload["document_uri"] != "s3://reports/q3.pdf" || p.Payload["source"] != "s3" {
		t.Fatalf("payload lost provenance: %+v", p.Payload)
	}
	if p.Payload["chunk_id"] != "s3_document-added_aaaa1111_0" {
		t.Fatalf("payload lost chunk id: %+v", p.Payload)
	}
	// Point ids must be deterministic UUIDs derived from the chunk id.
	if p.ID != pointID("s3_document-added_aaaa1111_0") {
		t.Fatalf("unexpected point id %q", p.ID)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/docs" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL)
	err := client.UpsertChunks(context.Background(), "docs",
		[]string{"id-0"}, []string{"a"}, [][]float32{{0.1, 0.2}}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestSearchDecodesChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/collections/docs/points/search" {
			_, _ = w.Write([]byte(`{"result":[
				{"score":0.97,"payload":{"document_uri":"s3://reports/q3.pdf","chunk_index":2,"text":"relevant text"}}
			]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL)
	chunks, err := client.Search(context.Background(), "docs", []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.DocumentURI != "s3://reports/q3.pdf" || c.ChunkIndex != 2 || c.Text != "relevant text" || c.Score != 0.97 {
		t.Fatalf("unexpected chunk %+v", c)
	}
}

func TestUpsertChunksEmptyInputIsNoop(t *testing.T) {
	client := New("http://unreachable.invalid")
	if err := client.UpsertChunks(context.Background(), "docs", nil, nil, nil, nil); err != nil {
		t.Fatalf("empty upsert must not call the server: %v", err)
	}
}
