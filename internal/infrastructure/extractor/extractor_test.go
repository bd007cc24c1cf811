package extractor

import (
	"context"
	"strings"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	e := New()

	text, method, err := e.Extract(context.Background(), []byte("  hello world\n"), "text/plain; charset=utf-8")
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected text %q", text)
	}
	if method != MethodPlainText {
		t.Fatalf("unexpected method %q", method)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	e := New()

	_, _, err := e.Extract(context.Background(), []byte{0xff, 0xfe, 0x00, 0x81}, "application/octet-stream")
	if err == nil {
		t.Fatal("expected error for non-UTF-8 content")
	}
	if !strings.Contains(err.Error(), "unsupported binary format") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestExtractDetectsPDFByMagicBytes(t *testing.T) {
	e := New()

	// Truncated PDF header: routed to the PDF path, which then fails.
	_, _, err := e.Extract(context.Background(), []byte("%PDF-1.7 not a real pdf"), "text/plain")
	if err == nil {
		t.Fatal("expected pdf extraction failure for truncated content")
	}
	if !strings.Contains(err.Error(), "extract pdf text") {
		t.Fatalf("content was not routed to the pdf extractor: %v", err)
	}
}

func TestExtractCanceledContext(t *testing.T) {
	e := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := e.Extract(ctx, []byte("text"), "text/plain"); err == nil {
		t.Fatal("expected context error")
	}
}
