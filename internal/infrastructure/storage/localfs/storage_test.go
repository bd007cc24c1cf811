package localfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "upload.txt")
	if err := os.WriteFile(path, []byte("staged content"), 0o644); err != nil {
		t.Fatal(err)
	}

	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	content, contentType, err := storage.ReadFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "staged content" {
		t.Fatalf("unexpected content %q", content)
	}
	if !strings.HasPrefix(contentType, "text/plain") {
		t.Fatalf("unexpected content type %q", contentType)
	}
}

func TestReadFileMissing(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := storage.ReadFile(context.Background(), "/does/not/exist.txt"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFetchContainerObject(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "reports", "2026"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "reports", "2026", "q3.txt"), []byte("quarterly"), 0o644); err != nil {
		t.Fatal(err)
	}

	storage, err := New(base)
	if err != nil {
		t.Fatal(err)
	}

	content, _, err := storage.Fetch(context.Background(), "reports", "2026/q3.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "quarterly" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestFetchRejectsTraversal(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := storage.Fetch(context.Background(), "reports", "../../etc/passwd"); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
}

func TestFetchRequiresContainerAndObject(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := storage.Fetch(context.Background(), "", "x"); err == nil {
		t.Fatal("expected error for empty container")
	}
	if _, _, err := storage.Fetch(context.Background(), "x", ""); err == nil {
		t.Fatal("expected error for empty object")
	}
}
