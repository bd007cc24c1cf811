package localfs

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Storage serves documents from the local filesystem. It backs two
// pipeline sources: chat uploads staged under absolute paths, and a
// container/object layout standing in for cloud object stores in
// single-node deployments.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

// ReadFile reads a staged chat upload. The path is absolute and comes
// from the validated document request.
func (s *Storage) ReadFile(_ context.Context, path string) ([]byte, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read staged file: %w", err)
	}
	return content, detectContentType(path, content), nil
}

// Fetch reads basePath/<container>/<object>. Traversal outside the
// container is rejected.
func (s *Storage) Fetch(_ context.Context, container, object string) ([]byte, string, error) {
	if container == "" || object == "" {
		return nil, "", fmt.Errorf("container and object are required")
	}
	path := filepath.Join(s.basePath, container, filepath.FromSlash(object))
	root := filepath.Join(s.basePath, container) + string(filepath.Separator)
	if !strings.HasPrefix(path, root) {
		return nil, "", fmt.Errorf("object %q escapes container %q", object, container)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("fetch object %s/%s: %w", container, object, err)
	}
	return content, detectContentType(object, content), nil
}

func detectContentType(name string, content []byte) string {
	if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
		return byExt
	}
	return http.DetectContentType(content)
}
