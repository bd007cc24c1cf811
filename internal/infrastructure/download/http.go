package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
)

// maxBodySize caps how much of a remote document is read. Oversized
// documents fail the download stage instead of exhausting the worker.
const maxBodySize = 64 << 20

// Fetcher downloads documents referenced by plain http(s) URIs, the
// default strategy for webhook and sharepoint sources.
type Fetcher struct {
	httpClient *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", domain.WrapError(domain.ErrTemporary, "document download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("download status %d for %s", resp.StatusCode, url)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, "", domain.WrapError(domain.ErrTemporary, "document download", err)
		}
		return nil, "", err
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read download body: %w", err)
	}
	if len(content) > maxBodySize {
		return nil, "", fmt.Errorf("document exceeds %d byte limit", maxBodySize)
	}
	return content, resp.Header.Get("Content-Type"), nil
}
