package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Extraction method names reported in stage metadata.
const (
	MethodPlainText = "plain_text"
	MethodPDF       = "pdf"
)

// Extractor pulls plain text out of downloaded document bytes, picking
// the strategy by content type: PDFs go through the PDF reader, anything
// else must be valid UTF-8.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, content []byte, contentType string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	if isPDF(content, contentType) {
		text, err := extractPDF(content)
		if err != nil {
			return "", "", fmt.Errorf("extract pdf text: %w", err)
		}
		return text, MethodPDF, nil
	}

	if !utf8.Valid(content) {
		return "", "", fmt.Errorf("unsupported binary format: %s", contentType)
	}
	return strings.TrimSpace(string(content)), MethodPlainText, nil
}

func isPDF(content []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	return bytes.HasPrefix(content, []byte("%PDF-"))
}

func extractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(&b, plain); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}
