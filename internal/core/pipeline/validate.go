package pipeline

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
)

// ValidateRequest checks a document request against the rule set of its
// source. All violated rules are collected; the result never reports just
// the first problem.
func ValidateRequest(req domain.DocumentRequest) domain.ValidationResult {
	var errs []string
	info := map[string]string{}

	if req.DocumentURI == "" {
		errs = append(errs, "document_uri is required")
	}
	if req.Source == "" {
		errs = append(errs, "source is required")
	}
	if req.EventType == "" {
		errs = append(errs, "event_type is required")
	}

	if req.DocumentURI != "" {
		errs = append(errs, validateURI(req, info)...)
	}
	errs = append(errs, validateSourceFields(req)...)

	if len(errs) > 0 {
		result := domain.ValidationResult{
			StageStatus: domain.StageFailed(strings.Join(errs, "; ")),
		}
		result.Errors = errs
		return result
	}

	return domain.ValidationResult{
		StageStatus:  domain.StageOK(),
		DocumentInfo: info,
	}
}

func validateURI(req domain.DocumentRequest, info map[string]string) []string {
	var errs []string

	switch req.Source {
	case domain.SourceChat:
		// Chat uploads are staged locally before processing.
		if !filepath.IsAbs(req.DocumentURI) {
			errs = append(errs, "chat upload URI must be an absolute path")
		}
		info["filename"] = filepath.Base(req.DocumentURI)

	case domain.SourceS3:
		parsed, err := url.Parse(req.DocumentURI)
		if err != nil {
			return []string{fmt.Sprintf("invalid URI format: %v", err)}
		}
		if parsed.Scheme != "s3" {
			errs = append(errs, "S3 URI must use s3:// scheme")
		}
		if parsed.Host == "" {
			errs = append(errs, "S3 URI must specify bucket")
		}
		key := strings.TrimPrefix(parsed.Path, "/")
		if key == "" {
			errs = append(errs, "S3 URI must specify key")
		}
		info["bucket"] = parsed.Host
		info["key"] = key

	case domain.SourceAzureBlob:
		parsed, err := url.Parse(req.DocumentURI)
		if err != nil {
			return []string{fmt.Sprintf("invalid URI format: %v", err)}
		}
		if parsed.Scheme != "https" {
			errs = append(errs, "Azure Blob URI must use https:// scheme")
		}
		if !strings.Contains(parsed.Host, "blob.core.windows.net") {
			errs = append(errs, "Azure Blob URI must use blob.core.windows.net domain")
		}
		info["blob_url"] = req.DocumentURI

	default:
		parsed, err := url.Parse(req.DocumentURI)
		if err != nil {
			return []string{fmt.Sprintf("invalid URI format: %v", err)}
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			errs = append(errs, fmt.Sprintf("%s URI must use http:// or https:// scheme", req.Source))
		}
		info["filename"] = path.Base(parsed.Path)
	}

	return errs
}

func validateSourceFields(req domain.DocumentRequest) []string {
	var errs []string

	switch req.Source {
	case domain.SourceS3:
		if req.Bucket == "" {
			errs = append(errs, "bucket is required for S3 source")
		}
		if req.Key == "" {
			errs = append(errs, "key is required for S3 source")
		}
	case domain.SourceAzureBlob:
		if req.Container == "" {
			errs = append(errs, "container is required for Azure Blob source")
		}
		if req.BlobName == "" {
			errs = append(errs, "blob_name is required for Azure Blob source")
		}
	}

	return errs
}
