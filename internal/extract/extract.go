// Package extract turns a Drive file into plain text for chunking.
//
// Dispatch is by MIME type: Google Workspace documents and presentations are
// exported as text/plain, spreadsheets as CSV, text-like files are downloaded
// verbatim, and everything else is skipped. A skip is an intentional outcome,
// not an error; the pipeline records it and moves on.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/docsage/docsage/internal/source"
)

// Fetcher is the subset of the Drive client the extractor needs.
type Fetcher interface {
	Export(ctx context.Context, fileID, exportMime string) (string, error)
	Download(ctx context.Context, fileID string) (string, error)
}

// Extractor dispatches content retrieval by MIME type.
type Extractor struct {
	fetcher Fetcher
}

// New creates an Extractor backed by the given fetcher.
func New(fetcher Fetcher) *Extractor {
	return &Extractor{fetcher: fetcher}
}

// Text returns the plain-text content of a file. The boolean reports whether
// the MIME type is supported; unsupported types return ("", false, nil) so the
// caller can skip the document without treating it as a failure.
func (e *Extractor) Text(ctx context.Context, fileID, mimeType string) (string, bool, error) {
	switch {
	case mimeType == source.MimeTypeGoogleDoc, mimeType == source.MimeTypeGoogleSlides:
		text, err := e.fetcher.Export(ctx, fileID, source.ExportMimeText)
		if err != nil {
			return "", true, fmt.Errorf("exporting %s: %w", fileID, err)
		}
		return text, true, nil

	case mimeType == source.MimeTypeGoogleSheet:
		text, err := e.fetcher.Export(ctx, fileID, source.ExportMimeCSV)
		if err != nil {
			return "", true, fmt.Errorf("exporting %s: %w", fileID, err)
		}
		return text, true, nil

	case isTextLike(mimeType):
		text, err := e.fetcher.Download(ctx, fileID)
		if err != nil {
			return "", true, fmt.Errorf("downloading %s: %w", fileID, err)
		}
		return text, true, nil

	default:
		return "", false, nil
	}
}

// isTextLike reports whether a MIME type carries text content that can be
// indexed without conversion.
func isTextLike(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}

	switch mimeType {
	case "application/json",
		"application/xml",
		"application/javascript",
		"application/x-yaml",
		"application/x-sh",
		"application/sql":
		return true
	}
	return false
}
