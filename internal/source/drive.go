// Package source fetches document metadata and content from Google Drive.
//
// The ingestion pipeline only learns a file's identity from a change
// notification; everything else (name, MIME type, trashed state, content)
// comes from the Drive API via this package.
package source

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Google Workspace MIME types that require export instead of download.
const (
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
)

// Export formats for Google Workspace files.
const (
	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
)

// MaxContentSize caps downloaded or exported content at 5MB.
const MaxContentSize = 5 * 1024 * 1024

// metadataFields lists the file attributes fetched per lookup.
const metadataFields = "id, name, mimeType, modifiedTime, trashed, parents, appProperties"

// Metadata describes a Drive file as seen at lookup time.
type Metadata struct {
	ID           string
	Name         string
	MimeType     string
	ModifiedTime time.Time
	Trashed      bool
	FolderPath   string
	Tags         []string
}

// Client wraps the Drive v3 API for metadata lookup and content retrieval.
type Client struct {
	svc *drive.Service
}

// NewClient creates a Drive client. With an empty credentialsFile the client
// authenticates via Application Default Credentials.
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	opts := []option.ClientOption{option.WithScopes(drive.DriveReadonlyScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// NewClientWithService wraps an existing Drive service. Used in tests with a
// service pointed at a local HTTP stub.
func NewClientWithService(svc *drive.Service) *Client {
	return &Client{svc: svc}
}

// Metadata fetches file attributes by ID. The folder path is resolved from
// the first parent only; Drive allows multiple parents but a single path is
// enough for source attribution.
func (c *Client) Metadata(ctx context.Context, fileID string) (*Metadata, error) {
	file, err := c.svc.Files.Get(fileID).
		Fields(metadataFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("fetching file metadata %s: %w", fileID, err)
	}

	md := &Metadata{
		ID:       file.Id,
		Name:     file.Name,
		MimeType: file.MimeType,
		Trashed:  file.Trashed,
		Tags:     parseTags(file.AppProperties),
	}

	if file.ModifiedTime != "" {
		t, err := time.Parse(time.RFC3339, file.ModifiedTime)
		if err != nil {
			return nil, fmt.Errorf("parsing modified time %q: %w", file.ModifiedTime, err)
		}
		md.ModifiedTime = t
	}

	if len(file.Parents) > 0 {
		name, err := c.folderName(ctx, file.Parents[0])
		if err != nil {
			return nil, fmt.Errorf("resolving parent folder: %w", err)
		}
		md.FolderPath = "/" + name
	}

	return md, nil
}

// Export converts a Google Workspace file to the given MIME type and returns
// its content, capped at MaxContentSize.
func (c *Client) Export(ctx context.Context, fileID, exportMime string) (string, error) {
	resp, err := c.svc.Files.Export(fileID, exportMime).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("exporting file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxContentSize))
	if err != nil {
		return "", fmt.Errorf("reading export: %w", err)
	}
	return string(data), nil
}

// Download fetches a regular (non-Workspace) file's raw content, capped at
// MaxContentSize.
func (c *Client) Download(ctx context.Context, fileID string) (string, error) {
	resp, err := c.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("downloading file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxContentSize))
	if err != nil {
		return "", fmt.Errorf("reading download: %w", err)
	}
	return string(data), nil
}

func (c *Client) folderName(ctx context.Context, folderID string) (string, error) {
	folder, err := c.svc.Files.Get(folderID).
		Fields("name").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	return folder.Name, nil
}

// parseTags reads the comma-separated "tags" app property set by document
// owners to steer retrieval attribution.
func parseTags(props map[string]string) []string {
	raw, ok := props["tags"]
	if !ok || raw == "" {
		return nil
	}

	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
