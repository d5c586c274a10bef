// Package drive is the remote object storage boundary: listing and fetching
// manual PDFs from a shared Google Drive folder.
package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"railops-assistant/internal/config"
)

// File is a remote file reference.
type File struct {
	ID   string
	Name string
}

// Storage is the listing/fetch surface the ingestion and diagram paths need.
// The Drive client implements it; tests substitute fakes.
type Storage interface {
	// ListPDFs lists all PDF files in the configured folder.
	ListPDFs(ctx context.Context) ([]File, error)
	// SearchByName lists folder files whose name contains key.
	SearchByName(ctx context.Context, key string) ([]File, error)
	// GetByName lists folder files whose name equals name exactly.
	GetByName(ctx context.Context, name string) ([]File, error)
	// ListVisible returns up to limit file names visible in the folder,
	// used as a diagnostic listing when resolution fails.
	ListVisible(ctx context.Context, limit int) ([]string, error)
	// Download fetches a file's content into destPath.
	Download(ctx context.Context, fileID, destPath string) error
}

// Client implements Storage against the Drive v3 API.
type Client struct {
	svc      *gdrive.Service
	folderID string
}

func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	var opts []option.ClientOption
	if cfg.DriveCredentials != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.DriveCredentials)))
	}
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &Client{svc: svc, folderID: cfg.DriveFolderID}, nil
}

func (c *Client) ListPDFs(ctx context.Context) ([]File, error) {
	q := fmt.Sprintf("'%s' in parents and mimeType='application/pdf' and trashed=false", c.folderID)
	return c.list(ctx, q, 0)
}

func (c *Client) SearchByName(ctx context.Context, key string) ([]File, error) {
	q := fmt.Sprintf("'%s' in parents and name contains '%s' and trashed=false", c.folderID, escapeQuery(key))
	return c.list(ctx, q, 0)
}

func (c *Client) GetByName(ctx context.Context, name string) ([]File, error) {
	q := fmt.Sprintf("'%s' in parents and name = '%s' and trashed=false", c.folderID, escapeQuery(name))
	return c.list(ctx, q, 0)
}

func (c *Client) ListVisible(ctx context.Context, limit int) ([]string, error) {
	q := fmt.Sprintf("'%s' in parents and trashed=false", c.folderID)
	files, err := c.list(ctx, q, int64(limit))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names, nil
}

// list runs a folder query. With pageSize 0 it follows continuation tokens
// until the listing is exhausted; Drive caps a single response at its default
// page size, so stopping after one call would silently truncate the corpus.
// A positive pageSize fetches a single bounded page.
func (c *Client) list(ctx context.Context, query string, pageSize int64) ([]File, error) {
	var files []File
	pageToken := ""
	for {
		call := c.svc.Files.List().
			Q(query).
			Spaces("drive").
			Fields("nextPageToken, files(id, name)").
			IncludeItemsFromAllDrives(true).
			SupportsAllDrives(true).
			Context(ctx)
		if pageSize > 0 {
			call = call.PageSize(pageSize)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("drive listing failed: %w", err)
		}

		for _, f := range resp.Files {
			files = append(files, File{ID: f.Id, Name: f.Name})
		}

		if pageSize > 0 || resp.NextPageToken == "" {
			return files, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (c *Client) Download(ctx context.Context, fileID, destPath string) error {
	resp, err := c.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("write scratch file: %w", err)
	}
	return nil
}

// escapeQuery escapes single quotes in a Drive query string literal.
func escapeQuery(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}
