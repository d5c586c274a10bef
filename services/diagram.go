package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"railops-assistant/internal/config"
	"railops-assistant/internal/drive"
	"railops-assistant/internal/logger"
	"railops-assistant/models"
)

// ErrDiagramNotFound means the top chunk's source document could not be
// resolved in remote storage. Callers surface it together with a diagnostic
// listing so an operator can tell a naming mismatch from a permissions
// problem.
var ErrDiagramNotFound = errors.New("diagram source not found in Drive")

// diagramKeywords is the intent vocabulary for visual requests. Matching is
// plain word lookup, not semantic.
var diagramKeywords = map[string]bool{
	"diagram": true,
	"drawing": true,
	"circuit": true,
	"figure":  true,
	"image":   true,
	"sketch":  true,
	"layout":  true,
}

// WantsDiagram reports whether the query asks for a visual artifact.
func WantsDiagram(query string) bool {
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if diagramKeywords[word] {
			return true
		}
	}
	return false
}

// DiagramResult is a rasterized source page.
type DiagramResult struct {
	PNG    []byte
	Source string
	Page   int
}

// DiagramService resolves a retrieved chunk back to its source document in
// Drive and rasterizes the exact page the chunk came from.
type DiagramService struct {
	cfg     *config.Config
	storage drive.Storage
}

func NewDiagramService(cfg *config.Config, storage drive.Storage) *DiagramService {
	return &DiagramService{cfg: cfg, storage: storage}
}

// Resolve locates the chunk's source document, downloads it and renders the
// chunk's page as a PNG. On resolution failure it returns ErrDiagramNotFound
// together with a listing of up to 10 visible file names (possibly empty).
// All scratch files are removed on every exit path. The optional progress
// callback receives transient status updates during the multi-second fetch.
func (d *DiagramService) Resolve(ctx context.Context, top models.Chunk, progress func(string)) (*DiagramResult, []string, error) {
	notify := func(msg string) {
		if progress != nil {
			progress(msg)
		}
	}

	// Index source names and Drive file names drift (extensions, stray
	// whitespace), so search with a normalized key first.
	key := strings.TrimSpace(strings.TrimSuffix(top.Source, filepath.Ext(top.Source)))

	notify(fmt.Sprintf("Searching Drive for %q...", key))
	files, err := d.storage.SearchByName(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("drive search failed: %w", err)
	}
	if len(files) == 0 {
		files, err = d.storage.GetByName(ctx, top.Source)
		if err != nil {
			return nil, nil, fmt.Errorf("drive lookup failed: %w", err)
		}
	}
	if len(files) == 0 {
		listing, listErr := d.storage.ListVisible(ctx, 10)
		if listErr != nil {
			logger.Warn("Failed to list visible files for diagnostics", "error", listErr)
			listing = []string{}
		}
		if listing == nil {
			listing = []string{}
		}
		return nil, listing, ErrDiagramNotFound
	}

	// Near-identical names are unspecified territory: first-listed wins,
	// and Drive listings are stable for the same query.
	file := files[0]

	scratch, err := os.MkdirTemp(d.cfg.ScratchDir, "diagram-")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	notify(fmt.Sprintf("Downloading %s...", file.Name))
	// Base strips any path separators a remote name may carry, so the
	// download can never land outside the scratch dir.
	pdfPath := filepath.Join(scratch, filepath.Base(file.Name))
	if err := d.storage.Download(ctx, file.ID, pdfPath); err != nil {
		return nil, nil, fmt.Errorf("failed to download %s: %w", file.Name, err)
	}

	notify(fmt.Sprintf("Rendering page %d...", top.Page))
	imgPath, err := RasterizePage(ctx, pdfPath, top.Page, scratch)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to rasterize page %d of %s: %w", top.Page, file.Name, err)
	}

	png, err := os.ReadFile(imgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rendered page: %w", err)
	}

	return &DiagramResult{PNG: png, Source: file.Name, Page: top.Page}, nil, nil
}
