package services

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ledongthuc/pdf"

	"railops-assistant/internal/logger"
)

// ExtractPages extracts per-page text from the PDF at path. The returned
// slice is ordered by page: pages[0] holds page 1, matching the reader's own
// 1-indexed page numbering. Pages that fail to parse are kept as empty
// strings so the position of every later page stays correct.
func ExtractPages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]string, total)

	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract text from page", "file", filepath.Base(path), "page", i, "error", err)
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}

// RasterizePage renders one page of a PDF to a PNG file in outDir using
// poppler's pdftoppm and returns the path of the produced image. The page
// argument is 1-indexed, the same indexing pdftoppm uses, so the page number
// carried on a chunk is passed through without any shift.
func RasterizePage(ctx context.Context, pdfPath string, page int, outDir string) (string, error) {
	if page < 1 {
		return "", fmt.Errorf("page %d is not 1-indexed", page)
	}
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return "", fmt.Errorf("pdftoppm not available: %w", err)
	}

	rasterCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	prefix := filepath.Join(outDir, "page")
	cmd := exec.CommandContext(rasterCtx, "pdftoppm",
		"-png",
		"-r", "150",
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm failed: %v, output: %s", err, out)
	}

	// pdftoppm zero-pads the page suffix depending on the document size, so
	// glob for the single file it produced.
	matches, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("rasterized page not found in %s", outDir)
	}
	return matches[0], nil
}
