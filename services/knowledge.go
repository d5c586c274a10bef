package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"railops-assistant/internal/config"
	"railops-assistant/internal/drive"
	"railops-assistant/internal/index"
	"railops-assistant/internal/logger"
	"railops-assistant/models"
)

// ErrNoDocuments is returned when the configured Drive folder holds no PDFs.
var ErrNoDocuments = errors.New("no PDFs found in the Drive folder - check sharing permissions")

// Embedder turns text into a fixed-length vector. Index build and query must
// go through the same Embedder so the model can never diverge.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// KnowledgeService owns the manual index lifecycle: building it from the
// Drive folder, persisting it, and serving similarity searches over it.
type KnowledgeService struct {
	cfg      *config.Config
	storage  drive.Storage
	embedder Embedder

	mu  sync.RWMutex
	idx *index.Index
}

func NewKnowledgeService(cfg *config.Config, storage drive.Storage, embedder Embedder) *KnowledgeService {
	return &KnowledgeService{cfg: cfg, storage: storage, embedder: embedder}
}

// LoadIndex loads the persisted snapshot. A missing snapshot is not fatal:
// the service runs degraded until a sync is performed.
func (k *KnowledgeService) LoadIndex() error {
	idx, err := index.Load(k.cfg.IndexDir, k.cfg.EmbeddingModel)
	if err != nil {
		return err
	}
	k.mu.Lock()
	k.idx = idx
	k.mu.Unlock()
	logger.Info("Knowledge index loaded", "entries", idx.Len(), "model", idx.Model())
	return nil
}

// Ready reports whether an index is loaded.
func (k *KnowledgeService) Ready() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.idx != nil
}

// Entries returns the number of indexed chunks, 0 when no index is loaded.
func (k *KnowledgeService) Entries() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.idx == nil {
		return 0
	}
	return k.idx.Len()
}

// Sync rebuilds the index from every PDF in the Drive folder, saves the new
// snapshot and atomically swaps it in. One unreadable PDF is logged and
// skipped; it must not abort the whole sync. Returns the number of indexed
// chunks.
func (k *KnowledgeService) Sync(ctx context.Context) (int, error) {
	files, err := k.storage.ListPDFs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list Drive folder: %w", err)
	}
	if len(files) == 0 {
		return 0, ErrNoDocuments
	}

	scratch, err := os.MkdirTemp(k.cfg.ScratchDir, "manual-sync-")
	if err != nil {
		return 0, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	fresh := index.New(k.cfg.EmbeddingModel)
	processed := 0

	for _, file := range files {
		logger.Info("Downloading manual", "name", file.Name)
		// Base strips any path separators a remote name may carry, so the
		// download can never land outside the scratch dir.
		path := filepath.Join(scratch, filepath.Base(file.Name))
		if err := k.storage.Download(ctx, file.ID, path); err != nil {
			logger.Error("Failed to download manual, skipping", "name", file.Name, "error", err)
			continue
		}

		if err := k.indexDocument(ctx, fresh, file.Name, path); err != nil {
			logger.Error("Failed to index manual, skipping", "name", file.Name, "error", err)
			continue
		}
		processed++
	}

	if processed == 0 {
		return 0, errors.New("failed to process any documents")
	}

	if err := fresh.Save(k.cfg.IndexDir); err != nil {
		return 0, fmt.Errorf("failed to save index: %w", err)
	}

	k.mu.Lock()
	k.idx = fresh
	k.mu.Unlock()

	logger.Info("Knowledge index rebuilt", "documents", processed, "chunks", fresh.Len())
	return fresh.Len(), nil
}

func (k *KnowledgeService) indexDocument(ctx context.Context, idx *index.Index, name, path string) error {
	pages, err := ExtractPages(path)
	if err != nil {
		return err
	}

	for i, pageText := range pages {
		pageNum := i + 1 // pages slice is 0-based, page numbers are 1-based
		for _, text := range SplitPage(pageText, k.cfg.MaxChunkSize, k.cfg.ChunkOverlap) {
			vector, err := k.embedder.Embed(ctx, text)
			if err != nil {
				return fmt.Errorf("embedding failed on page %d: %w", pageNum, err)
			}
			chunk := models.Chunk{Text: text, Source: name, Page: pageNum}
			if err := idx.Add(vector, chunk); err != nil {
				return err
			}
		}
	}
	return nil
}

// Search embeds the query with the pinned model and returns the top-k most
// similar chunks. An empty result is a valid state, not an error.
func (k *KnowledgeService) Search(ctx context.Context, query string, topK int) ([]models.SearchResult, error) {
	k.mu.RLock()
	idx := k.idx
	k.mu.RUnlock()
	if idx == nil {
		return nil, index.ErrIndexMissing
	}

	vector, err := k.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return idx.Search(vector, topK, k.cfg.MinSimilarity), nil
}
