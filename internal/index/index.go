// Package index implements the in-memory vector index over manual chunks,
// with page-level provenance and a compressed on-disk snapshot format.
//
// The index is built once by ingestion and treated as read-only by all query
// operations; rebuilding means a full re-ingestion, never incremental
// mutation. Concurrent readers are safe.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"railops-assistant/models"
	"railops-assistant/utils"
)

// ErrIndexMissing is returned when no snapshot exists at the configured
// location. It is a recoverable configuration state: re-run ingestion.
var ErrIndexMissing = errors.New("knowledge index not found - run a Drive sync first")

const snapshotFile = "index.json.gz"

// Index holds (embedding, chunk) pairs. Entries are immutable once added.
type Index struct {
	mu        sync.RWMutex
	model     string
	dimension int
	vectors   [][]float32
	chunks    []models.Chunk
}

// New creates an empty index pinned to the given embedding model. Queries
// against the index must embed with the same model, otherwise similarity
// scores are meaningless.
func New(model string) *Index {
	return &Index{model: model}
}

// Model returns the embedding model the index was built with.
func (ix *Index) Model() string {
	return ix.model
}

// Dimension returns the vector dimension, 0 while the index is empty.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimension
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// Add inserts an entry. The first vector fixes the index dimension.
func (ix *Index) Add(vector []float32, chunk models.Chunk) error {
	if len(vector) == 0 {
		return errors.New("empty embedding vector")
	}
	if chunk.Page < 1 {
		return fmt.Errorf("chunk page %d is not 1-indexed", chunk.Page)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.dimension == 0 {
		ix.dimension = len(vector)
	} else if len(vector) != ix.dimension {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vector), ix.dimension)
	}
	ix.vectors = append(ix.vectors, vector)
	ix.chunks = append(ix.chunks, chunk)
	return nil
}

// Search returns at most k entries ordered by non-increasing cosine
// similarity. Ties keep insertion order. Results below minScore are dropped
// when minScore > 0. Fewer than k entries is not an error; the caller gets
// whatever is available, possibly nothing.
func (ix *Index) Search(vector []float32, k int, minScore float64) []models.SearchResult {
	if k <= 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	results := make([]models.SearchResult, 0, len(ix.chunks))
	for i, v := range ix.vectors {
		score := cosine(v, vector)
		if minScore > 0 && score < minScore {
			continue
		}
		results = append(results, models.SearchResult{Chunk: ix.chunks[i], Score: score})
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type snapshot struct {
	Model     string         `json:"model"`
	Dimension int            `json:"dimension"`
	Vectors   [][]float32    `json:"vectors"`
	Chunks    []models.Chunk `json:"chunks"`
}

// Save writes a gzip-compressed JSON snapshot of the index into dir.
func (ix *Index) Save(dir string) error {
	ix.mu.RLock()
	snap := snapshot{
		Model:     ix.model,
		Dimension: ix.dimension,
		Vectors:   ix.vectors,
		Chunks:    ix.chunks,
	}
	ix.mu.RUnlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	compressed, err := utils.CompressData(data)
	if err != nil {
		return fmt.Errorf("failed to compress index: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}

	// Write-then-rename so a crash mid-save never corrupts the live snapshot.
	tmp := filepath.Join(dir, snapshotFile+".tmp")
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("failed to write index snapshot: %w", err)
	}
	return os.Rename(tmp, filepath.Join(dir, snapshotFile))
}

// Load reads a snapshot from dir. A missing snapshot yields ErrIndexMissing.
// A snapshot built with a different embedding model than expected is refused:
// mixing models silently corrupts similarity scores.
func Load(dir, expectedModel string) (*Index, error) {
	compressed, err := os.ReadFile(filepath.Join(dir, snapshotFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIndexMissing
		}
		return nil, fmt.Errorf("failed to read index snapshot: %w", err)
	}

	data, err := utils.DecompressData(compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress index snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode index snapshot: %w", err)
	}

	if expectedModel != "" && snap.Model != expectedModel {
		return nil, fmt.Errorf("index was built with embedding model %q but %q is configured - re-run ingestion", snap.Model, expectedModel)
	}

	return &Index{
		model:     snap.Model,
		dimension: snap.Dimension,
		vectors:   snap.Vectors,
		chunks:    snap.Chunks,
	}, nil
}
