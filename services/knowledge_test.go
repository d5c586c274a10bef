package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railops-assistant/internal/config"
	"railops-assistant/internal/drive"
	"railops-assistant/internal/index"
	"railops-assistant/models"
)

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func TestSearchWithoutIndex(t *testing.T) {
	cfg := &config.Config{IndexDir: t.TempDir(), EmbeddingModel: "text-embedding-004", TopK: 3}
	svc := NewKnowledgeService(cfg, &fakeStorage{}, &fakeEmbedder{})

	assert.False(t, svc.Ready())
	_, err := svc.Search(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, index.ErrIndexMissing)
}

func TestLoadIndexAndSearch(t *testing.T) {
	dir := t.TempDir()

	// Persist a small index the way a sync would.
	ix := index.New("text-embedding-004")
	require.NoError(t, ix.Add([]float32{1, 0, 0}, models.Chunk{Text: "relay maintenance steps", Source: "relays.pdf", Page: 3}))
	require.NoError(t, ix.Add([]float32{0, 1, 0}, models.Chunk{Text: "point machine wiring", Source: "points.pdf", Page: 7}))
	require.NoError(t, ix.Save(dir))

	cfg := &config.Config{IndexDir: dir, EmbeddingModel: "text-embedding-004", TopK: 3}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"how do I maintain relays?": {1, 0, 0},
	}}
	svc := NewKnowledgeService(cfg, &fakeStorage{}, embedder)

	require.NoError(t, svc.LoadIndex())
	assert.True(t, svc.Ready())
	assert.Equal(t, 2, svc.Entries())

	results, err := svc.Search(context.Background(), "how do I maintain relays?", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "relays.pdf", results[0].Chunk.Source)
	assert.Equal(t, 3, results[0].Chunk.Page)
}

func TestSyncConfinesDownloadToScratch(t *testing.T) {
	storage := &fakeStorage{
		pdfs: []drive.File{{ID: "1", Name: "../../sneaky.pdf"}},
	}
	cfg := &config.Config{
		IndexDir:       t.TempDir(),
		ScratchDir:     t.TempDir(),
		EmbeddingModel: "text-embedding-004",
		MaxChunkSize:   1000,
		ChunkOverlap:   100,
	}
	svc := NewKnowledgeService(cfg, storage, &fakeEmbedder{})

	// The fake download writes nothing, so the document fails to parse and
	// the sync ends with no processed documents.
	_, err := svc.Sync(context.Background())
	require.Error(t, err)

	require.Len(t, storage.downloadPaths, 1)
	assert.NotContains(t, storage.downloadPaths[0], "..",
		"a remote name with separators must not escape the scratch dir")
	assert.Equal(t, "sneaky.pdf", filepath.Base(storage.downloadPaths[0]))
}

func TestLoadIndexRefusesForeignModel(t *testing.T) {
	dir := t.TempDir()
	ix := index.New("embedding-001")
	require.NoError(t, ix.Add([]float32{1}, models.Chunk{Text: "t", Source: "s.pdf", Page: 1}))
	require.NoError(t, ix.Save(dir))

	cfg := &config.Config{IndexDir: dir, EmbeddingModel: "text-embedding-004"}
	svc := NewKnowledgeService(cfg, &fakeStorage{}, &fakeEmbedder{})

	err := svc.LoadIndex()
	require.Error(t, err)
	assert.False(t, svc.Ready())
}
