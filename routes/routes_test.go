package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railops-assistant/internal/config"
	"railops-assistant/internal/drive"
	"railops-assistant/internal/index"
	"railops-assistant/internal/memory"
	"railops-assistant/models"
	"railops-assistant/services"
)

type fakeCompleter struct {
	reply     string
	jsonReply string
	calls     int
}

func (f *fakeCompleter) Complete(context.Context, string) (string, error) {
	f.calls++
	return f.reply, nil
}

func (f *fakeCompleter) CompleteJSON(context.Context, string, string) (string, error) {
	f.calls++
	return f.jsonReply, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type fakeStorage struct{}

func (fakeStorage) ListPDFs(context.Context) ([]drive.File, error)           { return nil, nil }
func (fakeStorage) SearchByName(context.Context, string) ([]drive.File, error) { return nil, nil }
func (fakeStorage) GetByName(context.Context, string) ([]drive.File, error)  { return nil, nil }
func (fakeStorage) ListVisible(context.Context, int) ([]string, error)       { return []string{}, nil }
func (fakeStorage) Download(context.Context, string, string) error           { return nil }

type fakeSink struct {
	appended int
}

func (f *fakeSink) Append(context.Context, string, *models.ExtractionRecord, string) error {
	f.appended++
	return nil
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func newAskRouter(t *testing.T, completer *fakeCompleter, withIndex bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		IndexDir:       t.TempDir(),
		EmbeddingModel: "text-embedding-004",
		TopK:           3,
		ScratchDir:     t.TempDir(),
	}

	if withIndex {
		ix := index.New(cfg.EmbeddingModel)
		require.NoError(t, ix.Add([]float32{1, 0, 0},
			models.Chunk{Text: "relay maintenance schedule", Source: "relays.pdf", Page: 3}))
		require.NoError(t, ix.Save(cfg.IndexDir))
	}

	knowledge := services.NewKnowledgeService(cfg, fakeStorage{}, fakeEmbedder{})
	if withIndex {
		require.NoError(t, knowledge.LoadIndex())
	}

	router := gin.New()
	SetupAskRoutes(router, cfg, knowledge,
		services.NewAnswerService(completer),
		services.NewDiagramService(cfg, fakeStorage{}))
	return router
}

func TestAskWithoutIndexReturnsConflict(t *testing.T) {
	router := newAskRouter(t, &fakeCompleter{}, false)

	w := postJSON(t, router, "/ask", AskRequest{Query: "what is relay maintenance?"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "sync")
}

func TestAskReturnsAnswerWithCitations(t *testing.T) {
	completer := &fakeCompleter{reply: "Inspect relays weekly."}
	router := newAskRouter(t, completer, true)

	w := postJSON(t, router, "/ask", AskRequest{Query: "what is relay maintenance?"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Inspect relays weekly.", resp.Answer)
	assert.Equal(t, []string{"relays.pdf (Page 3)"}, resp.Citations)
	assert.Nil(t, resp.Diagram)
}

func TestAskDiagramMissReturnsListing(t *testing.T) {
	completer := &fakeCompleter{reply: "See the drawing."}
	router := newAskRouter(t, completer, true)

	w := postJSON(t, router, "/ask", AskRequest{Query: "show me the circuit diagram of point machine"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "See the drawing.", resp.Answer, "diagram miss never suppresses the answer")
	require.NotNil(t, resp.DiagramError)
	assert.NotNil(t, resp.DiagramError.VisibleFiles)
}

func TestAskRejectsMissingQuery(t *testing.T) {
	router := newAskRouter(t, &fakeCompleter{}, true)
	w := postJSON(t, router, "/ask", gin.H{"chat_id": "c"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonitorStoresAndFlagsUrgent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	completer := &fakeCompleter{jsonReply: `{"category":"issue","item":"point machine","location":"KM 42","status":"dead","sentiment":1}`}
	sink := &fakeSink{}
	extraction := services.NewExtractionService(completer, memory.NewStore(5, 10), sink)

	router := gin.New()
	SetupMonitorRoutes(router, extraction)

	w := postJSON(t, router, "/monitor", MonitorRequest{
		ChatID: "chat", Speaker: "suresh", Text: "point machine at KM 42 dead again",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp MonitorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Stored)
	assert.True(t, resp.Urgent)
	assert.Contains(t, resp.Alert, "KM 42")
	assert.Equal(t, 1, sink.appended)
}

func TestMonitorIgnoredMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	completer := &fakeCompleter{jsonReply: "IGNORE"}
	sink := &fakeSink{}
	extraction := services.NewExtractionService(completer, memory.NewStore(5, 10), sink)

	router := gin.New()
	SetupMonitorRoutes(router, extraction)

	w := postJSON(t, router, "/monitor", MonitorRequest{ChatID: "chat", Speaker: "a", Text: "good morning"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp MonitorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Stored)
	assert.Zero(t, sink.appended)
}
