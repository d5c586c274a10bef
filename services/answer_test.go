package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railops-assistant/models"
)

type fakeCompleter struct {
	reply     string
	jsonReply string
	err       error

	calls       int
	lastPrompt  string
	lastSystem  string
	jsonCalls   int
	plainCalls  int
	promptsSeen []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.plainCalls++
	f.lastPrompt = prompt
	f.promptsSeen = append(f.promptsSeen, prompt)
	return f.reply, f.err
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, system, prompt string) (string, error) {
	f.calls++
	f.jsonCalls++
	f.lastSystem = system
	f.lastPrompt = prompt
	f.promptsSeen = append(f.promptsSeen, prompt)
	return f.jsonReply, f.err
}

func TestAnswerEmptyResultsSkipsCompletion(t *testing.T) {
	completer := &fakeCompleter{}
	svc := NewAnswerService(completer)

	answer, citations, err := svc.Answer(context.Background(), "what is relay maintenance?", nil)
	require.NoError(t, err)
	assert.Equal(t, NoInfoReply, answer)
	assert.Empty(t, citations)
	assert.Zero(t, completer.calls, "completion service must not be called without grounding")
}

func TestAnswerBuildsGroundedPrompt(t *testing.T) {
	completer := &fakeCompleter{reply: "Check the relay contacts weekly."}
	svc := NewAnswerService(completer)

	results := []models.SearchResult{
		{Chunk: models.Chunk{Text: "relay contact inspection", Source: "relays.pdf", Page: 3}, Score: 0.9},
		{Chunk: models.Chunk{Text: "contact cleaning schedule", Source: "relays.pdf", Page: 3}, Score: 0.8},
		{Chunk: models.Chunk{Text: "point machine lubrication", Source: "points.pdf", Page: 7}, Score: 0.7},
	}

	answer, citations, err := svc.Answer(context.Background(), "relay maintenance?", results)
	require.NoError(t, err)
	assert.Equal(t, "Check the relay contacts weekly.", answer)

	assert.Contains(t, completer.lastPrompt, "Using ONLY this signaling manual text")
	assert.Contains(t, completer.lastPrompt, "relay contact inspection")
	assert.Contains(t, completer.lastPrompt, "point machine lubrication")

	// Duplicate (source, page) pairs collapse to one citation.
	assert.Equal(t, []string{"relays.pdf (Page 3)", "points.pdf (Page 7)"}, citations)
}

func TestCitationsDedupeKeepsOrder(t *testing.T) {
	results := []models.SearchResult{
		{Chunk: models.Chunk{Source: "b.pdf", Page: 2}},
		{Chunk: models.Chunk{Source: "a.pdf", Page: 1}},
		{Chunk: models.Chunk{Source: "b.pdf", Page: 2}},
		{Chunk: models.Chunk{Source: "b.pdf", Page: 3}},
	}
	assert.Equal(t,
		[]string{"b.pdf (Page 2)", "a.pdf (Page 1)", "b.pdf (Page 3)"},
		Citations(results))
}
