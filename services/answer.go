package services

import (
	"context"
	"fmt"
	"strings"

	"railops-assistant/models"
)

// NoInfoReply is returned when retrieval produced nothing to ground an
// answer on. The completion service is deliberately not called in that case.
const NoInfoReply = "I could not find relevant information in the manuals for that question."

// Completer is the opaque completion service boundary.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteJSON(ctx context.Context, systemInstruction, prompt string) (string, error)
}

// AnswerService composes retrieved chunks into a grounded prose answer with
// deduplicated page-level citations.
type AnswerService struct {
	completer Completer
}

func NewAnswerService(completer Completer) *AnswerService {
	return &AnswerService{completer: completer}
}

// Answer builds the grounding context from results in similarity order and
// asks the model to answer using only that context. Citations are unique
// (source, page) pairs in first-retrieved order.
func (a *AnswerService) Answer(ctx context.Context, query string, results []models.SearchResult) (string, []string, error) {
	if len(results) == 0 {
		return NoInfoReply, nil, nil
	}

	var contextText strings.Builder
	for _, r := range results {
		contextText.WriteString(r.Chunk.Text)
		contextText.WriteString("\n")
	}

	prompt := fmt.Sprintf(
		"Using ONLY this signaling manual text, answer the question: %s\n\nContext: %s",
		query, contextText.String())

	answer, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return "", nil, err
	}

	return answer, Citations(results), nil
}

// Citations formats deduplicated (source, page) provenance for display.
// Multiple chunks from the same page collapse to a single citation.
func Citations(results []models.SearchResult) []string {
	seen := make(map[string]bool)
	var citations []string
	for _, r := range results {
		key := fmt.Sprintf("%s|%d", r.Chunk.Source, r.Chunk.Page)
		if seen[key] {
			continue
		}
		seen[key] = true
		citations = append(citations, fmt.Sprintf("%s (Page %d)", r.Chunk.Source, r.Chunk.Page))
	}
	return citations
}
