package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"railops-assistant/internal/logger"
	"railops-assistant/internal/memory"
	"railops-assistant/models"
	"railops-assistant/utils"
)

const extractionSystemPrompt = `You are a Railway Signaling AI. Extract data from chat into JSON:
{
  "category": "transaction" or "issue",
  "item": "equipment name",
  "quantity": number or null,
  "location": "station/km",
  "status": "short description",
  "sentiment": 1-5
}
Use the recent conversation to resolve references: a bare number or pronoun in
the latest message refers back to the item mentioned earlier. If irrelevant,
return "IGNORE".`

// RecordSink is the append-only persistence boundary for validated records.
type RecordSink interface {
	Append(ctx context.Context, speaker string, rec *models.ExtractionRecord, rawText string) error
}

// Outcome describes what happened with one monitored message. Urgent is a
// separate signal from Stored: alerting and persistence are independent
// consumers of the same record.
type Outcome struct {
	Stored bool
	Urgent bool
	Record *models.ExtractionRecord
}

// ExtractionService mines chat messages for structured operational events.
// The only state carried between calls is the per-chat sliding window.
type ExtractionService struct {
	completer Completer
	memory    *memory.Store
	sink      RecordSink
}

func NewExtractionService(completer Completer, mem *memory.Store, sink RecordSink) *ExtractionService {
	return &ExtractionService{completer: completer, memory: mem, sink: sink}
}

// HandleMessage updates the chat's memory window with the inbound message,
// asks the model for a structured record in light of the prior turns, and
// persists it if valid. Model output that is not parseable JSON is logged
// and treated as ignore - it never surfaces as an error.
func (e *ExtractionService) HandleMessage(ctx context.Context, chatID, speaker, text string) (Outcome, error) {
	// Append returns the post-append window atomically; it always holds at
	// least the message just added, even if the chat is concurrently evicted.
	window := e.memory.Append(chatID, speaker, text)
	prior := window[:len(window)-1] // everything before the message just added

	raw, err := e.completer.CompleteJSON(ctx, extractionSystemPrompt, renderPrompt(prior, speaker, text))
	if err != nil {
		return Outcome{}, err
	}

	rec, ok := e.parseRecord(raw)
	if !ok {
		return Outcome{}, nil
	}

	if err := e.sink.Append(ctx, speaker, rec, text); err != nil {
		return Outcome{}, fmt.Errorf("failed to persist record: %w", err)
	}
	logger.Info("Stored extraction record", "item", rec.Item, "category", rec.Category)

	return Outcome{Stored: true, Urgent: rec.Urgent(), Record: rec}, nil
}

// renderPrompt lays out the prior window as ordered conversation lines
// followed by the message to extract from.
func renderPrompt(prior []memory.Turn, speaker, latest string) string {
	var b strings.Builder
	if len(prior) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range prior {
			b.WriteString(turn.Speaker)
			b.WriteString(": ")
			b.WriteString(turn.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Latest message from ")
	b.WriteString(speaker)
	b.WriteString(": ")
	b.WriteString(latest)
	return b.String()
}

// parseRecord defensively turns model output into a validated record. Every
// failure mode here means "ignore", never an error for the caller.
func (e *ExtractionService) parseRecord(raw string) (*models.ExtractionRecord, bool) {
	if utils.IsIgnoreSentinel(raw) {
		return nil, false
	}

	jsonText, ok := utils.ExtractJSONObject(raw)
	if !ok {
		logger.Warn("Extraction output had no JSON object, ignoring", "raw", raw)
		return nil, false
	}

	var rec models.ExtractionRecord
	if err := json.Unmarshal([]byte(jsonText), &rec); err != nil {
		logger.Warn("Extraction output failed to parse, ignoring", "raw", raw, "error", err)
		return nil, false
	}

	// The model occasionally omits sentiment; treat that as neutral rather
	// than discarding an otherwise valid record.
	if rec.Sentiment == 0 {
		rec.Sentiment = 3
	}

	if err := rec.Validate(); err != nil {
		logger.Warn("Extraction record failed validation, discarding", "error", err, "raw", raw)
		return nil, false
	}
	return &rec, true
}
