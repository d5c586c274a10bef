package models

import (
	"fmt"
	"time"
)

// Record categories emitted by the extraction model.
const (
	CategoryTransaction = "transaction"
	CategoryIssue       = "issue"

	// SentinelIgnore is the literal the model returns for irrelevant chat.
	SentinelIgnore = "IGNORE"
)

// UrgentSentimentMax is the highest sentiment score that still triggers an
// urgent alert for an issue record.
const UrgentSentimentMax = 2

// ExtractionRecord is a structured operational event mined from a chat
// message: a material transaction or a flagged equipment issue.
type ExtractionRecord struct {
	Category  string   `json:"category"`
	Item      string   `json:"item"`
	Quantity  *float64 `json:"quantity,omitempty"`
	Location  string   `json:"location,omitempty"`
	Status    string   `json:"status,omitempty"`
	Sentiment int      `json:"sentiment"`
}

// Validate checks the fields required before a record may be persisted.
func (r *ExtractionRecord) Validate() error {
	if r.Item == "" {
		return fmt.Errorf("missing item")
	}
	switch r.Category {
	case CategoryTransaction, CategoryIssue:
	case "":
		return fmt.Errorf("missing category")
	default:
		return fmt.Errorf("unknown category %q", r.Category)
	}
	if r.Sentiment < 1 || r.Sentiment > 5 {
		return fmt.Errorf("sentiment %d out of range 1-5", r.Sentiment)
	}
	return nil
}

// Urgent reports whether the record should trigger a high-priority alert.
// Alerting is independent of persistence: both consume the same record.
func (r *ExtractionRecord) Urgent() bool {
	return r.Category == CategoryIssue && r.Sentiment <= UrgentSentimentMax
}

// LogEntry is a persisted row of the append-only record log.
type LogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserName  string    `json:"user_name"`
	Category  string    `json:"category"`
	Item      string    `json:"item"`
	Quantity  *float64  `json:"quantity,omitempty"`
	Location  string    `json:"location,omitempty"`
	Status    string    `json:"status,omitempty"`
	Sentiment int       `json:"sentiment"`
	RawText   string    `json:"raw_text"`
}
