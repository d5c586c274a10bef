package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordValidate(t *testing.T) {
	valid := ExtractionRecord{Category: CategoryIssue, Item: "track circuit", Sentiment: 2}
	assert.NoError(t, valid.Validate())

	missingItem := ExtractionRecord{Category: CategoryIssue, Sentiment: 3}
	assert.Error(t, missingItem.Validate())

	missingCategory := ExtractionRecord{Item: "relay", Sentiment: 3}
	assert.Error(t, missingCategory.Validate())

	badCategory := ExtractionRecord{Category: "gossip", Item: "relay", Sentiment: 3}
	assert.Error(t, badCategory.Validate())

	badSentiment := ExtractionRecord{Category: CategoryIssue, Item: "relay", Sentiment: 9}
	assert.Error(t, badSentiment.Validate())
}

func TestRecordUrgent(t *testing.T) {
	assert.True(t, (&ExtractionRecord{Category: CategoryIssue, Item: "x", Sentiment: 1}).Urgent())
	assert.True(t, (&ExtractionRecord{Category: CategoryIssue, Item: "x", Sentiment: 2}).Urgent())
	assert.False(t, (&ExtractionRecord{Category: CategoryIssue, Item: "x", Sentiment: 3}).Urgent())
	assert.False(t, (&ExtractionRecord{Category: CategoryTransaction, Item: "x", Sentiment: 1}).Urgent())
}
