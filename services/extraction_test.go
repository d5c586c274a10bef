package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railops-assistant/internal/memory"
	"railops-assistant/models"
)

type fakeSink struct {
	appended []appendCall
	err      error
}

type appendCall struct {
	speaker string
	rec     models.ExtractionRecord
	raw     string
}

func (f *fakeSink) Append(_ context.Context, speaker string, rec *models.ExtractionRecord, raw string) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, appendCall{speaker: speaker, rec: *rec, raw: raw})
	return nil
}

func newTestExtraction(completer *fakeCompleter) (*ExtractionService, *fakeSink, *memory.Store) {
	sink := &fakeSink{}
	mem := memory.NewStore(5, 100)
	return NewExtractionService(completer, mem, sink), sink, mem
}

func TestHandleMessageStoresValidRecord(t *testing.T) {
	completer := &fakeCompleter{jsonReply: `{"category":"transaction","item":"relays","quantity":100,"location":"Station A","status":"dispatched","sentiment":4}`}
	svc, sink, _ := newTestExtraction(completer)

	outcome, err := svc.HandleMessage(context.Background(), "chat", "ramesh", "Sent 100 relays to Station A")
	require.NoError(t, err)
	assert.True(t, outcome.Stored)
	assert.False(t, outcome.Urgent)

	require.Len(t, sink.appended, 1)
	assert.Equal(t, "relays", sink.appended[0].rec.Item)
	assert.Equal(t, "Sent 100 relays to Station A", sink.appended[0].raw)
}

func TestHandleMessageUrgentIssue(t *testing.T) {
	completer := &fakeCompleter{jsonReply: `{"category":"issue","item":"point machine","location":"KM 42","status":"dead","sentiment":1}`}
	svc, sink, _ := newTestExtraction(completer)

	outcome, err := svc.HandleMessage(context.Background(), "chat", "suresh", "point machine at KM 42 dead again, fed up")
	require.NoError(t, err)
	assert.True(t, outcome.Stored)
	assert.True(t, outcome.Urgent, "issue with sentiment <= 2 must signal an alert")
	assert.Len(t, sink.appended, 1, "alerting does not replace persistence")
}

func TestHandleMessageIgnoreSentinel(t *testing.T) {
	completer := &fakeCompleter{jsonReply: "IGNORE"}
	svc, sink, _ := newTestExtraction(completer)

	outcome, err := svc.HandleMessage(context.Background(), "chat", "tech", "good morning all")
	require.NoError(t, err)
	assert.False(t, outcome.Stored)
	assert.Empty(t, sink.appended)
}

func TestHandleMessageFencedJSONWithTrailingProse(t *testing.T) {
	completer := &fakeCompleter{jsonReply: "```json\n{\"category\":\"issue\",\"item\":\"axle counter\",\"sentiment\":3}\n```\nLet me know if you need anything else!"}
	svc, sink, _ := newTestExtraction(completer)

	outcome, err := svc.HandleMessage(context.Background(), "chat", "tech", "axle counter acting up")
	require.NoError(t, err)
	assert.True(t, outcome.Stored)
	require.Len(t, sink.appended, 1)
	assert.Equal(t, "axle counter", sink.appended[0].rec.Item)
}

func TestHandleMessageMalformedOutputIsIgnored(t *testing.T) {
	for _, raw := range []string{
		"not json at all",
		`{"category": "issue", "item":`,
		"",
	} {
		completer := &fakeCompleter{jsonReply: raw}
		svc, sink, _ := newTestExtraction(completer)

		outcome, err := svc.HandleMessage(context.Background(), "chat", "tech", "hmm")
		require.NoError(t, err, "malformed output %q must never raise", raw)
		assert.False(t, outcome.Stored)
		assert.Empty(t, sink.appended, "nothing persisted for %q", raw)
	}
}

func TestHandleMessageInvalidRecordDiscarded(t *testing.T) {
	// Valid JSON but missing the required item field.
	completer := &fakeCompleter{jsonReply: `{"category":"issue","location":"KM 10","sentiment":2}`}
	svc, sink, _ := newTestExtraction(completer)

	outcome, err := svc.HandleMessage(context.Background(), "chat", "tech", "something broke")
	require.NoError(t, err)
	assert.False(t, outcome.Stored)
	assert.Empty(t, sink.appended)
}

func TestHandleMessagePromptCarriesPriorWindow(t *testing.T) {
	completer := &fakeCompleter{jsonReply: `{"category":"transaction","item":"relays","quantity":100,"sentiment":3}`}
	svc, _, _ := newTestExtraction(completer)
	ctx := context.Background()

	_, err := svc.HandleMessage(ctx, "chat", "ramesh", "Sent relays to Station A")
	require.NoError(t, err)

	// A bare number must be resolvable against the prior turn.
	_, err = svc.HandleMessage(ctx, "chat", "ramesh", "100")
	require.NoError(t, err)

	assert.Contains(t, completer.lastPrompt, "Sent relays to Station A",
		"prior turn rendered into the extraction prompt")
	assert.Contains(t, completer.lastPrompt, "Latest message from ramesh: 100")
	assert.Contains(t, completer.lastSystem, "IGNORE")
}

func TestHandleMessageWindowEvictsOldest(t *testing.T) {
	completer := &fakeCompleter{jsonReply: "IGNORE"}
	svc, _, _ := newTestExtraction(completer)
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		_, err := svc.HandleMessage(ctx, "chat", "tech", fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	// The 6th extraction call sees messages 2-5 as context, never message 1.
	assert.NotContains(t, completer.lastPrompt, "message 1\n")
	assert.Contains(t, completer.lastPrompt, "message 2")
	assert.Contains(t, completer.lastPrompt, "Latest message from tech: message 6")
}
