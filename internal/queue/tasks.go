// Package queue defines the background tasks that run off the request path:
// rebuilding the knowledge index is a multi-minute batch job and must not
// stall message handling.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"railops-assistant/internal/logger"
	"railops-assistant/services"
)

const TaskSyncManuals = "manuals:sync"

type SyncPayload struct {
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewSyncTask creates a task that rebuilds the knowledge index from Drive.
func NewSyncTask(requestedBy string) (*asynq.Task, error) {
	payload, err := json.Marshal(SyncPayload{
		RequestedBy: requestedBy,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskSyncManuals,
		payload,
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// TaskProcessor executes queued tasks.
type TaskProcessor struct {
	knowledge *services.KnowledgeService
}

func NewTaskProcessor(knowledge *services.KnowledgeService) *TaskProcessor {
	return &TaskProcessor{knowledge: knowledge}
}

func (p *TaskProcessor) HandleSync(ctx context.Context, t *asynq.Task) error {
	var payload SyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Starting manual sync", "requested_by", payload.RequestedBy)

	chunks, err := p.knowledge.Sync(ctx)
	if err != nil {
		if errors.Is(err, services.ErrNoDocuments) {
			// Retrying won't make PDFs appear; the operator must fix sharing.
			logger.Error("Sync found no documents", "error", err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	logger.Info("Manual sync completed", "chunks", chunks)
	return nil
}
