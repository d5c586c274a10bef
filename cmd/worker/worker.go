package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"railops-assistant/internal/ai"
	"railops-assistant/internal/config"
	"railops-assistant/internal/drive"
	"railops-assistant/internal/logger"
	"railops-assistant/internal/queue"
	"railops-assistant/internal/schedule"
	"railops-assistant/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	ctx := context.Background()

	// Initialize Gemini client
	aiClient, err := ai.NewClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer aiClient.Close()

	driveClient, err := drive.NewClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize Drive client:", err)
	}

	knowledge := services.NewKnowledgeService(cfg, driveClient, aiClient)

	redisOpt := config.AsynqRedisOpt(cfg)

	// Optional periodic re-sync: enqueue through the same queue so only one
	// rebuild ever runs at a time.
	if cfg.SyncSchedule != "" {
		asynqClient := asynq.NewClient(redisOpt)
		defer asynqClient.Close()

		scheduler := schedule.NewScheduler()
		err := scheduler.Cron("drive-sync", cfg.SyncSchedule, func() error {
			task, err := queue.NewSyncTask("scheduler")
			if err != nil {
				return err
			}
			_, err = asynqClient.Enqueue(task)
			return err
		})
		if err != nil {
			log.Fatal("Failed to schedule periodic sync:", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		log.Printf("Periodic sync scheduled: %s", cfg.SyncSchedule)
	}

	// Create Asynq server. Index rebuilds are exclusive: concurrency 1 keeps
	// a rebuild from ever racing another rebuild.
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("Task failed: %s, error: %v", task.Type(), err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(knowledge)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskSyncManuals, processor.HandleSync)

	log.Println("Starting sync worker...")
	if err := server.Run(mux); err != nil {
		log.Fatal("Worker failed:", err)
	}
}
