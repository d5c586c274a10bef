package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"railops-assistant/internal/database"
	"railops-assistant/internal/index"
	"railops-assistant/internal/logger"
	"railops-assistant/internal/queue"
	"railops-assistant/services"
	"railops-assistant/utils"
)

func SetupAdminRoutes(router *gin.Engine, asynqClient *asynq.Client, knowledge *services.KnowledgeService, store *database.Store, exporter *services.ExportService) {
	admin := router.Group("/admin")

	// Ingestion is a batch job; the request only enqueues it.
	admin.POST("/sync", func(c *gin.Context) {
		task, err := queue.NewSyncTask(c.ClientIP())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create sync task", nil)
			return
		}
		info, err := asynqClient.Enqueue(task)
		if err != nil {
			logger.Error("Failed to enqueue sync task", "error", err)
			utils.RespondWithServiceUnavailable(c, "Could not schedule the sync right now.")
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID, "queue": info.Queue})
	})

	// Reload picks up a snapshot rebuilt by the worker without a restart.
	admin.POST("/reload", func(c *gin.Context) {
		if err := knowledge.LoadIndex(); err != nil {
			if errors.Is(err, index.ErrIndexMissing) {
				utils.RespondWithConflict(c, "No index snapshot on disk. Run a sync first.", nil)
				return
			}
			logger.Error("Index reload failed", "error", err)
			utils.RespondWithInternalError(c, "Failed to reload the index", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": knowledge.Entries()})
	})

	admin.GET("/logs", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		entries, err := store.List(c.Request.Context(), limit)
		if err != nil {
			logger.Error("Failed to list records", "error", err)
			utils.RespondWithInternalError(c, "Failed to read the record log", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(entries), "entries": entries})
	})

	admin.GET("/export", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
		workbook, err := exporter.BuildWorkbook(c.Request.Context(), limit)
		if err != nil {
			logger.Error("Export failed", "error", err)
			utils.RespondWithInternalError(c, "Failed to build the export", nil)
			return
		}
		defer workbook.Close()

		c.Header("Content-Disposition", `attachment; filename="railway_logs.xlsx"`)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := workbook.Write(c.Writer); err != nil {
			logger.Error("Failed to stream export", "error", err)
		}
	})
}
