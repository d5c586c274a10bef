package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"railops-assistant/internal/logger"
	"railops-assistant/models"
	"railops-assistant/services"
	"railops-assistant/utils"
)

type MonitorRequest struct {
	ChatID  string `json:"chat_id" binding:"required"`
	Speaker string `json:"speaker" binding:"required"`
	Text    string `json:"text" binding:"required"`
}

type MonitorResponse struct {
	Stored bool                     `json:"stored"`
	Urgent bool                     `json:"urgent"`
	Alert  string                   `json:"alert,omitempty"`
	Record *models.ExtractionRecord `json:"record,omitempty"`
}

func SetupMonitorRoutes(router *gin.Engine, extraction *services.ExtractionService) {
	router.POST("/monitor", func(c *gin.Context) {
		var req MonitorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "chat_id, speaker and text are required", gin.H{"error": err.Error()})
			return
		}

		outcome, err := extraction.HandleMessage(c.Request.Context(), req.ChatID, req.Speaker, req.Text)
		if err != nil {
			logger.Error("Message monitoring failed", "error", err, "chat_id", req.ChatID)
			utils.RespondWithServiceUnavailable(c, "Could not process the message right now.")
			return
		}

		resp := MonitorResponse{
			Stored: outcome.Stored,
			Urgent: outcome.Urgent,
			Record: outcome.Record,
		}
		if outcome.Urgent {
			resp.Alert = "High priority issue logged at " + outcome.Record.Location
		}

		c.JSON(http.StatusOK, resp)
	})
}
