package routes

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"railops-assistant/internal/config"
	"railops-assistant/internal/index"
	"railops-assistant/internal/logger"
	"railops-assistant/services"
	"railops-assistant/utils"
)

type AskRequest struct {
	ChatID string `json:"chat_id"`
	Query  string `json:"query" binding:"required"`
}

type DiagramPayload struct {
	ImageBase64 string `json:"image_base64"`
	Source      string `json:"source"`
	Page        int    `json:"page"`
}

type DiagramFailure struct {
	Message      string   `json:"message"`
	VisibleFiles []string `json:"visible_files"`
}

type AskResponse struct {
	Answer       string          `json:"answer"`
	Citations    []string        `json:"citations"`
	Diagram      *DiagramPayload `json:"diagram,omitempty"`
	DiagramError *DiagramFailure `json:"diagram_error,omitempty"`
}

func SetupAskRoutes(router *gin.Engine, cfg *config.Config, knowledge *services.KnowledgeService, answers *services.AnswerService, diagrams *services.DiagramService) {
	router.POST("/ask", func(c *gin.Context) {
		var req AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Please provide a question. Example: What is relay maintenance?", gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()

		results, err := knowledge.Search(ctx, req.Query, cfg.TopK)
		if err != nil {
			if errors.Is(err, index.ErrIndexMissing) {
				utils.RespondWithConflict(c, "Could not search manuals. Run a Drive sync first.", nil)
				return
			}
			logger.Error("Search failed", "error", err, "query", req.Query)
			utils.RespondWithServiceUnavailable(c, "Could not search manuals right now. Please try again.")
			return
		}

		answer, citations, err := answers.Answer(ctx, req.Query, results)
		if err != nil {
			logger.Error("Answer generation failed", "error", err, "query", req.Query)
			utils.RespondWithServiceUnavailable(c, "Could not generate an answer right now. Please try again.")
			return
		}

		resp := AskResponse{Answer: answer, Citations: citations}

		// A visual request additionally resolves the top chunk's source page
		// as an image. Diagram failure never suppresses the text answer.
		if services.WantsDiagram(req.Query) && len(results) > 0 {
			diagram, listing, err := diagrams.Resolve(ctx, results[0].Chunk, nil)
			switch {
			case err == nil:
				resp.Diagram = &DiagramPayload{
					ImageBase64: base64.StdEncoding.EncodeToString(diagram.PNG),
					Source:      diagram.Source,
					Page:        diagram.Page,
				}
			case errors.Is(err, services.ErrDiagramNotFound):
				resp.DiagramError = &DiagramFailure{
					Message:      "Source document not found in Drive.",
					VisibleFiles: listing,
				}
			default:
				logger.Error("Diagram resolution failed", "error", err, "source", results[0].Chunk.Source)
				resp.DiagramError = &DiagramFailure{
					Message:      "Could not render the diagram right now.",
					VisibleFiles: []string{},
				}
			}
		}

		c.JSON(http.StatusOK, resp)
	})
}
