package handlers

import (
	"github.com/gin-gonic/gin"

	domain "github.com/tenxcards/tenxcards-backend/internal/domain/flashcards"
	"github.com/tenxcards/tenxcards-backend/internal/http/response"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
	"github.com/tenxcards/tenxcards-backend/internal/services"
)

type GenerationHandler struct {
	log               *logger.Logger
	generationService services.GenerationService
}

func NewGenerationHandler(log *logger.Logger, generationService services.GenerationService) *GenerationHandler {
	return &GenerationHandler{log: log.With("handler", "GenerationHandler"), generationService: generationService}
}

// POST /api/generations {source_text}
func (h *GenerationHandler) Generate(c *gin.Context) {
	var cmd domain.GenerateFlashcardsCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.RespondAppError(c, h.log, invalidBody(err))
		return
	}
	out, err := h.generationService.GenerateFlashcards(c.Request.Context(), cmd)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondCreated(c, out)
}

// GET /api/generations?page&limit
func (h *GenerationHandler) List(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	limit, err := queryInt(c, "limit", 10)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	out, err := h.generationService.ListGenerations(c.Request.Context(), page, limit)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/generations/:id
func (h *GenerationHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	out, err := h.generationService.GetGeneration(c.Request.Context(), id)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/generation-error-logs?limit
func (h *GenerationHandler) ErrorLogs(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	out, err := h.generationService.ListGenerationErrorLogs(c.Request.Context(), limit)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, out)
}
