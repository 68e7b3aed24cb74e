package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	domain "github.com/tenxcards/tenxcards-backend/internal/domain/flashcards"
	"github.com/tenxcards/tenxcards-backend/internal/http/response"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
	"github.com/tenxcards/tenxcards-backend/internal/services"
)

type FlashcardHandler struct {
	log              *logger.Logger
	flashcardService services.FlashcardService
}

func NewFlashcardHandler(log *logger.Logger, flashcardService services.FlashcardService) *FlashcardHandler {
	return &FlashcardHandler{log: log.With("handler", "FlashcardHandler"), flashcardService: flashcardService}
}

// GET /api/flashcards?page&limit&sortBy&order
func (h *FlashcardHandler) List(c *gin.Context) {
	var params domain.ListParams
	var err error
	if params.Page, err = queryInt(c, "page", 1); err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	if params.Limit, err = queryInt(c, "limit", 10); err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	params.SortBy = domain.SortField(c.Query("sortBy"))
	params.Order = c.Query("order")

	out, err := h.flashcardService.ListFlashcards(c.Request.Context(), params)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/flashcards
func (h *FlashcardHandler) Create(c *gin.Context) {
	var cmd domain.CreateFlashcardsCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.RespondAppError(c, h.log, invalidBody(err))
		return
	}
	out, err := h.flashcardService.CreateFlashcards(c.Request.Context(), cmd)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"flashcards": out})
}

// GET /api/flashcards/:id
func (h *FlashcardHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	out, err := h.flashcardService.GetFlashcard(c.Request.Context(), id)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, out)
}

// PUT /api/flashcards/:id
func (h *FlashcardHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	var cmd domain.UpdateFlashcardCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.RespondAppError(c, h.log, invalidBody(err))
		return
	}
	out, err := h.flashcardService.UpdateFlashcard(c.Request.Context(), id, cmd)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, out)
}

// DELETE /api/flashcards {ids}
func (h *FlashcardHandler) Delete(c *gin.Context) {
	var cmd domain.DeleteFlashcardsCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.RespondAppError(c, h.log, invalidBody(err))
		return
	}
	n, err := h.flashcardService.DeleteFlashcards(c.Request.Context(), cmd)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"message": fmt.Sprintf("Successfully deleted %d flashcard(s)", n)})
}
