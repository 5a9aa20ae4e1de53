package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sistec/enquiry-backend/internal/logger"
	"github.com/sistec/enquiry-backend/internal/model"
	"github.com/sistec/enquiry-backend/internal/repository"
	"github.com/sistec/enquiry-backend/internal/response"
	"github.com/sistec/enquiry-backend/internal/service"
)

// AdminHandler serves the moderation queue.
type AdminHandler struct {
	moderation *service.ModerationService
	log        zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(moderation *service.ModerationService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		moderation: moderation,
		log:        logger.Component(log, "admin_handler"),
	}
}

// PendingQueries godoc
// GET /api/admin/pending_queries
// Lists unanswered questions, oldest first.
func (h *AdminHandler) PendingQueries(c *gin.Context) {
	pending, err := h.moderation.ListPending(c.Request.Context())
	if err != nil {
		failInternal(c, h.log, err, "List pending failed")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"queries": pending})
}

// AnswerQuery godoc
// POST /api/admin/answer_query
func (h *AdminHandler) AnswerQuery(c *gin.Context) {
	var req model.AnswerQueryRequest
	if !bind(c, &req) {
		return
	}

	q, err := h.moderation.Answer(c.Request.Context(), req.QueryID, req.Answer)
	switch {
	case errors.Is(err, service.ErrEmptyAnswer):
		failField(c, "answer", "answer must not be empty")
		return
	case errors.Is(err, service.ErrInvalidText):
		failField(c, "answer", "answer must not contain NUL characters")
		return
	case errors.Is(err, repository.ErrQueryNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	case errors.Is(err, repository.ErrAlreadyAnswered):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyAnswered)
		return
	case err != nil:
		failInternal(c, h.log, err, "Answer query failed")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"query": q})
}

// Stats godoc
// GET /api/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.moderation.Stats(c.Request.Context())
	if err != nil {
		failInternal(c, h.log, err, "Stats failed")
		return
	}
	response.Success(c, http.StatusOK, stats)
}
