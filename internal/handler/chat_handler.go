package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sistec/enquiry-backend/internal/logger"
	"github.com/sistec/enquiry-backend/internal/middleware"
	"github.com/sistec/enquiry-backend/internal/model"
	"github.com/sistec/enquiry-backend/internal/response"
	"github.com/sistec/enquiry-backend/internal/service"
)

// ChatHandler serves the student chat.
type ChatHandler struct {
	chatService *service.ChatService
	log         zerolog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService *service.ChatService, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         logger.Component(log, "chat_handler"),
	}
}

// Chat godoc
// POST /chat, POST /api/chat
// Answers a question or forwards it to the admins. The success body is the
// bare {"response", "status"} object the chat widget reads, not the envelope.
func (h *ChatHandler) Chat(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.ChatRequest
	if !bind(c, &req) {
		return
	}

	reply, err := h.chatService.Ask(c.Request.Context(), claims.UserID, claims.Name, req.Query)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyQuestion):
			failField(c, "query", "query must not be empty")
			return
		case errors.Is(err, service.ErrInvalidText):
			failField(c, "query", "query must not contain NUL characters")
			return
		}
		failInternal(c, h.log, err, "Chat failed")
		return
	}

	c.JSON(http.StatusOK, reply)
}

// History godoc
// GET /api/chat_history
// Returns the student's questions, newest first.
func (h *ChatHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	history, err := h.chatService.History(c.Request.Context(), claims.UserID)
	if err != nil {
		failInternal(c, h.log, err, "Chat history failed")
		return
	}

	response.Success(c, http.StatusOK, history)
}
