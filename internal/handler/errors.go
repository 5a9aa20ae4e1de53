package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sistec/enquiry-backend/internal/response"
	"github.com/sistec/enquiry-backend/internal/validator"
)

// bind decodes and validates the request into dst. On failure it has already
// answered 400: INVALID_PAYLOAD for an unreadable body, VALIDATION_ERROR otherwise.
func bind(c *gin.Context, dst interface{}) bool {
	fields := validator.Bind(c, dst)
	if fields == nil {
		return true
	}
	if _, unreadable := fields[validator.DetailField]; unreadable {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return false
	}
	response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
	return false
}

func failField(c *gin.Context, field, msg string) {
	response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{field: msg})
}

// failInternal logs err against the request and answers 500 without details.
func failInternal(c *gin.Context, log zerolog.Logger, err error, msg string) {
	log.Error().
		Err(err).
		Str("request_id", c.GetString(response.ContextKeyRequestID)).
		Str("path", c.FullPath()).
		Msg(msg)
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}
