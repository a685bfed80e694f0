package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eventia/backend/internal/apperr"
)

// ServerErrorMessage is the only text a client sees for unclassified failures.
const ServerErrorMessage = "server error"

// ErrorBody is the error envelope: Error names the offending field (or "general").
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MessageBody is the confirmation envelope for mutations without a payload.
type MessageBody struct {
	Message string `json:"message"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Message sends a 200 confirmation message.
func Message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, MessageBody{Message: msg})
}

// BadRequest sends 400 tagged with field.
func BadRequest(c *gin.Context, field, msg string) {
	c.JSON(http.StatusBadRequest, ErrorBody{Error: field, Message: msg})
}

// Unauthorized sends 401 tagged with field.
func Unauthorized(c *gin.Context, field, msg string) {
	c.JSON(http.StatusUnauthorized, ErrorBody{Error: field, Message: msg})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, ErrorBody{Error: apperr.FieldGeneral, Message: msg})
}

// NotFound sends 404.
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorBody{Error: apperr.FieldGeneral, Message: msg})
}

// TooManyRequests sends 429.
func TooManyRequests(c *gin.Context, msg string) {
	c.JSON(http.StatusTooManyRequests, ErrorBody{Error: apperr.FieldGeneral, Message: msg})
}

// Internal sends 500 with the generic server error message.
func Internal(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, ErrorBody{Error: apperr.FieldGeneral, Message: ServerErrorMessage})
}

// Error maps a classified error to its status code. Unclassified and
// transaction errors collapse to a generic 500; callers log those first.
func Error(c *gin.Context, err error) {
	msg := err.Error()
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindConflict:
		BadRequest(c, apperr.FieldOf(err), msg)
	case apperr.KindNotFound:
		NotFound(c, msg)
	case apperr.KindCredential:
		Unauthorized(c, apperr.FieldOf(err), msg)
	default:
		Internal(c)
	}
}
