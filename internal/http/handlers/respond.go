package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/p-iacone88/booksearch/internal/observability"
)

// errorEnvelope is the body of every non-GraphQL failure:
// {"error": {"code", "message", "requestId", "details"}}.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func abortWith(ctx *gin.Context, status int, code, message string, details interface{}) {
	id := observability.RequestIDFrom(ctx.Request.Context())

	if id == "" {
		id = ctx.GetHeader("X-Request-Id")
	}

	ctx.AbortWithStatusJSON(status, errorEnvelope{Error: errorBody{
		Code:      code,
		Message:   message,
		RequestID: id,
		Details:   details,
	}})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	abortWith(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondPayloadTooLarge(ctx *gin.Context) {
	abortWith(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body is too large", nil)
}

func RespondServiceUnavailable(ctx *gin.Context, message string) {
	abortWith(ctx, http.StatusServiceUnavailable, "unavailable", message, nil)
}
