// Package handlers provides the HTTP handler implementations for the webhook
// and ops endpoints.
//
// This file defines the standard response utilities used across all
// endpoints, including structured error envelopes, consistent JSON
// serialization, and helpers for common HTTP patterns.
//
// Conventions:
//   - Webhook error responses use `webhookError()` which emits the compact
//     `{"error": "<code>"}` body the external platforms expect.
//   - Ops error responses use `fail()` which emits an ErrorResponse with a
//     stable `code`; 5xx responses are logged with request context.
//   - `ok()` writes success responses in a consistent shape.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexipay/go-payments-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by the internal ops endpoints.
//
// Fields:
//   - RequestID: correlation ID echoed from the X-Request-ID header, used to
//     correlate server logs with client-side errors.
//   - Code: a stable, machine-readable string (see errors.go constants).
//   - Message: a human-readable error description.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"cleanup_failed"`
	// Human-readable message
	Message string `json:"message" example:"expired session sweep failed"`
}

// WebhookError is the compact error body returned by webhook endpoints.
type WebhookError struct {
	// Stable, machine-readable code (see errors.go constants)
	Error string `json:"error" example:"invalid_signature"`
}

// webhookError aborts a webhook request with the compact error body and logs
// server-side failures with the request-scoped logger.
func webhookError(c *gin.Context, status int, code string) {
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Msg("webhook error")
	}
	c.AbortWithStatusJSON(status, WebhookError{Error: code})
}

// fail aborts the request with a structured error and logs server-side errors.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail().
//
// External packages (e.g., router setup) should call Fail to return
// consistent error envelopes without directly depending on unexported helpers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// WebhookFail is the exported variant of webhookError(), used by router-level
// fallbacks that must keep the platform-facing body shape.
func WebhookFail(c *gin.Context, status int, code string) { webhookError(c, status, code) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
