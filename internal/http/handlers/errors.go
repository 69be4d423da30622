// Package handlers defines HTTP-layer error codes used across all endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses. Two envelopes exist side by side:
//
//   - Webhook endpoints answer external platforms (messaging, payment
//     provider) and use the compact `{"error": "<code>"}` body those
//     integrations expect.
//   - Internal ops endpoints use the richer envelope with request_id and a
//     human-readable message (via the `fail()` helper).
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - All error responses include an HTTP status and one of these codes.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// Webhook-specific:
	ErrCodeInvalidSignature = "invalid_signature"
	ErrCodeServerError      = "server_error"

	// Ops-specific:
	ErrCodeCleanupFailed = "cleanup_failed"
	ErrCodeListFailed    = "list_failed"
)
