// Package services defines the business logic for the conversational payment
// flow. This file centralizes common service-level error values so that they
// can be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the
// handler layer.
package services

import "errors"

var (
	// ErrInvalidSignature is returned when a provider webhook carries a
	// verif-hash header that does not match the configured secret.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrEmptySender is returned when an inbound chat message has no
	// sender address.
	ErrEmptySender = errors.New("sender address is empty")

	// ErrReplyFailed wraps a messaging gateway failure while sending the
	// reply for the current step. The session state has already been
	// persisted when this is returned.
	ErrReplyFailed = errors.New("failed to send reply")
)
