// Package domain defines the persistence models for conversation sessions,
// security audit events, and payment receipts. These types are mapped with
// GORM and form the core data layer of the payments backend.
package domain

import "time"

// Step identifies the current position of a phone number inside the
// conversational onboarding/transfer flow. It is deliberately a typed string
// so the state machine can switch on it exhaustively; any value outside the
// named constants is treated as unknown and resets the conversation.
type Step string

// Conversation steps, in the order a new user encounters them.
const (
	StepStart        Step = "start"
	StepAskEmail     Step = "ask_email"
	StepSetPIN       Step = "set_pin"
	StepReady        Step = "ready"
	StepConfirmPIN   Step = "confirm_pin"
	StepAwaitPayment Step = "await_payment"
)

// Known reports whether s is one of the named conversation steps. The state
// machine falls back to StepStart for unknown values instead of failing.
func (s Step) Known() bool {
	switch s {
	case StepStart, StepAskEmail, StepSetPIN, StepReady, StepConfirmPIN, StepAwaitPayment:
		return true
	}
	return false
}

// TransferIntent is the parsed (amount, account) pair extracted from a chat
// message. Amount is whole Naira; Account is an opaque 10-digit string.
// Both fields are present together or the intent is absent.
type TransferIntent struct {
	Amount  int64  `json:"amount"`
	Account string `json:"account"`
}

// SessionScratch is the transient payload carried inside a session between
// the moment a transfer command is parsed and the moment the payment is
// confirmed. TxRef is filled in once a payment link has been created.
//
// It is cleared whenever a transfer starts fresh or completes.
type SessionScratch struct {
	Amount  int64  `json:"amount,omitempty"`
	Account string `json:"account,omitempty"`
	TxRef   string `json:"tx_ref,omitempty"`
}

// Empty reports whether the scratch payload carries no pending transfer.
func (s SessionScratch) Empty() bool {
	return s.Amount == 0 && s.Account == "" && s.TxRef == ""
}

// Session is the per-phone conversation record driving the chat state
// machine. The phone number (normalized chat address, e.g. "whatsapp:+234...")
// is the primary key; the Session Store is the sole owner of the record and
// callers always re-fetch rather than hold a long-lived reference.
//
// Fields:
//   - Phone: unique identifier and primary key.
//   - Step: current state machine position (see Step constants).
//   - Email: set once during onboarding, never re-validated after.
//   - PINHash: salted HMAC-SHA256 digest of the 4-digit PIN; never the raw PIN.
//   - PINAttempts / LastPINAttempt: durable failed-attempt counter used by the
//     persisted rate-limit layer.
//   - Tmp: transient transfer scratch payload (JSON).
//   - ExpiresAt: absolute expiry; expired sessions are treated as not found.
//   - CreatedAt / UpdatedAt: timestamps, UpdatedAt refreshed on every save.
type Session struct {
	Phone          string         `json:"phone"            gorm:"type:varchar(64);primaryKey"`
	Step           Step           `json:"step"             gorm:"type:varchar(32);not null;default:'start'"`
	Email          string         `json:"email,omitempty"  gorm:"type:varchar(255)"`
	PINHash        string         `json:"-"                gorm:"column:pin_hash;type:varchar(64)"`
	PINAttempts    int            `json:"pin_attempts"     gorm:"column:pin_attempts;not null;default:0"`
	LastPINAttempt *time.Time     `json:"last_pin_attempt,omitempty" gorm:"column:last_pin_attempt"`
	Tmp            SessionScratch `json:"tmp"              gorm:"serializer:json"`
	ExpiresAt      time.Time      `json:"expires_at"       gorm:"index"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
