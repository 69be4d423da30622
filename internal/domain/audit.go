// Package domain defines the core persistence models for the application.
package domain

import "time"

// Audit event types recorded by the core. The set is closed on purpose:
// dashboards and alerts key on these strings.
const (
	AuditPINVerificationFailed = "pin_verification_failed"
	AuditPINRateLimited        = "pin_rate_limited"
	AuditPINVerified           = "pin_verified"
	AuditPaymentLinkCreated    = "payment_link_created"
	AuditPaymentLinkFailed     = "payment_link_failed"
	AuditWebhookBadSignature   = "webhook_invalid_signature"
	AuditPaymentConfirmed      = "payment_confirmed"
	AuditPaymentNotifyFailed   = "payment_notify_failed"
	AuditPaymentMissingPhone   = "payment_missing_phone"
	AuditSessionCleanupDone    = "session_cleanup_completed"
	AuditSessionCleanupError   = "session_cleanup_error"
)

// SecurityAudit is an append-only security event. Rows are written on the hot
// path with best-effort semantics and are never read back by the state
// machine; the ops listing endpoint is the only reader.
//
// EventData is free-form structured context stored as JSON.
type SecurityAudit struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Phone     string         `json:"phone"      gorm:"type:varchar(64);not null;index"`
	EventType string         `json:"event_type" gorm:"type:varchar(64);not null;index"`
	EventData map[string]any `json:"event_data" gorm:"serializer:json"`
	IPAddress string         `json:"ip_address" gorm:"type:varchar(64)"`
	UserAgent string         `json:"user_agent" gorm:"type:varchar(255)"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for SecurityAudit.
func (SecurityAudit) TableName() string { return "security_audit" }
