// Package services – AuditService
//
// This file implements the AuditService, which records security-relevant
// events (PIN failures, rate limiting, webhook signature rejections,
// payment confirmations) to the security_audit table. Recording is strictly
// best-effort: a failed insert is logged and swallowed so that it can never
// break the payment flow that triggered it.
package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/lexipay/go-payments-backend/internal/domain"
	"github.com/lexipay/go-payments-backend/internal/repo"
)

// RequestMeta carries request-scoped attribution for security audit rows.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuditService records and lists security audit events.
type AuditService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewAuditService constructs an AuditService.
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{DB: db}
}

// Record persists a single audit event. It never returns an error.
func (s *AuditService) Record(ctx context.Context, phone, eventType string, data map[string]any, meta RequestMeta) {
	if s == nil || s.DB == nil {
		return
	}
	rec := &domain.SecurityAudit{
		Phone:     phone,
		EventType: eventType,
		EventData: data,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := repo.InsertAuditEvent(ctx, s.DB, rec); err != nil {
		log.Warn().Err(err).
			Str("event_type", eventType).
			Str("phone", phone).
			Msg("failed to persist security audit event")
	}
}

// List returns one page of audit events, newest first, together with the
// total count for the same event-type filter. Invalid paging inputs fall
// back to defaults.
func (s *AuditService) List(ctx context.Context, eventType string, page, pageSize int) ([]domain.SecurityAudit, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	total, err := repo.CountAuditEvents(ctx, s.DB, eventType)
	if err != nil {
		return nil, 0, err
	}
	rows, err := repo.ListAuditEventsPage(ctx, s.DB, eventType, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
