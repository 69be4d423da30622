// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the append-only
// SecurityAudit log.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lexipay/go-payments-backend/internal/domain"
)

// InsertAuditEvent appends one security event. The caller decides how to
// treat failures; the service layer logs and moves on.
func InsertAuditEvent(ctx context.Context, db *gorm.DB, ev *domain.SecurityAudit) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(ev).Error
}

// CountAuditEvents returns the total number of audit rows, optionally
// filtered by event type.
func CountAuditEvents(ctx context.Context, db *gorm.DB, eventType string) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.SecurityAudit{})
	if eventType != "" {
		q = q.Where("event_type = ?", eventType)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListAuditEventsPage returns a page of audit events ordered by creation
// time descending (most recent first), optionally filtered by event type.
func ListAuditEventsPage(ctx context.Context, db *gorm.DB, eventType string, offset, limit int) ([]domain.SecurityAudit, error) {
	var out []domain.SecurityAudit
	q := db.WithContext(ctx).Order("created_at desc, id desc")
	if eventType != "" {
		q = q.Where("event_type = ?", eventType)
	}
	err := q.Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}
