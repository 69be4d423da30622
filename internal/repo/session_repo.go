// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Session
// model, the per-phone conversation record.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition.
//
// Error semantics:
//   - When a session is not found (or is past its expiry, which the store
//     treats the same way), functions return ErrNotFound.
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lexipay/go-payments-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetSession fetches the session for phone. Sessions past their expiry at
// `now` are treated as not found; the caller creates a fresh one.
func GetSession(ctx context.Context, db *gorm.DB, phone string, now time.Time) (*domain.Session, error) {
	var s domain.Session
	err := db.WithContext(ctx).Where("phone = ?", phone).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.Expired(now) {
		return nil, ErrNotFound
	}
	return &s, nil
}

// CreateSession inserts a fresh session for phone at step "start" with an
// empty scratch payload and an expiry of now+ttl. An existing row for the
// same phone (e.g. an expired one) is overwritten.
func CreateSession(ctx context.Context, db *gorm.DB, phone string, ttl time.Duration) (*domain.Session, error) {
	now := time.Now().UTC()
	s := &domain.Session{
		Phone:     phone,
		Step:      domain.StepStart,
		Tmp:       domain.SessionScratch{},
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone"}},
			UpdateAll: true,
		}).
		Create(s).Error
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SaveSession upserts the full session record, refreshing UpdatedAt and
// sliding the expiry forward by ttl. Last write wins; the service layer
// serializes writers for the same phone within a process.
func SaveSession(ctx context.Context, db *gorm.DB, s *domain.Session, ttl time.Duration) error {
	now := time.Now().UTC()
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(ttl)
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone"}},
			UpdateAll: true,
		}).
		Create(s).Error
}

// IncrementPINAttempts bumps the durable failed-attempt counter and stamps
// the attempt time. RowsAffected == 0 surfaces as ErrNotFound.
func IncrementPINAttempts(ctx context.Context, db *gorm.DB, phone string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("phone = ?", phone).
		Updates(map[string]any{
			"pin_attempts":     gorm.Expr("pin_attempts + 1"),
			"last_pin_attempt": now,
			"updated_at":       now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetPINAttempts clears the durable failed-attempt counter, called after a
// successful PIN check or a fresh PIN set.
func ResetPINAttempts(ctx context.Context, db *gorm.DB, phone string) error {
	res := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("phone = ?", phone).
		Updates(map[string]any{
			"pin_attempts":     0,
			"last_pin_attempt": nil,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetSessionToReady moves a session back to the idle "ready" step with an
// empty scratch payload. Used by the payment reconciler once a charge is
// confirmed. Missing rows are not an error; there is nothing to reset.
func ResetSessionToReady(ctx context.Context, db *gorm.DB, phone string) error {
	// Struct-based update so the JSON serializer applies to Tmp.
	return db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("phone = ?", phone).
		Select("step", "tmp", "updated_at").
		Updates(domain.Session{
			Step:      domain.StepReady,
			Tmp:       domain.SessionScratch{},
			UpdatedAt: time.Now().UTC(),
		}).Error
}

// DeleteExpiredSessions removes all sessions whose expiry is at or before
// `now` and returns the number of rows deleted.
func DeleteExpiredSessions(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&domain.Session{})
	return res.RowsAffected, res.Error
}
