// Package services – CleanupService
//
// This file implements the expired-session sweep. It is invoked from the ops
// endpoint and can equally be driven by an external scheduler hitting that
// endpoint. Every sweep, successful or not, leaves an audit trail.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/lexipay/go-payments-backend/internal/domain"
	"github.com/lexipay/go-payments-backend/internal/repo"
)

// Attribution used for audit rows written by system-initiated jobs.
const (
	systemPhone      = "system"
	cleanupUserAgent = "cleanup-job"
)

// CleanupResult reports one expired-session sweep.
type CleanupResult struct {
	DeletedCount int64     `json:"deleted_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// CleanupService deletes sessions past their expiry.
type CleanupService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Audit records the sweep outcome; may be nil in tests.
	Audit *AuditService

	// now is a clock seam for tests.
	now func() time.Time
}

// NewCleanupService wires a CleanupService.
func NewCleanupService(db *gorm.DB, audit *AuditService) *CleanupService {
	return &CleanupService{DB: db, Audit: audit}
}

func (s *CleanupService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// Run deletes all expired sessions and returns how many were removed.
func (s *CleanupService) Run(ctx context.Context) (CleanupResult, error) {
	now := s.clock()
	meta := RequestMeta{IPAddress: systemPhone, UserAgent: cleanupUserAgent}

	deleted, err := repo.DeleteExpiredSessions(ctx, s.DB, now)
	if err != nil {
		log.Error().Err(err).Msg("session cleanup failed")
		s.Audit.Record(ctx, systemPhone, domain.AuditSessionCleanupError, map[string]any{
			"error": err.Error(),
		}, meta)
		return CleanupResult{}, err
	}

	log.Info().Int64("deleted_count", deleted).Msg("session cleanup completed")
	s.Audit.Record(ctx, systemPhone, domain.AuditSessionCleanupDone, map[string]any{
		"deleted_count": deleted,
	}, meta)
	return CleanupResult{DeletedCount: deleted, Timestamp: now}, nil
}
