// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// PaymentReceipt model used to deduplicate provider webhook deliveries.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/lexipay/go-payments-backend/internal/domain"
)

// ErrDuplicate indicates that a receipt already exists for the given tx_ref.
var ErrDuplicate = errors.New("duplicate")

// CreateReceipt inserts a receipt and returns ErrDuplicate when the tx_ref
// was already recorded, which callers treat as a webhook replay.
func CreateReceipt(ctx context.Context, db *gorm.DB, rec *domain.PaymentReceipt) error {
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetReceipt fetches a receipt by tx_ref, or ErrNotFound.
func GetReceipt(ctx context.Context, db *gorm.DB, txRef string) (*domain.PaymentReceipt, error) {
	var rec domain.PaymentReceipt
	err := db.WithContext(ctx).Where("tx_ref = ?", txRef).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
