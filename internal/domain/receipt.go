// Package domain defines the core persistence models for the application.
package domain

import "time"

// PaymentReceipt records a payment-provider confirmation that has already
// been processed, keyed by the provider transaction reference. It makes
// webhook delivery idempotent: a replayed "charge.completed" event for a
// tx_ref that already has a receipt is logged and otherwise ignored, so the
// user is never notified twice for the same charge.
type PaymentReceipt struct {
	TxRef     string    `gorm:"type:varchar(64);primaryKey"`
	Phone     string    `gorm:"type:varchar(64);not null;index"`
	Account   string    `gorm:"type:varchar(16);not null"`
	Amount    int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (PaymentReceipt) TableName() string { return "payment_receipts" }
