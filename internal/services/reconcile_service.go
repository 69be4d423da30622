// Package services – ReconcileService
//
// This file implements payment webhook reconciliation: a provider event
// reporting a completed charge is verified, deduplicated by transaction
// reference, confirmed back to the payer over chat, and the payer's session
// is returned to the ready state for the next transfer.
package services

import (
	"context"
	"errors"
	"strings"

	"crypto/subtle"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/lexipay/go-payments-backend/internal/domain"
	"github.com/lexipay/go-payments-backend/internal/gateway"
	"github.com/lexipay/go-payments-backend/internal/repo"
)

// Provider event and data status values that identify a successful charge.
const (
	eventChargeCompleted = "charge.completed"
	statusSuccessful     = "successful"
)

var paymentConfirmations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "payment_confirmations_total",
		Help: "Payment webhook events processed, by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(paymentConfirmations)
}

// PaymentEvent is the subset of the provider webhook payload the reconciler
// reads. Unknown fields are ignored.
type PaymentEvent struct {
	Event string           `json:"event"`
	Data  PaymentEventData `json:"data"`
}

// PaymentEventData carries the charge details of a PaymentEvent.
type PaymentEventData struct {
	Status   string           `json:"status"`
	Amount   float64          `json:"amount"`
	TxRef    string           `json:"tx_ref"`
	Customer PaymentCustomer  `json:"customer"`
	Meta     PaymentEventMeta `json:"meta"`
}

// PaymentCustomer identifies the paying customer in a provider event.
type PaymentCustomer struct {
	Phonenumber string `json:"phonenumber"`
}

// PaymentEventMeta echoes the metadata attached at link-creation time.
type PaymentEventMeta struct {
	Account string `json:"account"`
	Phone   string `json:"phone"`
}

// ReconcileService processes provider payment webhooks.
type ReconcileService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Messenger delivers the chat confirmation to the payer.
	Messenger gateway.Messenger
	// Audit records security events; may be nil in tests.
	Audit *AuditService

	// WebhookHash is the shared secret expected in the provider's
	// verif-hash header. Empty disables verification.
	WebhookHash string
}

// NewReconcileService wires a ReconcileService.
func NewReconcileService(db *gorm.DB, m gateway.Messenger, audit *AuditService, webhookHash string) *ReconcileService {
	return &ReconcileService{DB: db, Messenger: m, Audit: audit, WebhookHash: webhookHash}
}

// CheckSignature validates the provider's verif-hash header value against the
// configured shared secret. Verification is skipped entirely when no secret
// is configured. A mismatch is recorded as an audit event and returned as
// ErrInvalidSignature.
func (s *ReconcileService) CheckSignature(ctx context.Context, signature string, meta RequestMeta) error {
	if s.WebhookHash == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(signature), []byte(s.WebhookHash)) == 1 {
		return nil
	}
	s.Audit.Record(ctx, "system", domain.AuditWebhookBadSignature, nil, meta)
	return ErrInvalidSignature
}

// HandleEvent reconciles one provider event. Events that are not successful
// completed charges are acknowledged without action. Replays of an already
// recorded transaction reference are acknowledged without re-notifying the
// payer. Notification and session-reset failures are logged and audited but
// never fail the webhook; the provider must not retry a payment we have
// already recorded.
func (s *ReconcileService) HandleEvent(ctx context.Context, ev PaymentEvent, meta RequestMeta) error {
	tr := otel.Tracer("services/ReconcileService")
	ctx, span := tr.Start(ctx, "HandleEvent",
		trace.WithAttributes(
			attribute.String("payment.event", ev.Event),
			attribute.String("payment.tx_ref", ev.Data.TxRef),
		),
	)
	defer span.End()

	if ev.Event != eventChargeCompleted || ev.Data.Status != statusSuccessful {
		paymentConfirmations.WithLabelValues("ignored").Inc()
		return nil
	}

	phone := strings.TrimSpace(ev.Data.Customer.Phonenumber)
	if phone == "" {
		paymentConfirmations.WithLabelValues("missing_phone").Inc()
		s.Audit.Record(ctx, "system", domain.AuditPaymentMissingPhone, map[string]any{
			"tx_ref": ev.Data.TxRef,
		}, meta)
		return nil
	}
	to := phone
	if !strings.HasPrefix(to, "whatsapp:") {
		to = "whatsapp:" + to
	}

	account := ev.Data.Meta.Account
	if account == "" {
		account = "the destination account"
	}
	amount := int64(ev.Data.Amount)

	// Record the receipt first so a provider retry of the same tx_ref is a
	// no-op even if the steps below only partially succeeded last time.
	if ev.Data.TxRef != "" {
		err := repo.CreateReceipt(ctx, s.DB, &domain.PaymentReceipt{
			TxRef:   ev.Data.TxRef,
			Phone:   to,
			Account: account,
			Amount:  amount,
		})
		if errors.Is(err, repo.ErrDuplicate) {
			paymentConfirmations.WithLabelValues("duplicate").Inc()
			log.Info().Str("tx_ref", ev.Data.TxRef).Msg("duplicate payment event acknowledged")
			return nil
		}
		if err != nil {
			paymentConfirmations.WithLabelValues("error").Inc()
			return err
		}
	}

	confirmation := naira.Sprintf("Payment received ✅\n₦%d approved.\nTransfer to %s confirmed.", amount, account)
	if err := s.Messenger.Send(ctx, to, confirmation); err != nil {
		log.Error().Err(err).Str("phone", to).Str("tx_ref", ev.Data.TxRef).Msg("payment confirmation delivery failed")
		s.Audit.Record(ctx, to, domain.AuditPaymentNotifyFailed, map[string]any{
			"tx_ref": ev.Data.TxRef,
		}, meta)
	}

	if err := repo.ResetSessionToReady(ctx, s.DB, to); err != nil && !errors.Is(err, repo.ErrNotFound) {
		log.Error().Err(err).Str("phone", to).Msg("failed to reset session after payment")
	}

	paymentConfirmations.WithLabelValues("confirmed").Inc()
	s.Audit.Record(ctx, to, domain.AuditPaymentConfirmed, map[string]any{
		"tx_ref":  ev.Data.TxRef,
		"amount":  amount,
		"account": account,
	}, meta)
	return nil
}
