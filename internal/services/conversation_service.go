// Package services – ConversationService
//
// This file implements the conversational state machine that drives the
// chat-based transfer flow. Each inbound message advances a persisted
// per-phone session through onboarding (email, PIN setup) and into the
// transfer loop (parse command, confirm with PIN, issue payment link).
//
// Concurrency: session mutations for one phone are serialized through a
// per-phone lock so that near-simultaneous webhook deliveries cannot
// interleave read-modify-write cycles within this process. Across multiple
// instances the last write wins; only the persisted PIN attempt counter is
// authoritative there.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"

	"github.com/lexipay/go-payments-backend/internal/domain"
	"github.com/lexipay/go-payments-backend/internal/gateway"
	"github.com/lexipay/go-payments-backend/internal/parser"
	"github.com/lexipay/go-payments-backend/internal/repo"
	"github.com/lexipay/go-payments-backend/internal/security"
)

// Reply texts sent back over the messaging gateway. Kept as constants so
// tests can assert on them verbatim.
const (
	replyWelcome      = "Welcome to LexiPay AI (by ODIA.dev). Please reply with your email to continue."
	replyBadEmail     = "That email looks invalid. Please send a valid email (e.g., name@example.com)."
	replyAskPIN       = "Great. Now set a 4-digit PIN (e.g., 1234). You'll use this to confirm transfers."
	replyBadPIN       = "PIN must be 4 digits. Try again."
	replySetupDone    = "Setup done ✅\nTry: \"send 5000 to 0123456789\""
	replyUsageHint    = "Try a command like: \"send 5000 to 0123456789\""
	replyRateLimited  = "Too many PIN attempts. Please wait a few minutes and try again."
	replyPINIncorrect = "❌ PIN incorrect. Try again."
	replyLinkFailed   = "Could not create payment link at the moment. Please try again in a bit."
	replyAwaiting     = "Your payment link has already been sent. Once payment succeeds, we'll confirm here ✅"
	replySayHi        = "Say \"hi\" to begin."
)

// PINConfirmAction keys the in-process attempt limiter for PIN confirmation.
const PINConfirmAction = "pin_confirm"

// emailRE accepts a pragmatic "standard email shape": one @, no whitespace,
// and a dotted domain. Deliverability is not our problem here.
var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	// convMessages counts handled inbound messages by the step the session
	// was in when the message arrived.
	convMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_messages_total",
			Help: "Inbound chat messages handled, by session step.",
		},
		[]string{"step"},
	)

	// convPaymentLinks counts payment link creations by outcome.
	convPaymentLinks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_payment_links_total",
			Help: "Payment link creation attempts, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(convMessages, convPaymentLinks)
}

// naira renders whole-Naira amounts with thousands separators ("₦5,000").
var naira = message.NewPrinter(language.English)

// ConversationService advances per-phone chat sessions and sends replies.
type ConversationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Messenger delivers outbound chat replies.
	Messenger gateway.Messenger
	// Links creates provider payment links.
	Links gateway.LinkCreator
	// Hasher computes and verifies salted PIN digests.
	Hasher *security.PINHasher
	// Attempts is the in-process sliding-window PIN attempt limiter.
	Attempts *security.AttemptLimiter
	// Audit records security events; may be nil in tests.
	Audit *AuditService

	// SessionTTL is the idle expiry applied on every session save.
	SessionTTL time.Duration
	// MaxPINAttempts bounds the persisted failed-attempt counter.
	MaxPINAttempts int
	// PINWindow is the lockout window for the persisted counter.
	PINWindow time.Duration

	// now is a clock seam for tests.
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*phoneLock
}

type phoneLock struct {
	mu   sync.Mutex
	refs int
}

// NewConversationService wires a ConversationService with its dependencies.
func NewConversationService(db *gorm.DB, m gateway.Messenger, l gateway.LinkCreator, h *security.PINHasher, a *security.AttemptLimiter, audit *AuditService, ttl time.Duration, maxAttempts int, window time.Duration) *ConversationService {
	return &ConversationService{
		DB:             db,
		Messenger:      m,
		Links:          l,
		Hasher:         h,
		Attempts:       a,
		Audit:          audit,
		SessionTTL:     ttl,
		MaxPINAttempts: maxAttempts,
		PINWindow:      window,
	}
}

func (s *ConversationService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// lockPhone serializes session handling for one phone within this process.
// The returned func releases the lock and drops the entry once unreferenced.
func (s *ConversationService) lockPhone(phone string) func() {
	s.mu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*phoneLock)
	}
	l := s.locks[phone]
	if l == nil {
		l = &phoneLock{}
		s.locks[phone] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, phone)
		}
		s.mu.Unlock()
	}
}

// HandleMessage processes one inbound chat message from phone and sends the
// resulting reply. The session (created on first contact) is persisted before
// the reply goes out, so a messaging failure never loses state; such failures
// are reported as ErrReplyFailed so the transport can signal a retry.
func (s *ConversationService) HandleMessage(ctx context.Context, phone, text string, meta RequestMeta) error {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "HandleMessage",
		trace.WithAttributes(attribute.String("session.phone", phone)),
	)
	defer span.End()

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ErrEmptySender
	}
	text = strings.TrimSpace(text)

	unlock := s.lockPhone(phone)
	defer unlock()

	now := s.clock()
	sess, err := repo.GetSession(ctx, s.DB, phone, now)
	if errors.Is(err, repo.ErrNotFound) {
		sess, err = repo.CreateSession(ctx, s.DB, phone, s.SessionTTL)
	}
	if err != nil {
		return err
	}

	convMessages.WithLabelValues(string(sess.Step)).Inc()
	span.SetAttributes(attribute.String("session.step", string(sess.Step)))

	reply := s.advance(ctx, sess, text, meta, now)

	if err := repo.SaveSession(ctx, s.DB, sess, s.SessionTTL); err != nil {
		return err
	}
	if err := s.Messenger.Send(ctx, phone, reply); err != nil {
		log.Warn().Err(err).Str("phone", phone).Msg("reply delivery failed")
		return fmt.Errorf("%w: %v", ErrReplyFailed, err)
	}
	return nil
}

// advance applies one transition of the state machine, mutating sess in
// place, and returns the reply to send. It never fails: provider errors
// surface as apologetic replies, not aborted conversations.
func (s *ConversationService) advance(ctx context.Context, sess *domain.Session, text string, meta RequestMeta, now time.Time) string {
	switch sess.Step {
	case domain.StepStart:
		sess.Step = domain.StepAskEmail
		sess.Tmp = domain.SessionScratch{}
		return replyWelcome

	case domain.StepAskEmail:
		if !emailRE.MatchString(text) {
			return replyBadEmail
		}
		sess.Email = text
		sess.Step = domain.StepSetPIN
		return replyAskPIN

	case domain.StepSetPIN:
		if !security.ValidPINFormat(text) {
			return replyBadPIN
		}
		sess.PINHash = s.Hasher.Hash(security.NormalizePIN(text))
		// A fresh PIN starts with a clean slate in both rate-limit layers.
		sess.PINAttempts = 0
		sess.LastPINAttempt = nil
		s.Attempts.Reset(sess.Phone, PINConfirmAction)
		sess.Step = domain.StepReady
		sess.Tmp = domain.SessionScratch{}
		return replySetupDone

	case domain.StepReady:
		intent, ok := parser.ParseTransferCommand(text)
		if !ok {
			return replyUsageHint
		}
		sess.Tmp = domain.SessionScratch{Amount: intent.Amount, Account: intent.Account}
		sess.Step = domain.StepConfirmPIN
		return naira.Sprintf("Confirm transfer of ₦%d to %s.\nEnter your 4-digit PIN to approve.", intent.Amount, intent.Account)

	case domain.StepConfirmPIN:
		return s.confirmPIN(ctx, sess, text, meta, now)

	case domain.StepAwaitPayment:
		return replyAwaiting

	default:
		sess.Step = domain.StepStart
		sess.Tmp = domain.SessionScratch{}
		return replySayHi
	}
}

// confirmPIN handles the confirm_pin step: both rate-limit layers must permit
// the attempt before any hash comparison happens, a mismatch increments the
// durable counter, and a match resets the counters and requests a payment
// link for the pending intent.
func (s *ConversationService) confirmPIN(ctx context.Context, sess *domain.Session, text string, meta RequestMeta, now time.Time) string {
	if !s.durableAllow(ctx, sess, now) || !s.Attempts.Allow(sess.Phone, PINConfirmAction) {
		s.Audit.Record(ctx, sess.Phone, domain.AuditPINRateLimited, map[string]any{
			"attempts": sess.PINAttempts,
		}, meta)
		return replyRateLimited
	}

	pin := security.NormalizePIN(text)
	if !s.Hasher.Verify(pin, sess.PINHash) {
		if err := repo.IncrementPINAttempts(ctx, s.DB, sess.Phone, now); err != nil {
			log.Warn().Err(err).Str("phone", sess.Phone).Msg("failed to increment pin attempts")
		}
		sess.PINAttempts++
		sess.LastPINAttempt = &now
		s.Audit.Record(ctx, sess.Phone, domain.AuditPINVerificationFailed, map[string]any{
			"attempts": sess.PINAttempts,
		}, meta)
		return replyPINIncorrect
	}

	if err := repo.ResetPINAttempts(ctx, s.DB, sess.Phone); err != nil {
		log.Warn().Err(err).Str("phone", sess.Phone).Msg("failed to reset pin attempts")
	}
	sess.PINAttempts = 0
	sess.LastPINAttempt = nil
	s.Attempts.Reset(sess.Phone, PINConfirmAction)
	s.Audit.Record(ctx, sess.Phone, domain.AuditPINVerified, nil, meta)

	link, err := s.Links.CreateLink(ctx, sess.Tmp.Amount, sess.Phone, map[string]string{
		"account": sess.Tmp.Account,
		"phone":   sess.Phone,
	})
	sess.Tmp.TxRef = link.TxRef
	sess.Step = domain.StepAwaitPayment

	if err != nil || link.Link == "" {
		log.Error().Err(err).Str("phone", sess.Phone).Str("tx_ref", link.TxRef).Msg("payment link creation failed")
		convPaymentLinks.WithLabelValues("failed").Inc()
		s.Audit.Record(ctx, sess.Phone, domain.AuditPaymentLinkFailed, map[string]any{
			"tx_ref": link.TxRef,
			"amount": sess.Tmp.Amount,
		}, meta)
		return replyLinkFailed
	}

	convPaymentLinks.WithLabelValues("created").Inc()
	s.Audit.Record(ctx, sess.Phone, domain.AuditPaymentLinkCreated, map[string]any{
		"tx_ref":  link.TxRef,
		"amount":  sess.Tmp.Amount,
		"account": sess.Tmp.Account,
	}, meta)
	return "Approve this payment to complete your transfer:\n" + link.Link
}

// durableAllow checks the persisted attempt counter. Once the counter hits
// MaxPINAttempts further attempts are refused until PINWindow has elapsed
// since the last one, at which point the counter is cleared.
func (s *ConversationService) durableAllow(ctx context.Context, sess *domain.Session, now time.Time) bool {
	if s.MaxPINAttempts <= 0 || sess.PINAttempts < s.MaxPINAttempts {
		return true
	}
	if sess.LastPINAttempt != nil && now.Sub(*sess.LastPINAttempt) < s.PINWindow {
		return false
	}
	if err := repo.ResetPINAttempts(ctx, s.DB, sess.Phone); err != nil {
		log.Warn().Err(err).Str("phone", sess.Phone).Msg("failed to reset pin attempts")
	}
	sess.PINAttempts = 0
	sess.LastPINAttempt = nil
	return true
}
