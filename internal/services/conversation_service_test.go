package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lexipay/go-payments-backend/internal/domain"
	"github.com/lexipay/go-payments-backend/internal/gateway"
	"github.com/lexipay/go-payments-backend/internal/security"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:convsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Session{}, &domain.SecurityAudit{}, &domain.PaymentReceipt{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type sentMsg struct {
	To   string
	Body string
}

type fakeMessenger struct {
	sent []sentMsg
	err  error
}

func (f *fakeMessenger) Send(_ context.Context, to, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMsg{To: to, Body: body})
	return nil
}

func (f *fakeMessenger) last(t *testing.T) sentMsg {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatalf("no message sent")
	}
	return f.sent[len(f.sent)-1]
}

type fakeLinks struct {
	calls int
	link  string
	err   error

	gotAmount int64
	gotPhone  string
	gotMeta   map[string]string
}

func (f *fakeLinks) CreateLink(_ context.Context, amount int64, phone string, meta map[string]string) (gateway.PaymentLink, error) {
	f.calls++
	f.gotAmount = amount
	f.gotPhone = phone
	f.gotMeta = meta
	return gateway.PaymentLink{Link: f.link, TxRef: "tx-1700000000000-42"}, f.err
}

func newConvService(db *gorm.DB, m *fakeMessenger, l *fakeLinks) *ConversationService {
	return NewConversationService(
		db, m, l,
		security.NewPINHasher("test_salt"),
		security.NewAttemptLimiter(3, 15*time.Minute),
		NewAuditService(db),
		24*time.Hour, 3, 15*time.Minute,
	)
}

func seedSession(t *testing.T, db *gorm.DB, s domain.Session) {
	t.Helper()
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = time.Now().UTC().Add(time.Hour)
	}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func loadSession(t *testing.T, db *gorm.DB, phone string) domain.Session {
	t.Helper()
	var s domain.Session
	if err := db.Where("phone = ?", phone).First(&s).Error; err != nil {
		t.Fatalf("load session: %v", err)
	}
	return s
}

func auditCount(t *testing.T, db *gorm.DB, eventType string) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&domain.SecurityAudit{}).Where("event_type = ?", eventType).Count(&n).Error; err != nil {
		t.Fatalf("count audit: %v", err)
	}
	return n
}

const phone = "whatsapp:+2348012345678"

// ---------- HandleMessage ----------

func TestHandleMessage_EmptySender(t *testing.T) {
	s := newConvService(newSvcDB(t), &fakeMessenger{}, &fakeLinks{})
	if err := s.HandleMessage(context.Background(), "  ", "hi", RequestMeta{}); !errors.Is(err, ErrEmptySender) {
		t.Fatalf("expected ErrEmptySender, got %v", err)
	}
}

func TestHandleMessage_FirstContactSendsWelcome(t *testing.T) {
	db := newSvcDB(t)
	m := &fakeMessenger{}
	s := newConvService(db, m, &fakeLinks{})

	if err := s.HandleMessage(context.Background(), phone, "hi", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := m.last(t); got.To != phone || got.Body != replyWelcome {
		t.Fatalf("unexpected reply: %+v", got)
	}
	if sess := loadSession(t, db, phone); sess.Step != domain.StepAskEmail {
		t.Fatalf("step = %q, want ask_email", sess.Step)
	}
}

func TestHandleMessage_AskEmail(t *testing.T) {
	db := newSvcDB(t)
	m := &fakeMessenger{}
	s := newConvService(db, m, &fakeLinks{})
	seedSession(t, db, domain.Session{Phone: phone, Step: domain.StepAskEmail})

	if err := s.HandleMessage(context.Background(), phone, "not-an-email", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := m.last(t); got.Body != replyBadEmail {
		t.Fatalf("reply = %q, want invalid-email", got.Body)
	}
	if sess := loadSession(t, db, phone); sess.Step != domain.StepAskEmail {
		t.Fatalf("step advanced on invalid email: %q", sess.Step)
	}

	if err := s.HandleMessage(context.Background(), phone, "name@example.com", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := m.last(t); got.Body != replyAskPIN {
		t.Fatalf("reply = %q, want ask-PIN", got.Body)
	}
	sess := loadSession(t, db, phone)
	if sess.Step != domain.StepSetPIN || sess.Email != "name@example.com" {
		t.Fatalf("session = step %q email %q", sess.Step, sess.Email)
	}
}

func TestHandleMessage_SetPIN(t *testing.T) {
	db := newSvcDB(t)
	m := &fakeMessenger{}
	s := newConvService(db, m, &fakeLinks{})
	seedSession(t, db, domain.Session{Phone: phone, Step: domain.StepSetPIN})

	if err := s.HandleMessage(context.Background(), phone, "12", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := m.last(t); got.Body != replyBadPIN {
		t.Fatalf("reply = %q, want bad-PIN", got.Body)
	}

	if err := s.HandleMessage(context.Background(), phone, "1234", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := m.last(t); got.Body != replySetupDone {
		t.Fatalf("reply = %q, want setup-done", got.Body)
	}
	sess := loadSession(t, db, phone)
	if sess.Step != domain.StepReady {
		t.Fatalf("step = %q, want ready", sess.Step)
	}
	if want := security.NewPINHasher("test_salt").Hash("1234"); sess.PINHash != want {
		t.Fatalf("pin hash mismatch")
	}
}

func TestHandleMessage_SetPINClearsAttemptCounters(t *testing.T) {
	db := newSvcDB(t)
	m := &fakeMessenger{}
	l := &fakeLinks{link: "https://pay.example/abc"}
	s := newConvService(db, m, l)

	lastAttempt := time.Now().UTC().Add(-time.Minute)
	seedSession(t, db, domain.Session{
		Phone:          phone,
		Step:           domain.StepSetPIN,
		PINAttempts:    3,
		LastPINAttempt: &lastAttempt,
	})

	if err := s.HandleMessage(context.Background(), phone, "1234", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := m.last(t); got.Body != replySetupDone {
		t.Fatalf("reply = %q, want setup-done", got.Body)
	}
	sess := loadSession(t, db, phone)
	if sess.PINAttempts != 0 || sess.LastPINAttempt != nil {
		t.Fatalf("attempt counters survived new PIN: %d %v", sess.PINAttempts, sess.LastPINAttempt)
	}

	// The first confirmation after setting the new PIN must go through.
	if err := s.HandleMessage(context.Background(), phone, "send 5000 to 0123456789", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if err := s.HandleMessage(context.Background(), phone, "1234", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	got := m.last(t)
	if got.Body == replyRateLimited {
		t.Fatalf("fresh PIN still rate limited")
	}
	if !strings.Contains(got.Body, l.link) {
		t.Fatalf("reply = %q, want payment link", got.Body)
	}
}

func TestHandleMessage_ReadyParsesTransferCommand(t *testing.T) {
	db := newSvcDB(t)
	m := &fakeMessenger{}
	s := newConvService(db, m, &fakeLinks{})
	seedSession(t, db, domain.Session{Phone: phone, Step: domain.StepReady})

	if err := s.HandleMessage(context.Background(), phone, "please send 5k to 0123456789", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	got := m.last(t)
	if !strings.Contains(got.Body, "₦5,000") || !strings.Contains(got.Body, "0123456789") {
		t.Fatalf("confirm reply = %q", got.Body)
	}
	sess := loadSession(t, db, phone)
	if sess.Step != domain.StepConfirmPIN {
		t.Fatalf("step = %q, want confirm_pin", sess.Step)
	}
	if sess.Tmp.Amount != 5000 || sess.Tmp.Account != "0123456789" {
		t.Fatalf("tmp = %+v", sess.Tmp)
	}
}

func TestHandleMessage_ReadyUsageHint(t *testing.T) {
	db := newSvcDB(t)
	m := &fakeMessenger{}
	s := newConvService(db, m, &fakeLinks{})
	seedSession(t, db, domain.Session{Phone: phone, Step: domain.StepReady})

	if err := s.HandleMessage(context.Background(), phone, "what can you do?", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := m.last(t); got.Body != replyUsageHint {
		t.Fatalf("reply = %q, want usage hint", got.Body)
	}
	if sess := loadSession(t, db, phone); sess.Step != domain.StepReady {
		t.Fatalf("step = %q, want ready", sess.Step)
	}
}

func confirmSession(hash string) domain.Session {
	return domain.Session{
		Phone:   phone,
		Step:    domain.StepConfirmPIN,
		PINHash: hash,
		Tmp:     domain.SessionScratch{Amount: 5000, Account: "0123456789"},
	}
}

func TestHandleMessage_ConfirmPIN_Success(t *testing.T) {
	db := newSvcDB(t)
	m := &fakeMessenger{}
	l := &fakeLinks{link: "https://pay.example/abc"}
	s := newConvService(db, m, l)
	seedSession(t, db, confirmSession(security.NewPINHasher("test_salt").Hash("1234")))

	if err := s.HandleMessage(context.Background(), phone, "1234", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	got := m.last(t)
	if !strings.Contains(got.Body, "https://pay.example/abc") {
		t.Fatalf("reply = %q, want link", got.Body)
	}
	if l.calls != 1 || l.gotAmount != 5000 || l.gotMeta["account"] != "0123456789" {
		t.Fatalf("link call = %d amount %d meta %v", l.calls, l.gotAmount, l.gotMeta)
	}
	sess := loadSession(t, db, phone)
	if sess.Step != domain.StepAwaitPayment {
		t.Fatalf("step = %q, want await_payment", sess.Step)
	}
	if sess.Tmp.TxRef == "" {
		t.Fatalf("tx_ref not stored")
	}
	if sess.PINAttempts != 0 {
		t.Fatalf("attempts = %d, want 0", sess.PINAttempts)
	}
	if auditCount(t, db, domain.AuditPINVerified) != 1 {
		t.Fatalf("missing pin_verified audit event")
	}
	if auditCount(t, db, domain.AuditPaymentLinkCreated) != 1 {
		t.Fatalf("missing payment_link_created audit event")
	}
}

func TestHandleMessage_ConfirmPIN_Mismatch(t *testing.T) {
	db := newSvcDB(t)
	m := &fakeMessenger{}
	l := &fakeLinks{link: "https://pay.example/abc"}
	s := newConvService(db, m, l)
	seedSession(t, db, confirmSession(security.NewPINHasher("test_salt").Hash("1234")))

	if err := s.HandleMessage(context.Background(), phone, "9999", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := m.last(t); got.Body != replyPINIncorrect {
		t.Fatalf("reply = %q, want incorrect-PIN", got.Body)
	}
	if l.calls != 0 {
		t.Fatalf("link created on mismatch")
	}
	sess := loadSession(t, db, phone)
	if sess.Step != domain.StepConfirmPIN || sess.PINAttempts != 1 || sess.LastPINAttempt == nil {
		t.Fatalf("session = step %q attempts %d", sess.Step, sess.PINAttempts)
	}
	if auditCount(t, db, domain.AuditPINVerificationFailed) != 1 {
		t.Fatalf("missing pin_verification_failed audit event")
	}
}

func TestHandleMessage_ConfirmPIN_FourthAttemptRefused(t *testing.T) {
	db := newSvcDB(t)
	m := &fakeMessenger{}
	l := &fakeLinks{link: "https://pay.example/abc"}
	s := newConvService(db, m, l)
	seedSession(t, db, confirmSession(security.NewPINHasher("test_salt").Hash("1234")))

	for i := 0; i < 3; i++ {
		if err := s.HandleMessage(context.Background(), phone, "0000", RequestMeta{}); err != nil {
			t.Fatalf("HandleMessage #%d: %v", i, err)
		}
	}
	// Correct PIN on the 4th try must be refused without a hash check.
	if err := s.HandleMessage(context.Background(), phone, "1234", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := m.last(t); got.Body != replyRateLimited {
		t.Fatalf("reply = %q, want rate-limited", got.Body)
	}
	if l.calls != 0 {
		t.Fatalf("link created while rate limited")
	}
	if sess := loadSession(t, db, phone); sess.Step != domain.StepConfirmPIN {
		t.Fatalf("step = %q, want confirm_pin", sess.Step)
	}
	if auditCount(t, db, domain.AuditPINRateLimited) != 1 {
		t.Fatalf("missing pin_rate_limited audit event")
	}
}

func TestHandleMessage_ConfirmPIN_DurableCounterBlocks(t *testing.T) {
	db := newSvcDB(t)
	m := &fakeMessenger{}
	l := &fakeLinks{link: "https://pay.example/abc"}
	s := newConvService(db, m, l)

	// Simulate attempts persisted by a previous process: the in-process
	// limiter is empty but the durable counter is maxed out.
	now := time.Now().UTC()
	sess := confirmSession(security.NewPINHasher("test_salt").Hash("1234"))
	sess.PINAttempts = 3
	sess.LastPINAttempt = &now
	seedSession(t, db, sess)

	if err := s.HandleMessage(context.Background(), phone, "1234", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := m.last(t); got.Body != replyRateLimited {
		t.Fatalf("reply = %q, want rate-limited", got.Body)
	}
	if l.calls != 0 {
		t.Fatalf("link created while rate limited")
	}
}

func TestHandleMessage_ConfirmPIN_DurableWindowRolls(t *testing.T) {
	db := newSvcDB(t)
	m := &fakeMessenger{}
	l := &fakeLinks{link: "https://pay.example/abc"}
	s := newConvService(db, m, l)

	past := time.Now().UTC().Add(-20 * time.Minute)
	sess := confirmSession(security.NewPINHasher("test_salt").Hash("1234"))
	sess.PINAttempts = 3
	sess.LastPINAttempt = &past
	seedSession(t, db, sess)

	if err := s.HandleMessage(context.Background(), phone, "1234", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := m.last(t); !strings.Contains(got.Body, "https://pay.example/abc") {
		t.Fatalf("reply = %q, want link after window rolled", got.Body)
	}
	if sess := loadSession(t, db, phone); sess.PINAttempts != 0 {
		t.Fatalf("attempts = %d, want reset", sess.PINAttempts)
	}
}

func TestHandleMessage_ConfirmPIN_LinkFailure(t *testing.T) {
	db := newSvcDB(t)
	m := &fakeMessenger{}
	l := &fakeLinks{err: errors.New("provider down")}
	s := newConvService(db, m, l)
	seedSession(t, db, confirmSession(security.NewPINHasher("test_salt").Hash("1234")))

	if err := s.HandleMessage(context.Background(), phone, "1234", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := m.last(t); got.Body != replyLinkFailed {
		t.Fatalf("reply = %q, want link-failed", got.Body)
	}
	sess := loadSession(t, db, phone)
	if sess.Step != domain.StepAwaitPayment || sess.Tmp.TxRef == "" {
		t.Fatalf("session = step %q tx_ref %q", sess.Step, sess.Tmp.TxRef)
	}
	if auditCount(t, db, domain.AuditPaymentLinkFailed) != 1 {
		t.Fatalf("missing payment_link_failed audit event")
	}
}

func TestHandleMessage_AwaitPayment(t *testing.T) {
	db := newSvcDB(t)
	m := &fakeMessenger{}
	s := newConvService(db, m, &fakeLinks{})
	seedSession(t, db, domain.Session{Phone: phone, Step: domain.StepAwaitPayment})

	if err := s.HandleMessage(context.Background(), phone, "anything", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := m.last(t); got.Body != replyAwaiting {
		t.Fatalf("reply = %q, want awaiting", got.Body)
	}
}

func TestHandleMessage_UnknownStepResets(t *testing.T) {
	db := newSvcDB(t)
	m := &fakeMessenger{}
	s := newConvService(db, m, &fakeLinks{})
	seedSession(t, db, domain.Session{
		Phone: phone,
		Step:  "bogus_step",
		Tmp:   domain.SessionScratch{Amount: 100},
	})

	if err := s.HandleMessage(context.Background(), phone, "hello", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := m.last(t); got.Body != replySayHi {
		t.Fatalf("reply = %q, want say-hi", got.Body)
	}
	sess := loadSession(t, db, phone)
	if sess.Step != domain.StepStart || !sess.Tmp.Empty() {
		t.Fatalf("session = step %q tmp %+v", sess.Step, sess.Tmp)
	}
}

func TestHandleMessage_ExpiredSessionStartsOver(t *testing.T) {
	db := newSvcDB(t)
	m := &fakeMessenger{}
	s := newConvService(db, m, &fakeLinks{})
	seedSession(t, db, domain.Session{
		Phone:     phone,
		Step:      domain.StepReady,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	})

	if err := s.HandleMessage(context.Background(), phone, "hello", RequestMeta{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := m.last(t); got.Body != replyWelcome {
		t.Fatalf("reply = %q, want welcome for expired session", got.Body)
	}
}

func TestHandleMessage_ReplyFailureReported(t *testing.T) {
	db := newSvcDB(t)
	m := &fakeMessenger{err: errors.New("twilio down")}
	s := newConvService(db, m, &fakeLinks{})

	err := s.HandleMessage(context.Background(), phone, "hi", RequestMeta{})
	if !errors.Is(err, ErrReplyFailed) {
		t.Fatalf("expected ErrReplyFailed, got %v", err)
	}
	// State is persisted before the reply attempt.
	if sess := loadSession(t, db, phone); sess.Step != domain.StepAskEmail {
		t.Fatalf("step = %q, want ask_email despite send failure", sess.Step)
	}
}
