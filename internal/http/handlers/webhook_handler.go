// Webhook HTTP handlers.
//
// This file exposes the two platform-facing endpoints:
//   - POST /webhooks/whatsapp     (inbound chat message, form-encoded)
//   - POST /webhooks/flutterwave  (payment provider callback, JSON)
//
// Handlers are transport-thin: they extract the payload, call application
// services, and translate results into the exact response shapes the
// external platforms expect.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lexipay/go-payments-backend/internal/domain"
	"github.com/lexipay/go-payments-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// ConversationService drives the chat state machine for inbound messages.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ConversationService interface {
	// HandleMessage advances the sender's session and sends the reply.
	HandleMessage(ctx context.Context, phone, text string, meta services.RequestMeta) error
}

// ReconcileService verifies and processes payment provider callbacks.
type ReconcileService interface {
	// CheckSignature validates the provider's shared-secret header.
	CheckSignature(ctx context.Context, signature string, meta services.RequestMeta) error
	// HandleEvent reconciles one provider event.
	HandleEvent(ctx context.Context, ev services.PaymentEvent, meta services.RequestMeta) error
}

// CleanupService sweeps expired sessions.
type CleanupService interface {
	// Run deletes expired sessions and reports how many were removed.
	Run(ctx context.Context) (services.CleanupResult, error)
}

// AuditService lists recorded security events.
type AuditService interface {
	// List returns a page of audit events, newest first, plus the total.
	List(ctx context.Context, eventType string, page, pageSize int) ([]domain.SecurityAudit, int64, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for webhooks and ops. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	convSvc    ConversationService
	reconSvc   ReconcileService
	cleanupSvc CleanupService
	auditSvc   AuditService
}

// New constructs a Handlers instance bound to the given services.
func New(conv ConversationService, recon ReconcileService, cleanup CleanupService, audit AuditService) *Handlers {
	return &Handlers{convSvc: conv, reconSvc: recon, cleanupSvc: cleanup, auditSvc: audit}
}

// requestMeta captures caller attribution for audit rows.
func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

//
// Handlers
//

// InboundMessage godoc
// @ID          inboundMessage
// @Summary     Inbound chat message webhook
// @Description Receives a form-encoded message from the messaging platform and advances the sender's conversation. Always answers plain "OK" on handled paths; the reply itself goes out over the messaging API.
// @Tags        Webhooks
// @Accept      x-www-form-urlencoded
// @Produce     plain
//
// @Param       From  formData  string  true  "Sender address"  example(whatsapp:+2348012345678)
// @Param       Body  formData  string  false "Message text"    example(send 5000 to 0123456789)
//
// @Success     200  {string}  string  "OK"
// @Failure     400  {object}  handlers.WebhookError  "Missing sender"
// @Failure     500  {object}  handlers.WebhookError  "Server error"
// @Router      /webhooks/whatsapp [post]
func (h *Handlers) InboundMessage(c *gin.Context) {
	from := strings.TrimSpace(c.PostForm("From"))
	body := c.PostForm("Body")

	err := h.convSvc.HandleMessage(c.Request.Context(), from, body, requestMeta(c))
	switch {
	case err == nil:
		c.String(http.StatusOK, "OK")
	case errors.Is(err, services.ErrEmptySender):
		webhookError(c, http.StatusBadRequest, ErrCodeBadRequest)
	default:
		// Includes reply delivery failures: the platform retries delivery
		// and the handler re-enters with a fresh session load.
		webhookError(c, http.StatusInternalServerError, ErrCodeServerError)
	}
}

// PaymentEvent godoc
// @ID          paymentEvent
// @Summary     Payment provider webhook
// @Description Verifies the verif-hash shared secret, then reconciles a completed charge: confirmation message to the payer and session reset. Replayed transaction references are acknowledged without re-notifying.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       verif-hash  header  string  false "Shared-secret signature"
// @Param       body        body    services.PaymentEvent  true  "Provider event payload"
//
// @Success     200  {object}  map[string]bool  "{\"ok\": true}"
// @Failure     401  {object}  handlers.WebhookError  "Invalid signature"
// @Failure     500  {object}  handlers.WebhookError  "Server error"
// @Router      /webhooks/flutterwave [post]
func (h *Handlers) PaymentEvent(c *gin.Context) {
	ctx := c.Request.Context()
	meta := requestMeta(c)

	sig := c.GetHeader("verif-hash")
	if sig == "" {
		sig = c.GetHeader("verif_hash")
	}
	if err := h.reconSvc.CheckSignature(ctx, sig, meta); err != nil {
		webhookError(c, http.StatusUnauthorized, ErrCodeInvalidSignature)
		return
	}

	var ev services.PaymentEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		webhookError(c, http.StatusInternalServerError, ErrCodeServerError)
		return
	}

	if err := h.reconSvc.HandleEvent(ctx, ev, meta); err != nil {
		webhookError(c, http.StatusInternalServerError, ErrCodeServerError)
		return
	}
	ok(c, http.StatusOK, gin.H{"ok": true})
}
