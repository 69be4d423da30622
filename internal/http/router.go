// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Webhook endpoints keep the exact wire shapes the platforms expect
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/lexipay/go-payments-backend/internal/config"
	"github.com/lexipay/go-payments-backend/internal/gateway"
	"github.com/lexipay/go-payments-backend/internal/http/handlers"
	"github.com/lexipay/go-payments-backend/internal/http/middleware"
	"github.com/lexipay/go-payments-backend/internal/security"
	"github.com/lexipay/go-payments-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine: the two platform webhooks, the internal ops endpoints, and the
// health/metrics/docs surface.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics
//  8. Rate limiter (per webhook sender, IP fallback)
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (webhook bodies are never logged)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (256 KiB is plenty for webhook payloads)
	r.Use(limitBody(256 << 10))

	// 6) Compress JSON responses (audit listings in particular)
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per webhook sender (IP fallback)
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyBySenderOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "verif-hash", "verif_hash"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "verif-hash", "verif_hash"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true, // webhook and audit responses should not be cached
		EnablePolicy: true,
	}))

	// Fallbacks keep the platform-facing body shape.
	r.NoRoute(func(c *gin.Context) {
		handlers.WebhookFail(c, http.StatusNotFound, handlers.ErrCodeNotFound)
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.WebhookFail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed)
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← gateways/db/config
	messenger := gateway.NewTwilioClient(
		cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From, cfg.Twilio.APIBaseURL,
	)
	links := gateway.NewFlutterwaveClient(
		cfg.Flutterwave.SecretKey, cfg.Flutterwave.APIBaseURL, cfg.Flutterwave.RedirectURL,
	)

	auditSvc := services.NewAuditService(db)
	convSvc := services.NewConversationService(
		db, messenger, links,
		security.NewPINHasher(cfg.PIN.Salt),
		security.NewAttemptLimiter(cfg.PIN.MaxAttempts, cfg.PIN.AttemptWindow),
		auditSvc,
		cfg.SessionTTL, cfg.PIN.MaxAttempts, cfg.PIN.AttemptWindow,
	)
	reconSvc := services.NewReconcileService(db, messenger, auditSvc, cfg.Flutterwave.WebhookHash)
	cleanupSvc := services.NewCleanupService(db, auditSvc)

	h := handlers.New(convSvc, reconSvc, cleanupSvc, auditSvc)

	// Platform webhooks
	hooks := r.Group("/webhooks")
	{
		hooks.POST("/whatsapp", h.InboundMessage)
		hooks.POST("/flutterwave", h.PaymentEvent)
	}

	// Ops (deploy behind network-level access control)
	internal := r.Group("/internal")
	{
		internal.POST("/cleanup-sessions", h.CleanupSessions)
		internal.GET("/audit", h.ListAudit)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
