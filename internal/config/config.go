// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, messaging and payment
// provider credentials, PIN security, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "lexipay-payments")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// TwilioConfig holds the WhatsApp messaging gateway credentials.
type TwilioConfig struct {
	AccountSID string // TWILIO_ACCOUNT_SID
	AuthToken  string // TWILIO_AUTH_TOKEN
	From       string // TWILIO_WHATSAPP_FROM (e.g. "whatsapp:+14155238886")
	APIBaseURL string // TWILIO_API_URL override for tests
}

// FlutterwaveConfig holds the payment provider settings.
//
// WebhookHash is the shared secret compared against the verif-hash header on
// inbound provider callbacks. An empty value disables verification; this is
// an explicit, logged operational mode, not a hidden bypass.
type FlutterwaveConfig struct {
	SecretKey   string // FLUTTERWAVE_SECRET_KEY (bearer token)
	WebhookHash string // FLUTTERWAVE_WEBHOOK_HASH
	APIBaseURL  string // FLUTTERWAVE_API_URL
	RedirectURL string // PAYMENT_REDIRECT_URL for created links
}

// VerificationEnabled reports whether webhook signature verification is on.
func (f FlutterwaveConfig) VerificationEnabled() bool { return f.WebhookHash != "" }

// PINConfig groups the PIN security knobs.
type PINConfig struct {
	Salt          string        // PIN_SALT: HMAC key for PIN digests
	MaxAttempts   int           // PIN_MAX_ATTEMPTS per window (default 3)
	AttemptWindow time.Duration // PIN_ATTEMPT_WINDOW (default 15m)
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route

	// App
	DBPath     string        // SQLite path
	SessionTTL time.Duration // how long an idle session stays valid

	// Gateways
	Twilio      TwilioConfig
	Flutterwave FlutterwaveConfig

	// PIN security
	PIN PINConfig

	// Edge rate limiting (token bucket per sender)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),

		// App
		DBPath:     getenv("DB_PATH", "app.db"),
		SessionTTL: getdur("SESSION_TTL", 24*time.Hour),

		// Gateways
		Twilio: TwilioConfig{
			AccountSID: getenv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getenv("TWILIO_AUTH_TOKEN", ""),
			From:       getenv("TWILIO_WHATSAPP_FROM", ""),
			APIBaseURL: getenv("TWILIO_API_URL", "https://api.twilio.com"),
		},
		Flutterwave: FlutterwaveConfig{
			SecretKey:   getenv("FLUTTERWAVE_SECRET_KEY", ""),
			WebhookHash: getenv("FLUTTERWAVE_WEBHOOK_HASH", ""),
			APIBaseURL:  getenv("FLUTTERWAVE_API_URL", "https://api.flutterwave.com"),
			RedirectURL: getenv("PAYMENT_REDIRECT_URL", ""),
		},

		// PIN security
		PIN: PINConfig{
			Salt:          getenv("PIN_SALT", "lexipay_salt"),
			MaxAttempts:   getint("PIN_MAX_ATTEMPTS", 3),
			AttemptWindow: getdur("PIN_ATTEMPT_WINDOW", 15*time.Minute),
		},

		// Edge rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "lexipay-payments"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	cfg.Flutterwave.APIBaseURL = strings.TrimRight(cfg.Flutterwave.APIBaseURL, "/")
	cfg.Twilio.APIBaseURL = strings.TrimRight(cfg.Twilio.APIBaseURL, "/")

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.SessionTTL <= 0 {
		return cfg, errors.New("SESSION_TTL must be > 0")
	}
	if strings.TrimSpace(cfg.PIN.Salt) == "" {
		return cfg, errors.New("PIN_SALT must not be empty")
	}
	if cfg.PIN.MaxAttempts < 1 {
		return cfg, errors.New("PIN_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.PIN.AttemptWindow <= 0 {
		return cfg, errors.New("PIN_ATTEMPT_WINDOW must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
