package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// captureLogs redirects the global zerolog logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = orig })
	return &buf
}

func TestRedactingLogger_ScrubsQueryAndHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/internal/audit", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/internal/audit?email=name@example.com&phone=%2B2348012345678", nil)
	req.Header.Set("X-Api-Key", "supersecret")
	req.Header.Set("X-Caller", "whatsapp:+2348012345678")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, leaked := range []string{"name@example.com", "2348012345678", "supersecret"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("log leaked %q:\n%s", leaked, out)
		}
	}
	for _, marker := range []string{"[REDACTED:email]", "[REDACTED]", "[REDACTED:chat_addr]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("log missing %q:\n%s", marker, out)
		}
	}
}

func TestRedactingLogger_MasksSignatureHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.POST("/webhooks/flutterwave", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/webhooks/flutterwave", nil)
	req.Header.Set("verif-hash", "sharedsecretvalue")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if strings.Contains(buf.String(), "sharedsecretvalue") {
		t.Fatalf("verif-hash value leaked to logs:\n%s", buf.String())
	}
}

func TestRedactingLogger_AttachesRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	captureLogs(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(RedactingLogger(RedactOptions{}))
	var attached bool
	r.GET("/health", func(c *gin.Context) {
		if _, ok := c.Get("logger"); ok {
			attached = true
		}
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if !attached {
		t.Fatalf("request-scoped logger not attached")
	}
}
