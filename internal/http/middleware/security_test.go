package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func secRouter(opt SecurityOptions, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	for _, mw := range pre {
		r.Use(mw)
	}
	r.Use(SecurityHeaders(opt))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	r := secRouter(SecurityOptions{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	h := w.Header()
	if h.Get("X-Content-Type-Options") != "nosniff" ||
		h.Get("X-Frame-Options") != "DENY" ||
		h.Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("baseline headers missing: %#v", h)
	}
	if h.Get("Cache-Control") != "" || h.Get("Permissions-Policy") != "" {
		t.Fatalf("optional headers emitted when disabled: %#v", h)
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("unexpected HSTS over plain HTTP: %#v", h)
	}
}

func TestSecurityHeaders_NoStoreAndPolicy(t *testing.T) {
	r := secRouter(SecurityOptions{NoStore: true, EnablePolicy: true})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	h := w.Header()
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" || h.Get("Expires") != "0" {
		t.Fatalf("cache headers = %#v", h)
	}
	if h.Get("X-Permitted-Cross-Domain-Policies") != "none" || h.Get("Permissions-Policy") == "" {
		t.Fatalf("policy headers = %#v", h)
	}
}

func TestSecurityHeaders_HSTSOnlyBehindHTTPS(t *testing.T) {
	r := secRouter(SecurityOptions{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS emitted for plain HTTP")
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	r.ServeHTTP(w, req)
	got := w.Header().Get("Strict-Transport-Security")
	if !strings.HasPrefix(got, "max-age=86400") || !strings.Contains(got, "includeSubDomains") {
		t.Fatalf("HSTS = %q", got)
	}
}

func TestSecurityHeaders_ExposesRequestID(t *testing.T) {
	setRID := func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-123")
		c.Next()
	}

	r := secRouter(SecurityOptions{}, setRID)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if got := w.Header().Get("Access-Control-Expose-Headers"); got != "X-Request-ID" {
		t.Fatalf("expose header = %q", got)
	}

	// Appends without clobbering an existing expose list.
	withExisting := func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-123")
		c.Header("Access-Control-Expose-Headers", "Foo")
		c.Next()
	}
	r = secRouter(SecurityOptions{}, withExisting)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if got := w.Header().Get("Access-Control-Expose-Headers"); got != "Foo, X-Request-ID" {
		t.Fatalf("expose header = %q", got)
	}
}
