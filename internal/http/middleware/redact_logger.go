// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the structured access logger the
// router installs. It scrubs obvious PII from request metadata before
// emitting logs, which matters here: webhook traffic identifies real people
// by phone number and carries their email addresses during onboarding.
//
// Design goals:
//   - Default-safe: never logs request or response bodies (the inbound chat
//     body may contain a raw PIN)
//   - Redacts chat addresses ("whatsapp:+234..."), emails, phone numbers,
//     and UUID-like identifiers
//   - Masks sensitive headers (Authorization, Cookie, Set-Cookie, and the
//     payment provider's verif-hash variants, plus custom ones)
//   - Attaches the request-scoped zerolog.Logger (see LoggerFrom)
//
// Security note: this reduces but does not eliminate the risk of sensitive
// data leaking to logs; upstream platforms should still avoid PII in query
// strings where possible.
package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders specifies extra HTTP header names whose values will be fully
// replaced with "[REDACTED]". Matching is case-insensitive and merged with
// the built-in sensitive headers.
type RedactOptions struct {
	MaskHeaders []string
}

// RedactingLogger returns a Gin middleware that logs HTTP requests and
// responses with sensitive values scrubbed.
//
// Behavior:
//   - Logs method, path, query string, status, response size, latency,
//     and request headers (with scrubbing applied).
//   - Applies regex-based substitution to redact chat addresses, email
//     addresses, phone numbers, and UUID-like identifiers from query
//     strings and header values.
//   - Fully masks built-in sensitive headers (Authorization, Cookie,
//     Set-Cookie, verif-hash, verif_hash) and any additional headers in
//     opts.MaskHeaders.
//   - Stores a request-scoped logger under the "logger" context key so
//     handlers and services can emit correlated logs.
//
// NOTE: redact UUIDs *before* phone numbers so the phone pattern cannot
// match the digit/hyphen segments of a UUID, and chat addresses before
// bare phones so the platform prefix is scrubbed together with the number.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	// Compile regex patterns once.
	uuidRE := regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	chatAddrRE := regexp.MustCompile(`(?i)\bwhatsapp:\+?\d{6,15}\b`)
	emailRE := regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits-only phone pattern (prevents matching hex characters from UUIDs).
	phoneRE := regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)

	redact := func(s string) string {
		if s == "" {
			return s
		}
		out := s
		// Order matters: IDs → chat addresses → email → phone (loosest last).
		out = uuidRE.ReplaceAllString(out, "[REDACTED:id]")
		out = chatAddrRE.ReplaceAllString(out, "[REDACTED:chat_addr]")
		out = emailRE.ReplaceAllString(out, "[REDACTED:email]")
		out = phoneRE.ReplaceAllString(out, "[REDACTED:phone]")
		return out
	}

	// Build header mask set (case-insensitive).
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
		"verif-hash":    {},
		"verif_hash":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		// Request path and query.
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		// Decode percent-escapes before scrubbing so an encoded prefix
		// ("%2B234...") cannot shield a phone number from the patterns.
		rawQuery := c.Request.URL.RawQuery
		if unescaped, err := url.QueryUnescape(rawQuery); err == nil {
			rawQuery = unescaped
		}
		safeQuery := redact(rawQuery)

		// Scrub headers.
		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			keyLower := strings.ToLower(k)
			val := strings.Join(vv, ", ")
			if _, ok := maskHeaders[keyLower]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redact(val)
		}

		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}

		// Request-scoped logger for handlers and services.
		l := log.With().
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set("logger", &l)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		size := c.Writer.Size()

		// Severity based on status.
		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}

		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", size).
			Dur("latency", latency).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
