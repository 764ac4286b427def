// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the structured access logger. It scrubs
// personal data from request metadata before emitting logs and attaches the
// request-scoped logger used by handlers.
//
// What is scrubbed:
//   - UUIDs, email addresses, Norwegian national identity numbers (11 digits),
//     phone numbers and payment card tokens in query strings and header values
//   - sensitive headers (Authorization, Cookie, Set-Cookie, plus custom ones),
//     which are masked entirely
//
// Bodies are never logged.
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-User-ID"},
//	    SkipPaths:   []string{"/health", "/metrics"},
//	}))
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RedactOptions configures RedactingLogger.
//
// MaskHeaders specifies extra HTTP header names whose values will be fully
// replaced with "[REDACTED]". Matching is case-insensitive and merged with
// built-in sensitive headers ("Authorization", "Cookie", "Set-Cookie").
//
// SkipPaths lists route paths whose successful requests are not logged.
type RedactOptions struct {
	MaskHeaders []string
	SkipPaths   []string
}

// Order matters: IDs, then tokens, then email, national IDs and phone
// numbers (phone is the loosest pattern).
var (
	uuidRE      = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	cardTokenRE = regexp.MustCompile(`\b(?:tok|card|chrg)_[A-Za-z0-9_]+\b`)
	emailRE     = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	nationalRE  = regexp.MustCompile(`\b\d{6}[ ]?\d{5}\b`)
	phoneRE     = regexp.MustCompile(`(?:\+47[ .-]?)?\b\d{2,3}[ .-]?\d{2}[ .-]?\d{3}\b|\b\d{8}\b`)
)

// redact scrubs personal data from s.
func redact(s string) string {
	if s == "" {
		return s
	}
	out := uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	out = cardTokenRE.ReplaceAllString(out, "[REDACTED:token]")
	out = emailRE.ReplaceAllString(out, "[REDACTED:email]")
	out = nationalRE.ReplaceAllString(out, "[REDACTED:nin]")
	out = phoneRE.ReplaceAllString(out, "[REDACTED:phone]")
	return out
}

// RedactingLogger returns a Gin middleware that logs HTTP requests and
// responses with sensitive values scrubbed.
//
// Behavior:
//   - Attaches the request-scoped logger (request_id, user_id) before the
//     handler runs, so LoggerFrom works downstream.
//   - Logs method, route, scrubbed query, status, response size, latency,
//     client IP and scrubbed request headers.
//   - Level: error for 5xx or when Gin collected errors, warn for 4xx,
//     info otherwise.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}
	skip := make(map[string]struct{}, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		lg := attachLogger(c)

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := truncate(redact(c.Request.URL.RawQuery), maxQueryLogLength)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redact(strings.Join(vv, ", "))
		}

		c.Next()

		status := c.Writer.Status()
		if _, ok := skip[path]; ok && status < 400 {
			return
		}

		ev := lg.Info()
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = lg.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", c.Errors.String())
			}
		case status >= 400:
			ev = lg.Warn()
		}

		ev.
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", safeQuery).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
