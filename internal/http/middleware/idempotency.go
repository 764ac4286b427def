// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key header on booking and refund
// requests. A key is namespaced by caller and scope, so the same key may be
// reused for a booking and for a refund without colliding. The middleware
// never serves a stored result itself: it marks replays so the handler can
// load the original resource and the rate limiter can let the retry through.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client's key for a retryable write.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

// defaultKeyMaxLen and defaultKeyPattern apply when IdempotencyOptions
// leaves them unset. Client libraries send UUIDs; the pattern also admits
// "booking-<timestamp>" style keys.
const defaultKeyMaxLen = 200

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key, if the request carried one.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IsReplay reports whether a completed result already exists for the
// caller, scope and key of this request.
func IsReplay(c *gin.Context) bool { return c.GetBool(ctxKeyIdemReplay) }

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
	// Scope names the operation ("bookings", "refunds:<payment id>").
	// An empty result skips the replay lookup.
	Scope func(c *gin.Context) string
	// Now defaults to time.Now.
	Now func() time.Time
}

// IdempotencyLookup reports whether an unexpired result is stored for
// (userID, scope, key).
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator rejects malformed keys with 400, stores valid ones
// in the context and flags replays found by lookup. A failed lookup is
// logged and the request proceeds as a first attempt; the handler still
// dedupes on insert.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultKeyMaxLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "Idempotency-Key must be 1-" + strconv.Itoa(maxLen) + " characters of A-Z a-z 0-9 . _ ~ - :",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup == nil || opts.Scope == nil {
			c.Next()
			return
		}
		uid, scope := userIDFromCtx(c), opts.Scope(c)
		if uid == "" || scope == "" {
			c.Next()
			return
		}
		exists, err := lookup(c.Request.Context(), uid, scope, key, now().UTC())
		switch {
		case err != nil:
			LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
		case exists:
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	}
}

func userIDFromCtx(c *gin.Context) string { return c.GetString("userID") }
