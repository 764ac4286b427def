package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

// Context keys. "userID" is shared with the logging, rate limit and
// idempotency middleware.
const (
	userIDKey   = "userID"
	identityKey = "identity"

	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

// Middleware authenticates requests.
type Middleware struct {
	Tokens     *Tokens
	DevHeaders bool
}

// Authenticate resolves the caller from a bearer token, or from the
// X-User-ID / X-User-Role headers when DevHeaders is on. Anonymous requests
// pass through; use Required or RequireRole to reject them.
func (m Middleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h := c.GetHeader("Authorization"); h != "" {
			raw, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || m.Tokens == nil {
				abort(c, http.StatusUnauthorized, "unauthorized", "invalid authorization header")
				return
			}
			id, err := m.Tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				abort(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			set(c, id)
			c.Next()
			return
		}
		if m.DevHeaders {
			if uid := strings.TrimSpace(c.GetHeader(headerUserID)); uid != "" {
				role := domain.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(headerUserRole))))
				if role == "" {
					role = domain.RoleCustomer
				}
				if !role.Valid() {
					abort(c, http.StatusUnauthorized, "unauthorized", "unknown role")
					return
				}
				set(c, Identity{ProfileID: uid, Role: role})
			}
		}
		c.Next()
	}
}

// Required rejects anonymous requests with 401.
func Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := From(c); !ok {
			abort(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		c.Next()
	}
}

// RequireRole rejects anonymous callers with 401 and callers holding none of
// roles with 403.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := From(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "forbidden", "insufficient role")
	}
}

// From returns the identity stored by Authenticate.
func From(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// With stores id in the context. Meant for tests and internal callers.
func With(c *gin.Context, id Identity) { set(c, id) }

func set(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
	c.Set(userIDKey, id.ProfileID)
}

func abort(c *gin.Context, status int, code, msg string) {
	rid, _ := c.Get("requestID")
	s, _ := rid.(string)
	c.AbortWithStatusJSON(status, gin.H{"request_id": s, "code": code, "message": msg})
}
