package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

const secret = "0123456789abcdef0123"

func TestIssueParse_RoundTrip(t *testing.T) {
	tk := NewTokens(secret, time.Hour)
	raw, err := tk.Issue(Identity{ProfileID: "p1", Role: domain.RoleStylist, Email: "p1@example.com"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	id, err := tk.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id.ProfileID != "p1" || id.Role != domain.RoleStylist || id.Email != "p1@example.com" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestParse_Rejects(t *testing.T) {
	tk := NewTokens(secret, time.Hour)
	raw, _ := tk.Issue(Identity{ProfileID: "p1", Role: domain.RoleCustomer})

	other := NewTokens("another-secret-of-len", time.Hour)
	if _, err := other.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret: want ErrInvalidToken, got %v", err)
	}

	tk.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := tk.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired: want ErrInvalidToken, got %v", err)
	}

	if _, err := NewTokens("", time.Hour).Parse(raw); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("no secret: want ErrNoSecret, got %v", err)
	}
	if _, err := tk.Issue(Identity{ProfileID: "p1", Role: "root"}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("bad role: want ErrInvalidToken, got %v", err)
	}
}

func newRouter(m Middleware, guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(m.Authenticate())
	r.GET("/x", guard, func(c *gin.Context) {
		id, _ := From(c)
		uid, _ := c.Get("userID")
		c.String(http.StatusOK, "%s|%s|%v", id.ProfileID, id.Role, uid)
	})
	return r
}

func do(r http.Handler, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate_Bearer(t *testing.T) {
	tk := NewTokens(secret, time.Hour)
	raw, _ := tk.Issue(Identity{ProfileID: "admin-1", Role: domain.RoleAdmin})
	r := newRouter(Middleware{Tokens: tk}, RequireRole(domain.RoleAdmin))

	w := do(r, map[string]string{"Authorization": "Bearer " + raw})
	if w.Code != http.StatusOK || w.Body.String() != "admin-1|admin|admin-1" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}

	w = do(r, map[string]string{"Authorization": "Bearer garbage"})
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), `"code":"unauthorized"`) {
		t.Fatalf("garbage token: got %d %s", w.Code, w.Body.String())
	}
	w = do(r, map[string]string{"Authorization": "Basic abc"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("basic auth: got %d", w.Code)
	}
}

func TestAuthenticate_DevHeaders(t *testing.T) {
	r := newRouter(Middleware{DevHeaders: true}, Required())

	w := do(r, map[string]string{"X-User-ID": "c1"})
	if w.Code != http.StatusOK || w.Body.String() != "c1|customer|c1" {
		t.Fatalf("default role: got %d %q", w.Code, w.Body.String())
	}
	w = do(r, map[string]string{"X-User-ID": "s1", "X-User-Role": "Stylist"})
	if w.Body.String() != "s1|stylist|s1" {
		t.Fatalf("explicit role: got %q", w.Body.String())
	}
	if w = do(r, map[string]string{"X-User-ID": "s1", "X-User-Role": "root"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown role: got %d", w.Code)
	}
	if w = do(r, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: got %d", w.Code)
	}

	off := newRouter(Middleware{}, Required())
	if w = do(off, map[string]string{"X-User-ID": "c1"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("dev headers disabled: got %d", w.Code)
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	r := newRouter(Middleware{DevHeaders: true}, RequireRole(domain.RoleAdmin, domain.RoleStylist))
	if w := do(r, map[string]string{"X-User-ID": "c1", "X-User-Role": "customer"}); w.Code != http.StatusForbidden {
		t.Fatalf("customer on admin route: got %d", w.Code)
	}
	if w := do(r, map[string]string{"X-User-ID": "s1", "X-User-Role": "stylist"}); w.Code != http.StatusOK {
		t.Fatalf("stylist allowed: got %d", w.Code)
	}
}
