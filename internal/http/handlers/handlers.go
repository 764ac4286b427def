// Package handlers exposes the marketplace REST endpoints.
//
// Handlers are transport-thin: they bind and check request shapes, resolve
// the caller from the auth middleware, call the application services and
// translate results into HTTP responses (including conditional responses and
// idempotent replays).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/auth"
	"github.com/tbourn/nabostylisten-backend/internal/http/middleware"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
	"github.com/tbourn/nabostylisten-backend/internal/services"
	"github.com/tbourn/nabostylisten-backend/internal/utils"
)

// Handlers groups the HTTP endpoints. Every service must be set; DB backs
// the idempotency records.
type Handlers struct {
	DB         *gorm.DB
	Catalog    *services.CatalogService
	Profiles   *services.ProfileService
	Bookings   *services.BookingService
	Chats      *services.ChatService
	Reviews    *services.ReviewService
	Affiliates *services.AffiliateService
	Discounts  *services.DiscountService
	Payments   *services.PaymentService

	// IdempotencyTTL bounds how long a replayable result is kept.
	IdempotencyTTL time.Duration
}

// Idempotency scopes.
const (
	scopeBookings      = "bookings"
	scopeRefundsPrefix = "refunds:"
)

// IdempotencyScope names the idempotent operation a request performs, or ""
// when the route is not idempotent. Used by middleware.IdempotencyValidator.
func IdempotencyScope(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	p := c.FullPath()
	switch {
	case strings.HasSuffix(p, "/admin/payments/:id/refunds"):
		return scopeRefundsPrefix + c.Param("id")
	case strings.HasSuffix(p, "/bookings"):
		return scopeBookings
	}
	return ""
}

// IdempotencyLookup adapts the idempotency table to middleware.IdempotencyLookup.
func IdempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
		_, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, repo.ErrNotFound):
			return false, nil
		}
		return false, err
	}
}

// actor returns the authenticated caller. Routes are mounted behind
// auth.Required, so an anonymous caller here maps to a zero Actor that every
// service rejects.
func actor(c *gin.Context) services.Actor {
	id, _ := auth.From(c)
	return services.Actor{ID: id.ProfileID, Role: id.Role}
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	tp := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: tp,
		HasNext:    page < tp,
	}
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// notModified sets a weak ETag derived from (count, latest update) and
// reports whether the client's If-None-Match already matches it.
func notModified(c *gin.Context, prefix string, count int64, maxTS *time.Time, page, pageSize int) bool {
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	etag := fmt.Sprintf(`W/"%s:%d:%d:%d:%d"`, prefix, count, ts, page, pageSize)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// replayed loads the completed request for (caller, scope, Idempotency-Key)
// that the idempotency middleware detected. On a hit it returns the recorded
// resource id and status.
func (h *Handlers) replayed(c *gin.Context, scope string) (resourceID string, status int, hit bool) {
	key, ok := middleware.GetIdempotencyKey(c)
	if !ok || h.DB == nil || !middleware.IsReplay(c) {
		return "", 0, false
	}
	rec, err := repo.GetIdempotency(c.Request.Context(), h.DB, actor(c).ID, scope, key, time.Now().UTC())
	if err != nil || rec == nil {
		return "", 0, false
	}
	c.Header("Idempotency-Replayed", "true")
	return rec.ResourceID, rec.Status, true
}

// remember records a completed request for later replays. Best effort.
func (h *Handlers) remember(c *gin.Context, scope, resourceID string, status int) {
	key, ok := middleware.GetIdempotencyKey(c)
	if !ok || h.DB == nil {
		return
	}
	ttl := h.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if _, err := repo.CreateIdempotency(c.Request.Context(), h.DB, actor(c).ID, scope, key, resourceID, status, ttl); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency record failed")
	}
}

// parseTime accepts RFC 3339 timestamps. Empty input yields nil.
func parseTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
