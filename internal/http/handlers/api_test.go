package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/auth"
	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/events"
	"github.com/tbourn/nabostylisten-backend/internal/http/middleware"
	"github.com/tbourn/nabostylisten-backend/internal/locks"
	"github.com/tbourn/nabostylisten-backend/internal/payments"
	"github.com/tbourn/nabostylisten-backend/internal/repo/repotest"
	"github.com/tbourn/nabostylisten-backend/internal/services"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// caller is a dev-header identity.
type caller struct {
	id   string
	role domain.Role
}

var (
	asCustomer = caller{"cust", domain.RoleCustomer}
	asStylist  = caller{"sty", domain.RoleStylist}
	asAdmin    = caller{"adm", domain.RoleAdmin}
	asOutsider = caller{"other", domain.RoleCustomer}
	anonymous  = caller{}
)

// testAPI serves the handlers over an in-memory database with the fake
// payment provider and a movable clock.
type testAPI struct {
	db   *gorm.DB
	fake *payments.FakeProvider
	h    *Handlers
	r    *gin.Engine

	mu  sync.Mutex
	now time.Time
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	a := &testAPI{db: repotest.NewDB(t), fake: payments.NewFakeProvider(), now: t0}
	clock := services.Clock(func() time.Time {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.now
	})
	bus := events.NewBus()

	repotest.Profile(t, a.db, asCustomer.id, domain.RoleCustomer)
	repotest.Profile(t, a.db, asOutsider.id, domain.RoleCustomer)
	repotest.Profile(t, a.db, asStylist.id, domain.RoleStylist)
	repotest.Profile(t, a.db, asAdmin.id, domain.RoleAdmin)
	repotest.Service(t, a.db, "svc", asStylist.id, 60000, 60)

	catalog := services.NewCatalogService(a.db)
	if err := catalog.Reindex(context.Background()); err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	affiliates := services.NewAffiliateService(a.db)
	affiliates.Now = clock
	a.h = &Handlers{
		DB:       a.db,
		Catalog:  catalog,
		Profiles: &services.ProfileService{DB: a.db, Events: bus},
		Bookings: &services.BookingService{
			DB:       a.db,
			Provider: a.fake,
			Locks:    locks.NewMemory(),
			Events:   bus,
			Now:      clock,
			Policy: services.BookingPolicy{
				Currency:             domain.CurrencyNOK,
				PlatformFeePercent:   20,
				CancellationWindow:   24 * time.Hour,
				LateCancelFeePercent: 50,
				MinLead:              time.Hour,
				CaptureLead:          24 * time.Hour,
				LockTTL:              time.Second,
			},
		},
		Chats:          &services.ChatService{DB: a.db, Events: bus, Now: clock},
		Reviews:        &services.ReviewService{DB: a.db, Now: clock},
		Affiliates:     affiliates,
		Discounts:      &services.DiscountService{DB: a.db, Now: clock},
		Payments:       &services.PaymentService{DB: a.db, Provider: a.fake, Events: bus, PlatformFeePercent: 20, Now: clock},
		IdempotencyTTL: time.Hour,
	}

	r := gin.New()
	r.Use(auth.Middleware{DevHeaders: true}.Authenticate())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{Scope: IdempotencyScope}, IdempotencyLookup(a.db)))
	a.routes(r)
	a.r = r
	return a
}

// routes mirrors the API surface without the cross-cutting middleware.
func (a *testAPI) routes(r *gin.Engine) {
	h := a.h
	r.GET("/services", h.SearchServices)
	r.GET("/services/:id", h.GetService)
	r.GET("/stylists/:id/reviews", h.ListStylistReviews)
	r.GET("/affiliate/click/:code", h.TrackAffiliateClick)

	user := r.Group("", auth.Required())
	user.POST("/services", h.CreateService)
	user.PUT("/services/:id", h.UpdateService)
	user.PUT("/services/:id/published", h.SetServicePublished)
	user.GET("/me/profile", h.GetMyProfile)
	user.PUT("/me/profile", h.PutMyProfile)
	user.POST("/me/addresses", h.AddMyAddress)
	user.POST("/bookings", h.CreateBooking)
	user.GET("/bookings", h.ListBookings)
	user.GET("/bookings/:id", h.GetBooking)
	user.POST("/bookings/:id/confirm", h.ConfirmBooking)
	user.POST("/bookings/:id/decline", h.DeclineBooking)
	user.POST("/bookings/:id/cancel", h.CancelBooking)
	user.POST("/bookings/:id/complete", h.CompleteBooking)
	user.GET("/bookings/:id/messages", h.ListMessages)
	user.POST("/bookings/:id/messages", h.PostMessage)
	user.POST("/bookings/:id/messages/read", h.MarkMessagesRead)
	user.POST("/bookings/:id/review", h.CreateReview)
	user.POST("/affiliate/link", h.CreateAffiliateLink)
	user.GET("/affiliate/link", h.GetAffiliateLink)
	user.GET("/affiliate/commissions", h.ListAffiliateCommissions)
	user.GET("/discounts/:code/validate", h.ValidateDiscount)

	admin := r.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.GET("/payments", h.ListPayments)
	admin.GET("/payments/export.csv", h.ExportPaymentsCSV)
	admin.GET("/payments/export.xlsx", h.ExportPaymentsXLSX)
	admin.GET("/payments/:id", h.GetPayment)
	admin.POST("/payments/:id/refunds", h.RefundPayment)
	admin.POST("/discounts", h.CreateDiscount)
	admin.POST("/affiliate/commissions/:id/paid", h.MarkCommissionPaid)
}

func (a *testAPI) setNow(t time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = t
}

// do sends a request as who. body is JSON-encoded unless it is a string.
func (a *testAPI) do(t *testing.T, who caller, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if who.id != "" {
		req.Header.Set("X-User-ID", who.id)
		req.Header.Set("X-User-Role", string(who.role))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

// book creates a booking of svc two days ahead and returns it.
func (a *testAPI) book(t *testing.T, headers ...string) domain.Booking {
	t.Helper()
	w := a.do(t, asCustomer, http.MethodPost, "/bookings", map[string]any{
		"service_ids": []string{"svc"},
		"start_time":  "2026-03-04T10:00:00Z",
		"card_token":  "tok_visa",
	}, headers...)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /bookings status=%d body=%s", w.Code, w.Body.String())
	}
	var b domain.Booking
	decode(t, w, &b)
	return b
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("json: %v; body=%s", err, w.Body.String())
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var er ErrorResponse
	decode(t, w, &er)
	return er.Code
}
