package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/services"
)

// capturedPayment books, confirms and completes svc and returns its payment.
func (a *testAPI) capturedPayment(t *testing.T) domain.Payment {
	t.Helper()
	b := a.book(t)
	a.do(t, asStylist, http.MethodPost, "/bookings/"+b.ID+"/confirm", nil)
	a.setNow(b.StartTime.Add(2 * time.Hour))
	if w := a.do(t, asStylist, http.MethodPost, "/bookings/"+b.ID+"/complete", nil); w.Code != http.StatusOK {
		t.Fatalf("complete status=%d body=%s", w.Code, w.Body.String())
	}
	w := a.do(t, asCustomer, http.MethodGet, "/bookings/"+b.ID, nil)
	var d services.BookingDetail
	decode(t, w, &d)
	if d.Payment == nil || d.Payment.Status != domain.PaymentSucceeded {
		t.Fatalf("payment not captured: %s", w.Body.String())
	}
	return *d.Payment
}

func TestRefundPayment_IdempotentAndBounded(t *testing.T) {
	a := newTestAPI(t)
	p := a.capturedPayment(t)
	path := "/admin/payments/" + p.ID + "/refunds"
	body := map[string]any{"amount_ore": 20000, "reason": "Fargen ble feil"}

	first := a.do(t, asAdmin, http.MethodPost, path, body, "Idempotency-Key", "ref-1")
	var r1 domain.Refund
	decode(t, first, &r1)
	if first.Code != http.StatusCreated || r1.AmountOre != 20000 {
		t.Fatalf("refund status=%d body=%s", first.Code, first.Body.String())
	}
	again := a.do(t, asAdmin, http.MethodPost, path, body, "Idempotency-Key", "ref-1")
	var r2 domain.Refund
	decode(t, again, &r2)
	if again.Code != http.StatusCreated || r2.ID != r1.ID || again.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("replay status=%d body=%s", again.Code, again.Body.String())
	}
	refunds := 0
	for _, c := range a.fake.Calls() {
		if c.Op == "refund" {
			refunds++
		}
	}
	if refunds != 1 {
		t.Fatalf("refund calls = %d, want 1", refunds)
	}

	cases := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"exceeds remaining", map[string]any{"amount_ore": 50000, "reason": "Hele beløpet"}, http.StatusUnprocessableEntity, ErrCodeRefundRejected},
		{"zero amount", map[string]any{"amount_ore": 0, "reason": "Ingenting"}, http.StatusBadRequest, ErrCodeValidation},
		{"short reason", map[string]any{"amount_ore": 100, "reason": "x"}, http.StatusBadRequest, ErrCodeValidation},
		{"bad json", "{", http.StatusBadRequest, ErrCodeBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := a.do(t, asAdmin, http.MethodPost, path, tc.body)
			if w.Code != tc.status || errorCode(t, w) != tc.code {
				t.Fatalf("status=%d body=%s, want %d %s", w.Code, w.Body.String(), tc.status, tc.code)
			}
		})
	}

	w := a.do(t, asAdmin, http.MethodGet, "/admin/payments/"+p.ID, nil)
	var got domain.Payment
	decode(t, w, &got)
	if w.Code != http.StatusOK || got.RefundedOre != 20000 || got.Status != domain.PaymentPartiallyRefunded || len(got.Refunds) != 1 {
		t.Fatalf("payment status=%d body=%s", w.Code, w.Body.String())
	}
	if w := a.do(t, asAdmin, http.MethodGet, "/admin/payments/missing", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing payment status=%d", w.Code)
	}
}

func TestRefundPayment_NotCaptured(t *testing.T) {
	a := newTestAPI(t)
	b := a.book(t)
	w := a.do(t, asCustomer, http.MethodGet, "/bookings/"+b.ID, nil)
	var d services.BookingDetail
	decode(t, w, &d)

	w = a.do(t, asAdmin, http.MethodPost, "/admin/payments/"+d.Payment.ID+"/refunds", map[string]any{"amount_ore": 100, "reason": "For tidlig"})
	if w.Code != http.StatusUnprocessableEntity || errorCode(t, w) != ErrCodeRefundRejected {
		t.Fatalf("uncaptured refund status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestListAndExportPayments(t *testing.T) {
	a := newTestAPI(t)
	p := a.capturedPayment(t)

	w := a.do(t, asAdmin, http.MethodGet, "/admin/payments?status=succeeded&sort=final_ore&desc=1", nil)
	etag := w.Header().Get("ETag")
	var list ListPaymentsResponse
	decode(t, w, &list)
	if w.Code != http.StatusOK || etag == "" || len(list.Payments) != 1 || list.Payments[0].ID != p.ID {
		t.Fatalf("list status=%d body=%s", w.Code, w.Body.String())
	}
	if list.Payments[0].CustomerName == "" || list.Payments[0].BookingStatus != domain.BookingCompleted {
		t.Fatalf("row not joined: %+v", list.Payments[0])
	}
	if w := a.do(t, asAdmin, http.MethodGet, "/admin/payments?status=succeeded&sort=final_ore&desc=1", nil, "If-None-Match", etag); w.Code != http.StatusNotModified {
		t.Fatalf("conditional list status=%d", w.Code)
	}
	if w := a.do(t, asAdmin, http.MethodGet, "/admin/payments?sort=password", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad sort status=%d", w.Code)
	}
	if w := a.do(t, asAdmin, http.MethodGet, "/admin/payments?from=yesterday", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad from status=%d", w.Code)
	}

	w = a.do(t, asAdmin, http.MethodGet, "/admin/payments/export.csv", nil)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("csv status=%d type=%q", w.Code, w.Header().Get("Content-Type"))
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "betalinger_") || !strings.HasSuffix(cd, `.csv"`) {
		t.Fatalf("csv disposition=%q", cd)
	}
	if !strings.Contains(w.Body.String(), p.ID) {
		t.Fatalf("csv misses payment %s", p.ID)
	}

	w = a.do(t, asAdmin, http.MethodGet, "/admin/payments/export.xlsx?status=succeeded", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != contentTypeXLSX || w.Body.Len() == 0 {
		t.Fatalf("xlsx status=%d type=%q", w.Code, w.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(w.Body.String(), "PK") {
		t.Fatalf("xlsx is not a zip archive")
	}
	if w := a.do(t, asAdmin, http.MethodGet, "/admin/payments/export.csv?status=lost", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad export filter status=%d", w.Code)
	}
}

func TestListPayments_ETagFollowsBooking(t *testing.T) {
	a := newTestAPI(t)
	b := a.book(t)

	w := a.do(t, asAdmin, http.MethodGet, "/admin/payments", nil)
	etag := w.Header().Get("ETag")
	var list ListPaymentsResponse
	decode(t, w, &list)
	if w.Code != http.StatusOK || etag == "" || len(list.Payments) != 1 || list.Payments[0].BookingStatus != domain.BookingPending {
		t.Fatalf("list status=%d body=%s", w.Code, w.Body.String())
	}

	if w := a.do(t, asStylist, http.MethodPost, "/bookings/"+b.ID+"/confirm", nil); w.Code != http.StatusOK {
		t.Fatalf("confirm status=%d body=%s", w.Code, w.Body.String())
	}

	w = a.do(t, asAdmin, http.MethodGet, "/admin/payments", nil, "If-None-Match", etag)
	if w.Code != http.StatusOK || w.Header().Get("ETag") == etag {
		t.Fatalf("after confirm status=%d etag=%q", w.Code, w.Header().Get("ETag"))
	}
	decode(t, w, &list)
	if len(list.Payments) != 1 || list.Payments[0].BookingStatus != domain.BookingConfirmed {
		t.Fatalf("stale row: %s", w.Body.String())
	}
}

func TestDiscounts_CreateAndValidate(t *testing.T) {
	a := newTestAPI(t)
	body := map[string]any{
		"code":              "var2026", "description": "Vårkampanje", "kind": "percent", "value": 15,
		"max_uses_per_user": 1, "valid_from": "2026-03-01T00:00:00Z", "valid_to": "2026-05-31T23:59:59Z",
	}

	if w := a.do(t, asAdmin, http.MethodPost, "/admin/discounts", map[string]any{"code": "X1X", "kind": "percent", "value": 10, "valid_from": "1. mars"}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad valid_from status=%d", w.Code)
	}
	w := a.do(t, asAdmin, http.MethodPost, "/admin/discounts", body)
	var d domain.Discount
	decode(t, w, &d)
	if w.Code != http.StatusCreated || d.Code != "VAR2026" {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	if w := a.do(t, asAdmin, http.MethodPost, "/admin/discounts", body); w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate code status=%d body=%s", w.Code, w.Body.String())
	}

	if w := a.do(t, asCustomer, http.MethodGet, "/discounts/VAR2026/validate", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing order_ore status=%d", w.Code)
	}
	w = a.do(t, asCustomer, http.MethodGet, "/discounts/var2026/validate?order_ore=60000", nil)
	var q services.DiscountQuote
	decode(t, w, &q)
	if w.Code != http.StatusOK || q.DiscountOre != 9000 || q.FinalOre != 51000 {
		t.Fatalf("validate status=%d body=%s", w.Code, w.Body.String())
	}

	a.setNow(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	if w := a.do(t, asCustomer, http.MethodGet, "/discounts/VAR2026/validate?order_ore=60000", nil); w.Code != http.StatusUnprocessableEntity || errorCode(t, w) != ErrCodeDiscountInvalid {
		t.Fatalf("expired status=%d body=%s", w.Code, w.Body.String())
	}
	if w := a.do(t, asCustomer, http.MethodGet, "/discounts/NOPE/validate?order_ore=60000", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown code status=%d", w.Code)
	}
}

func TestAffiliate_LinkClickAndCommissions(t *testing.T) {
	a := newTestAPI(t)

	if w := a.do(t, asCustomer, http.MethodPost, "/affiliate/link", nil); w.Code != http.StatusForbidden {
		t.Fatalf("customer link status=%d", w.Code)
	}
	if w := a.do(t, asStylist, http.MethodGet, "/affiliate/link", nil); w.Code != http.StatusNotFound {
		t.Fatalf("no link yet status=%d", w.Code)
	}
	w := a.do(t, asStylist, http.MethodPost, "/affiliate/link", nil)
	var l domain.AffiliateLink
	decode(t, w, &l)
	if w.Code != http.StatusCreated || l.Code == "" || l.StylistID != asStylist.id {
		t.Fatalf("create link status=%d body=%s", w.Code, w.Body.String())
	}
	if w := a.do(t, asStylist, http.MethodPost, "/affiliate/link", nil); w.Code != http.StatusConflict {
		t.Fatalf("second link status=%d", w.Code)
	}
	if w := a.do(t, asStylist, http.MethodGet, "/affiliate/link", nil); w.Code != http.StatusOK {
		t.Fatalf("get link status=%d", w.Code)
	}

	w = a.do(t, anonymous, http.MethodGet, "/affiliate/click/"+strings.ToLower(l.Code), nil)
	var click AffiliateClickResponse
	decode(t, w, &click)
	if w.Code != http.StatusOK || click.Code != l.Code || click.StylistID != asStylist.id {
		t.Fatalf("click status=%d body=%s", w.Code, w.Body.String())
	}
	if w := a.do(t, anonymous, http.MethodGet, "/affiliate/click/NOPE0000", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown click status=%d", w.Code)
	}

	w = a.do(t, asStylist, http.MethodGet, "/affiliate/commissions", nil)
	var o services.AffiliateOverview
	decode(t, w, &o)
	if w.Code != http.StatusOK || o.Link == nil || o.Link.Code != l.Code || o.PendingOre != 0 {
		t.Fatalf("commissions status=%d body=%s", w.Code, w.Body.String())
	}

	if w := a.do(t, asAdmin, http.MethodPost, "/admin/affiliate/commissions/missing/paid", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown commission status=%d", w.Code)
	}
	if w := a.do(t, asStylist, http.MethodPost, "/admin/affiliate/commissions/missing/paid", nil); w.Code != http.StatusForbidden {
		t.Fatalf("stylist mark paid status=%d", w.Code)
	}
}
