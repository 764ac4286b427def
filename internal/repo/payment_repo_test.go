package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

func TestPaymentLifecycle_RefundsAndUpdate(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	seedProfile(t, db, "c1", domain.RoleCustomer)
	seedProfile(t, db, "s1", domain.RoleStylist)
	b := seedBooking(t, db, "b1", "c1", "s1", time.Now().Add(time.Hour), domain.BookingConfirmed)

	p := &domain.Payment{BookingID: b.ID, Provider: "fake", ProviderPaymentID: "chrg_1", Currency: domain.CurrencyNOK,
		OriginalOre: 50000, FinalOre: 50000, CapturedOre: 50000, Status: domain.PaymentSucceeded}
	if err := CreatePayment(ctx, db, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	byBooking, err := GetPaymentByBooking(ctx, db, "b1")
	if err != nil || byBooking.ID != p.ID {
		t.Fatalf("GetPaymentByBooking: %v", err)
	}

	if err := CreateRefund(ctx, db, &domain.Refund{PaymentID: p.ID, AmountOre: 10000, Reason: "late", CreatedBy: "admin"}); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if err := CreateRefund(ctx, db, &domain.Refund{PaymentID: p.ID, AmountOre: 0, Reason: "zero", CreatedBy: "admin"}); err == nil {
		t.Fatalf("zero refund must violate CHECK")
	}
	if err := UpdatePaymentFields(ctx, db, p.ID, map[string]any{
		"refunded_ore": int64(10000), "status": domain.PaymentPartiallyRefunded,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := GetPayment(ctx, db, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RefundedOre != 10000 || got.Status != domain.PaymentPartiallyRefunded || len(got.Refunds) != 1 {
		t.Fatalf("unexpected payment: %+v", got)
	}
	if got.RefundableOre() != 40000 {
		t.Fatalf("RefundableOre=%d", got.RefundableOre())
	}

	tx := db.Begin()
	locked, err := GetPaymentForUpdate(ctx, tx, p.ID)
	tx.Rollback()
	if err != nil || locked.ID != p.ID {
		t.Fatalf("GetPaymentForUpdate: %v", err)
	}

	if err := UpdatePaymentFields(ctx, db, "missing", map[string]any{"status": domain.PaymentRefunded}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := UpdatePaymentStatus(ctx, db, p.ID, domain.PaymentSucceeded, domain.PaymentRefunded, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("status mismatch: expected ErrNotFound, got %v", err)
	}
	if err := UpdatePaymentStatus(ctx, db, p.ID, domain.PaymentPartiallyRefunded, domain.PaymentRefunded,
		map[string]any{"refunded_ore": int64(50000)}); err != nil {
		t.Fatalf("UpdatePaymentStatus: %v", err)
	}
	if got, _ := GetPayment(ctx, db, p.ID); got.Status != domain.PaymentRefunded || got.RefundedOre != 50000 {
		t.Fatalf("after status update: %+v", got)
	}
}

func TestListPaymentsPage_FilterSortSearch(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	seedProfile(t, db, "c1", domain.RoleCustomer) // Name c1
	seedProfile(t, db, "c2", domain.RoleCustomer) // Name c2
	seedProfile(t, db, "s1", domain.RoleStylist)

	base := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := []struct {
		id, cust string
		final    int64
		status   domain.PaymentStatus
	}{
		{"b1", "c1", 30000, domain.PaymentSucceeded},
		{"b2", "c2", 90000, domain.PaymentRefunded},
		{"b3", "c1", 60000, domain.PaymentSucceeded},
	}
	for i, r := range rows {
		seedBooking(t, db, r.id, r.cust, "s1", base.Add(time.Duration(i)*time.Hour*24), domain.BookingCompleted)
		p := &domain.Payment{
			ID:          "p" + r.id, BookingID: r.id, Provider: "fake", Currency: domain.CurrencyNOK,
			OriginalOre: r.final, FinalOre: r.final, CapturedOre: r.final, Status: r.status,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := CreatePayment(ctx, db, p); err != nil {
			t.Fatalf("payment: %v", err)
		}
	}

	n, err := CountPayments(ctx, db, PaymentQuery{Status: domain.PaymentSucceeded})
	if err != nil || n != 2 {
		t.Fatalf("count succeeded: %d %v", n, err)
	}

	page, err := ListPaymentsPage(ctx, db, PaymentQuery{Sort: "final_ore", Desc: true}, 0, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].ID != "pb2" || page[1].ID != "pb3" {
		t.Fatalf("sort by final desc: %+v", page)
	}
	if page[0].CustomerName != "Name c2" || page[0].StylistName != "Name s1" || page[0].BookingStatus != domain.BookingCompleted {
		t.Fatalf("joined columns missing: %+v", page[0])
	}

	// Unknown sort column falls back to created_at asc.
	all, err := ListPaymentsPage(ctx, db, PaymentQuery{Sort: "1; DROP TABLE payments"}, 0, 0)
	if err != nil || len(all) != 3 || all[0].ID != "pb1" {
		t.Fatalf("fallback sort: %v %+v", err, all)
	}

	hits, err := ListPaymentsPage(ctx, db, PaymentQuery{Search: "C2@EXAMPLE"}, 0, 10)
	if err != nil || len(hits) != 1 || hits[0].ID != "pb2" {
		t.Fatalf("search: %v %+v", err, hits)
	}

	from := base.Add(time.Minute)
	windowed, _ := CountPayments(ctx, db, PaymentQuery{From: &from})
	if windowed != 2 {
		t.Fatalf("from filter: got %d", windowed)
	}
}
