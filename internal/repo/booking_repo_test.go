package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

func TestCreateBooking_WithLineItems_AndGet(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	seedProfile(t, db, "c1", domain.RoleCustomer)
	seedProfile(t, db, "s1", domain.RoleStylist)
	seedService(t, db, "svc1", "s1", 40000, true)

	start := time.Date(2030, 1, 2, 10, 0, 0, 0, time.UTC)
	b := &domain.Booking{
		CustomerID: "c1", StylistID: "s1", StartTime: start, EndTime: start.Add(90 * time.Minute),
		Status:     domain.BookingPending, Location: domain.LocationStylist, TotalOre: 40000,
		Services:   []domain.BookingService{{ServiceID: "svc1", Title: "Klipp", PriceOre: 40000, DurationMinutes: 90}},
	}
	if err := CreateBooking(ctx, db, b); err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.ID == "" || b.Services[0].BookingID != b.ID {
		t.Fatalf("ids not assigned: %+v", b)
	}

	got, err := GetBooking(ctx, db, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Services) != 1 || got.Services[0].Title != "Klipp" {
		t.Fatalf("line items not preloaded: %+v", got)
	}

	tx := db.Begin()
	locked, err := GetBookingForUpdate(ctx, tx, b.ID)
	tx.Rollback()
	if err != nil || locked.ID != b.ID {
		t.Fatalf("GetBookingForUpdate: %v %+v", err, locked)
	}
}

func TestUpdateBookingStatus_CompareAndSet(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	seedProfile(t, db, "c1", domain.RoleCustomer)
	seedProfile(t, db, "s1", domain.RoleStylist)
	b := seedBooking(t, db, "b1", "c1", "s1", time.Now().Add(48*time.Hour), domain.BookingPending)

	if err := UpdateBookingStatus(ctx, db, b.ID, domain.BookingPending, domain.BookingConfirmed, nil); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	// Second attempt from the stale status loses.
	err := UpdateBookingStatus(ctx, db, b.ID, domain.BookingPending, domain.BookingCancelled, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for stale transition, got %v", err)
	}
	if err := UpdateBookingStatus(ctx, db, b.ID, domain.BookingConfirmed, domain.BookingCancelled,
		map[string]any{"cancelled_by": "c1", "cancellation_reason": "sick"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, _ := GetBooking(ctx, db, b.ID)
	if got.Status != domain.BookingCancelled || got.CancelledBy != "c1" || got.CancellationReason != "sick" {
		t.Fatalf("cancel columns not written: %+v", got)
	}
}

func TestHasOverlap(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	seedProfile(t, db, "c1", domain.RoleCustomer)
	seedProfile(t, db, "s1", domain.RoleStylist)
	base := time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)
	// 10-11 confirmed, 13-14 cancelled (ignored).
	seedBooking(t, db, "b1", "c1", "s1", base, domain.BookingConfirmed)
	seedBooking(t, db, "b2", "c1", "s1", base.Add(3*time.Hour), domain.BookingCancelled)

	cases := []struct {
		name       string
		start, end time.Time
		exclude    string
		want       bool
	}{
		{"inside", base.Add(15 * time.Minute), base.Add(45 * time.Minute), "", true},
		{"adjacent after", base.Add(time.Hour), base.Add(2 * time.Hour), "", false},
		{"adjacent before", base.Add(-time.Hour), base, "", false},
		{"over cancelled", base.Add(3 * time.Hour), base.Add(4 * time.Hour), "", false},
		{"excluded self", base, base.Add(time.Hour), "b1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := HasOverlap(ctx, db, "s1", tc.start, tc.end, tc.exclude)
			if err != nil {
				t.Fatalf("err: %v", err)
			}
			if got != tc.want {
				t.Fatalf("HasOverlap=%v; want %v", got, tc.want)
			}
		})
	}

	other, err := HasOverlap(ctx, db, "s-other", base, base.Add(time.Hour), "")
	if err != nil || other {
		t.Fatalf("other stylist should be free: %v %v", other, err)
	}
}

func TestListBookingsPage_AndCount(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	seedProfile(t, db, "c1", domain.RoleCustomer)
	seedProfile(t, db, "c2", domain.RoleCustomer)
	seedProfile(t, db, "s1", domain.RoleStylist)
	base := time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)
	seedBooking(t, db, "b3", "c1", "s1", base.Add(48*time.Hour), domain.BookingPending)
	seedBooking(t, db, "b1", "c1", "s1", base, domain.BookingConfirmed)
	seedBooking(t, db, "b2", "c2", "s1", base.Add(24*time.Hour), domain.BookingPending)

	n, err := CountBookings(ctx, db, BookingListFilter{CustomerID: "c1"})
	if err != nil || n != 2 {
		t.Fatalf("count c1: %d %v", n, err)
	}
	page, err := ListBookingsPage(ctx, db, BookingListFilter{StylistID: "s1"}, 0, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].ID != "b1" || page[1].ID != "b2" {
		t.Fatalf("expected soonest first, got %+v", page)
	}
	pending, _ := CountBookings(ctx, db, BookingListFilter{StylistID: "s1", Status: domain.BookingPending})
	if pending != 2 {
		t.Fatalf("status filter: got %d", pending)
	}
}

func TestListBookingsDueForCapture(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	seedProfile(t, db, "c1", domain.RoleCustomer)
	seedProfile(t, db, "s1", domain.RoleStylist)
	now := time.Date(2030, 7, 1, 12, 0, 0, 0, time.UTC)

	soon := seedBooking(t, db, "soon", "c1", "s1", now.Add(6*time.Hour), domain.BookingConfirmed)
	later := seedBooking(t, db, "later", "c1", "s1", now.Add(72*time.Hour), domain.BookingConfirmed)
	pend := seedBooking(t, db, "pend", "c1", "s1", now.Add(2*time.Hour), domain.BookingPending)
	done := seedBooking(t, db, "done", "c1", "s1", now.Add(3*time.Hour), domain.BookingConfirmed)
	for _, b := range []*domain.Booking{soon, later, pend, done} {
		p := &domain.Payment{BookingID: b.ID, Provider: "fake", Currency: domain.CurrencyNOK,
			OriginalOre: 50000, FinalOre: 50000, Status: domain.PaymentRequiresCapture}
		if b.ID == "done" {
			p.Status = domain.PaymentSucceeded
			p.CapturedOre = 50000
		}
		if err := CreatePayment(ctx, db, p); err != nil {
			t.Fatalf("payment: %v", err)
		}
	}

	due, err := ListBookingsDueForCapture(ctx, db, now.Add(24*time.Hour), 10)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(due) != 1 || due[0].ID != "soon" {
		t.Fatalf("expected only 'soon', got %+v", due)
	}
}
