package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/repo/repotest"
)

func TestReviewCreate_CompletedBookingOnce(t *testing.T) {
	db := repotest.NewDB(t)
	repotest.Profile(t, db, "cust", domain.RoleCustomer)
	repotest.Profile(t, db, "sty", domain.RoleStylist)
	repotest.Service(t, db, "svc", "sty", 50000, 60)
	repotest.Booking(t, db, "done", "cust", "sty", "svc", t0, domain.BookingCompleted, domain.PaymentSucceeded, 50000)
	repotest.Booking(t, db, "open", "cust", "sty", "svc", t0.Add(48*time.Hour), domain.BookingConfirmed, domain.PaymentRequiresCapture, 50000)
	rs := &ReviewService{DB: db}
	ctx := context.Background()

	r, err := rs.Create(ctx, customer, "done", 5, " Supert resultat! ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.ServiceID != "svc" || r.StylistID != "sty" || r.Comment != "Supert resultat!" {
		t.Fatalf("review = %+v", r)
	}

	if _, err := rs.Create(ctx, customer, "done", 4, ""); !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("second review err = %v", err)
	}
	if _, err := rs.Create(ctx, customer, "open", 4, ""); !errors.Is(err, ErrReviewNotAllowed) {
		t.Fatalf("open booking err = %v", err)
	}
	if _, err := rs.Create(ctx, stylist, "done", 4, ""); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("stylist review err = %v", err)
	}
	for _, rating := range []int{0, 6} {
		if _, err := rs.Create(ctx, customer, "done", rating, ""); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("rating %d err = %v", rating, err)
		}
	}
	if _, err := rs.Create(ctx, customer, "done", 3, strings.Repeat("ø", 1001)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("long comment err = %v", err)
	}
}

func TestReviewListAndRating(t *testing.T) {
	db := repotest.NewDB(t)
	repotest.Profile(t, db, "cust", domain.RoleCustomer)
	repotest.Profile(t, db, "sty", domain.RoleStylist)
	repotest.Service(t, db, "svc", "sty", 50000, 60)
	rs := &ReviewService{DB: db}
	ctx := context.Background()

	for i, rating := range []int{5, 4, 3} {
		id := string(rune('a' + i))
		repotest.Booking(t, db, id, "cust", "sty", "svc", t0.Add(time.Duration(i)*2*time.Hour), domain.BookingCompleted, domain.PaymentSucceeded, 50000)
		if _, err := rs.Create(ctx, customer, id, rating, ""); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	items, total, err := rs.ListForStylist(ctx, "sty", 1, 2)
	if err != nil || total != 3 || len(items) != 2 {
		t.Fatalf("ListForStylist = %d/%d, %v", len(items), total, err)
	}
	got, err := rs.StylistRating(ctx, "sty")
	if err != nil || got.Count != 3 || got.Average != 4 {
		t.Fatalf("StylistRating = %+v, %v", got, err)
	}
	if _, _, err := rs.ListForStylist(ctx, "ghost", 1, 10); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("unknown stylist err = %v", err)
	}
}
