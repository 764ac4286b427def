package repo

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

func TestReviews_CreateDuplicateAndAggregates(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	seedProfile(t, db, "c1", domain.RoleCustomer)
	seedProfile(t, db, "s1", domain.RoleStylist)
	seedService(t, db, "svc1", "s1", 40000, true)
	seedService(t, db, "svc2", "s1", 40000, true)

	ratings := []int{5, 4, 3}
	for i, r := range ratings {
		id := []string{"b1", "b2", "b3"}[i]
		seedBooking(t, db, id, "c1", "s1", time.Date(2030, 1, i+1, 10, 0, 0, 0, time.UTC), domain.BookingCompleted)
		svc := "svc1"
		if i == 2 {
			svc = "svc2"
		}
		if err := CreateReview(ctx, db, &domain.Review{BookingID: id, ServiceID: svc, CustomerID: "c1", StylistID: "s1", Rating: r}); err != nil {
			t.Fatalf("review %s: %v", id, err)
		}
	}

	err := CreateReview(ctx, db, &domain.Review{BookingID: "b1", ServiceID: "svc1", CustomerID: "c1", StylistID: "s1", Rating: 1})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	r, err := StylistRating(ctx, db, "s1")
	if err != nil {
		t.Fatalf("rating: %v", err)
	}
	if r.Count != 3 || math.Abs(r.Average-4.0) > 1e-9 {
		t.Fatalf("unexpected stylist rating: %+v", r)
	}
	none, err := StylistRating(ctx, db, "nobody")
	if err != nil || none.Count != 0 {
		t.Fatalf("no reviews should be zero rating: %+v %v", none, err)
	}

	per, err := ServiceRatings(ctx, db, []string{"svc1", "svc2", "svc3"})
	if err != nil {
		t.Fatalf("service ratings: %v", err)
	}
	if per["svc1"].Count != 2 || math.Abs(per["svc1"].Average-4.5) > 1e-9 || per["svc2"].Count != 1 {
		t.Fatalf("unexpected per-service ratings: %+v", per)
	}
	if _, ok := per["svc3"]; ok {
		t.Fatalf("unreviewed service should be absent")
	}

	n, _ := CountReviewsForStylist(ctx, db, "s1")
	page, err := ListReviewsForStylistPage(ctx, db, "s1", 0, 2)
	if err != nil || n != 3 || len(page) != 2 {
		t.Fatalf("list: n=%d len=%d err=%v", n, len(page), err)
	}
}

func TestReview_RatingCheckConstraint(t *testing.T) {
	db := newTestDB(t, true)
	seedProfile(t, db, "c1", domain.RoleCustomer)
	seedProfile(t, db, "s1", domain.RoleStylist)
	seedBooking(t, db, "b1", "c1", "s1", time.Now(), domain.BookingCompleted)
	if err := CreateReview(context.Background(), db, &domain.Review{BookingID: "b1", ServiceID: "x", CustomerID: "c1", StylistID: "s1", Rating: 6}); err == nil {
		t.Fatalf("rating 6 must be rejected")
	}
}
