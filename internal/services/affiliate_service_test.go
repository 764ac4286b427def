package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/repo/repotest"
)

func TestCodePrefix(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Ingrid Ås", "INGRID"},
		{"Bjørn Æsheim", "BJORNA"},
		{"Zoë", "ZOE"},
		{"Ål", "AL"},
		{"李", "STYLE"},
		{"", "STYLE"},
		{"  o'neil-smith ", "ONEILS"},
	}
	for _, c := range cases {
		if got := codePrefix(c.in); got != c.want {
			t.Fatalf("codePrefix(%q) = %q; want %q", c.in, got, c.want)
		}
	}
}

func TestAffiliateCreateLink(t *testing.T) {
	db := repotest.NewDB(t)
	repotest.Profile(t, db, "sty", domain.RoleStylist)
	db.Model(&domain.Profile{}).Where("id = ?", "sty").Update("full_name", "Sølvi Hårstad")
	repotest.Profile(t, db, "sty2", domain.RoleStylist)
	db.Model(&domain.Profile{}).Where("id = ?", "sty2").Update("full_name", "Sølvi Hansen")
	ctx := context.Background()

	seq := []int{7, 7, 8}
	aff := NewAffiliateService(db)
	aff.digits = func() int { n := seq[0]; seq = seq[1:]; return n }

	l, err := aff.CreateLink(ctx, stylist)
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if l.Code != "SOLVIH0007" || !l.Active || l.CommissionPercent != DefaultCommissionPercent {
		t.Fatalf("link = %+v", l)
	}
	if _, err := aff.CreateLink(ctx, stylist); !errors.Is(err, ErrAffiliateExists) {
		t.Fatalf("second link err = %v", err)
	}

	// SOLVIH0007 is taken, so the next attempt draws new digits.
	other, err := aff.CreateLink(ctx, Actor{ID: "sty2", Role: domain.RoleStylist})
	if err != nil || other.Code != "SOLVIH0008" {
		t.Fatalf("collision retry = %+v, %v", other, err)
	}

	if _, err := aff.CreateLink(ctx, customer); !errors.Is(err, ErrForbidden) {
		t.Fatalf("customer err = %v", err)
	}
	got, err := aff.Get(ctx, stylist)
	if err != nil || got.ID != l.ID {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if _, err := aff.Get(ctx, Actor{ID: "nobody", Role: domain.RoleStylist}); !errors.Is(err, ErrAffiliateNotFound) {
		t.Fatalf("Get missing err = %v", err)
	}
}

func TestAffiliateTrackClick(t *testing.T) {
	db := repotest.NewDB(t)
	repotest.Profile(t, db, "sty", domain.RoleStylist)
	aff := &AffiliateService{DB: db, CommissionPercent: 15, digits: func() int { return 1 }}
	ctx := context.Background()
	l, err := aff.CreateLink(ctx, stylist)
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := aff.TrackClick(ctx, " "+l.Code+" "); err != nil {
			t.Fatalf("TrackClick: %v", err)
		}
	}
	got, err := aff.TrackClick(ctx, l.Code)
	if err != nil || got.Clicks != 3 || got.CommissionPercent != 15 {
		t.Fatalf("after clicks = %+v, %v", got, err)
	}
	if _, err := aff.TrackClick(ctx, "UKJENT0000"); !errors.Is(err, ErrAffiliateNotFound) {
		t.Fatalf("unknown code err = %v", err)
	}

	db.Model(&domain.AffiliateLink{}).Where("id = ?", l.ID).Update("active", false)
	if _, err := aff.TrackClick(ctx, l.Code); !errors.Is(err, ErrAffiliateNotFound) {
		t.Fatalf("inactive code err = %v", err)
	}
}

func TestAffiliateMarkPaid(t *testing.T) {
	db := repotest.NewDB(t)
	repotest.Profile(t, db, "cust", domain.RoleCustomer)
	repotest.Profile(t, db, "sty", domain.RoleStylist)
	repotest.Service(t, db, "svc", "sty", 50000, 60)
	repotest.Booking(t, db, "b1", "cust", "sty", "svc", t0, domain.BookingCompleted, domain.PaymentSucceeded, 50000)
	aff := &AffiliateService{DB: db, Now: func() time.Time { return t0 }}
	ctx := context.Background()
	l, err := aff.CreateLink(ctx, stylist)
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	c := &domain.AffiliateCommission{AffiliateLinkID: l.ID, BookingID: "b1", AmountOre: 2000, Status: domain.CommissionPending}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed commission: %v", err)
	}

	if _, err := aff.MarkPaid(ctx, stylist, c.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-admin err = %v", err)
	}
	paid, err := aff.MarkPaid(ctx, admin, c.ID)
	if err != nil || paid.Status != domain.CommissionPaid || paid.PaidAt == nil || !paid.PaidAt.Equal(t0) {
		t.Fatalf("MarkPaid = %+v, %v", paid, err)
	}
	if _, err := aff.MarkPaid(ctx, admin, c.ID); !errors.Is(err, ErrCommissionPaid) {
		t.Fatalf("second MarkPaid err = %v", err)
	}
	if _, err := aff.MarkPaid(ctx, admin, "missing"); !errors.Is(err, ErrCommissionNotFound) {
		t.Fatalf("missing err = %v", err)
	}

	overview, err := aff.ListCommissions(ctx, stylist)
	if err != nil || overview.PaidOre != 2000 || overview.PendingOre != 0 {
		t.Fatalf("overview = %+v, %v", overview, err)
	}
}
