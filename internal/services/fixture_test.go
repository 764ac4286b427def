package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/events"
	"github.com/tbourn/nabostylisten-backend/internal/locks"
	"github.com/tbourn/nabostylisten-backend/internal/payments"
	"github.com/tbourn/nabostylisten-backend/internal/repo/repotest"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

var (
	customer = Actor{ID: "cust", Role: domain.RoleCustomer}
	stylist  = Actor{ID: "sty", Role: domain.RoleStylist}
	admin    = Actor{ID: "adm", Role: domain.RoleAdmin}
	outsider = Actor{ID: "other", Role: domain.RoleCustomer}
)

// fixture wires the booking stack over an in-memory database with a
// movable clock, the fake provider and an event recorder.
type fixture struct {
	db   *gorm.DB
	fake *payments.FakeProvider
	bus  *events.Bus

	mu     sync.Mutex
	now    time.Time
	events []events.Envelope

	bookings *BookingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:   repotest.NewDB(t),
		fake: payments.NewFakeProvider(),
		bus:  events.NewBus(),
		now:  t0,
	}
	f.bus.Subscribe(func(_ context.Context, e events.Envelope) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, e)
		return nil
	}, "#")

	repotest.Profile(t, f.db, customer.ID, domain.RoleCustomer)
	repotest.Profile(t, f.db, outsider.ID, domain.RoleCustomer)
	repotest.Profile(t, f.db, stylist.ID, domain.RoleStylist)
	repotest.Profile(t, f.db, admin.ID, domain.RoleAdmin)
	repotest.Service(t, f.db, "svc", stylist.ID, 60000, 60)

	f.bookings = &BookingService{
		DB:       f.db,
		Provider: f.fake,
		Locks:    locks.NewMemory(),
		Events:   f.bus,
		Now:      f.clock(),
		Policy: BookingPolicy{
			Currency:             domain.CurrencyNOK,
			PlatformFeePercent:   20,
			CancellationWindow:   24 * time.Hour,
			LateCancelFeePercent: 50,
			MinLead:              time.Hour,
			CaptureLead:          24 * time.Hour,
			LockTTL:              5 * time.Second,
		},
	}
	return f
}

func (f *fixture) clock() Clock {
	return func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}
}

func (f *fixture) setNow(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

func (f *fixture) eventNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Event
	}
	return out
}

func (f *fixture) lastEvent(name string) (events.Envelope, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].Event == name {
			return f.events[i], true
		}
	}
	return events.Envelope{}, false
}

// book requests svc two days after t0.
func (f *fixture) book(t *testing.T, mod ...func(*CreateBookingInput)) *domain.Booking {
	t.Helper()
	in := CreateBookingInput{
		ServiceIDs: []string{"svc"},
		StartTime:  t0.Add(48 * time.Hour),
		Location:   domain.LocationStylist,
		CardToken:  "tok_visa",
	}
	for _, m := range mod {
		m(&in)
	}
	b, err := f.bookings.Create(context.Background(), customer, in)
	if err != nil {
		t.Fatalf("Create booking: %v", err)
	}
	return b
}

func (f *fixture) payment(t *testing.T, bookingID string) domain.Payment {
	t.Helper()
	var p domain.Payment
	if err := f.db.Where("booking_id = ?", bookingID).First(&p).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	return p
}

func (f *fixture) confirm(t *testing.T, id string) {
	t.Helper()
	if _, err := f.bookings.Confirm(context.Background(), stylist, id); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
}

func (f *fixture) opCount(op string) int {
	n := 0
	for _, c := range f.fake.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}
