package domain

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		ok       bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCancelled, true},
		{BookingPending, BookingCompleted, false},
		{BookingConfirmed, BookingCompleted, true},
		{BookingConfirmed, BookingCancelled, true},
		{BookingConfirmed, BookingPending, false},
		{BookingCompleted, BookingCancelled, false},
		{BookingCancelled, BookingConfirmed, false},
		{"bogus", BookingConfirmed, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s,%s)=%v; want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestBookingStatus_TerminalAndValid(t *testing.T) {
	if BookingPending.Terminal() || BookingConfirmed.Terminal() {
		t.Fatalf("pending and confirmed are not terminal")
	}
	if !BookingCompleted.Terminal() || !BookingCancelled.Terminal() {
		t.Fatalf("completed and cancelled are terminal")
	}
	if BookingStatus("done").Valid() {
		t.Fatalf("unknown status must be invalid")
	}
}

func TestBooking_FinalOre(t *testing.T) {
	b := Booking{TotalOre: 80000, DiscountOre: 20000}
	if got := b.FinalOre(); got != 60000 {
		t.Fatalf("FinalOre=%d; want 60000", got)
	}
	b.DiscountOre = 90000
	if got := b.FinalOre(); got != 0 {
		t.Fatalf("FinalOre should floor at 0, got %d", got)
	}
}

func TestBooking_Overlaps(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	b := Booking{StartTime: base, EndTime: base.Add(time.Hour)}

	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"inside", base.Add(15 * time.Minute), base.Add(30 * time.Minute), true},
		{"straddle start", base.Add(-30 * time.Minute), base.Add(10 * time.Minute), true},
		{"touching end", base.Add(time.Hour), base.Add(2 * time.Hour), false},
		{"touching start", base.Add(-time.Hour), base, false},
		{"covering", base.Add(-time.Hour), base.Add(2 * time.Hour), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := b.Overlaps(tc.start, tc.end); got != tc.want {
				t.Fatalf("Overlaps=%v; want %v", got, tc.want)
			}
		})
	}
}
