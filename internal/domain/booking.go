package domain

import (
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// bookingTransitions is the allowed edge set of the booking state machine.
// completed and cancelled are terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to BookingStatus) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// Location says where an appointment takes place.
type Location string

const (
	LocationStylist  Location = "stylist"
	LocationCustomer Location = "customer"
)

// Booking is a scheduled appointment between a customer and a stylist for one
// or more of the stylist's services. Prices are snapshotted on creation.
//
// Fields:
//   - StartTime / EndTime: UTC interval; EndTime = StartTime + Σ service durations.
//   - AddressID: the customer's address when Location is "customer".
//   - TotalOre: sum of service prices before discount.
//   - DiscountOre: amount deducted by a discount code (0 if none).
//   - CancelledBy: profile id of the actor that cancelled, if any.
type Booking struct {
	ID                 string        `json:"id"           gorm:"type:char(36);primaryKey"`
	CustomerID         string        `json:"customer_id"  gorm:"type:char(36);not null;index:idx_bookings_customer"`
	StylistID          string        `json:"stylist_id"   gorm:"type:char(36);not null;index:idx_bookings_stylist_time,priority:1"`
	StartTime          time.Time     `json:"start_time"   gorm:"not null;index:idx_bookings_stylist_time,priority:2"`
	EndTime            time.Time     `json:"end_time"     gorm:"not null"`
	Status             BookingStatus `json:"status"       gorm:"type:varchar(16);not null;index;check:status IN ('pending','confirmed','completed','cancelled')"`
	Location           Location      `json:"location"     gorm:"type:varchar(16);not null"`
	AddressID          *string       `json:"address_id,omitempty" gorm:"type:char(36)"`
	Note               string        `json:"note,omitempty"       gorm:"type:text"`
	TotalOre           int64         `json:"total_ore"    gorm:"not null"`
	DiscountID         *string       `json:"discount_id,omitempty" gorm:"type:char(36)"`
	DiscountOre        int64         `json:"discount_ore" gorm:"not null;default:0"`
	AffiliateLinkID    *string       `json:"affiliate_link_id,omitempty" gorm:"type:char(36)"`
	CancelledBy        string        `json:"cancelled_by,omitempty"       gorm:"type:char(36)"`
	CancellationReason string        `json:"cancellation_reason,omitempty" gorm:"type:text"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`

	Services []BookingService `json:"services,omitempty" gorm:"foreignKey:BookingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Booking.
func (Booking) TableName() string { return "bookings" }

// FinalOre is the amount the customer pays after discount.
func (b Booking) FinalOre() int64 {
	if b.DiscountOre >= b.TotalOre {
		return 0
	}
	return b.TotalOre - b.DiscountOre
}

// Overlaps reports whether [start,end) intersects the booking interval.
func (b Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

// BookingService is a line item of a booking with the service price and
// duration captured at booking time.
type BookingService struct {
	ID              string    `json:"id"               gorm:"type:char(36);primaryKey"`
	BookingID       string    `json:"booking_id"       gorm:"type:char(36);not null;index"`
	ServiceID       string    `json:"service_id"       gorm:"type:char(36);not null;index"`
	Title           string    `json:"title"            gorm:"type:varchar(120);not null"`
	PriceOre        int64     `json:"price_ore"        gorm:"not null"`
	DurationMinutes int       `json:"duration_minutes" gorm:"not null"`
	CreatedAt       time.Time `json:"created_at"`

	Booking Booking `json:"-" gorm:"foreignKey:BookingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for BookingService.
func (BookingService) TableName() string { return "booking_services" }
