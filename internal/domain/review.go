package domain

import "time"

// Review is a customer's rating of a completed booking. A booking can be
// reviewed once.
//
// Fields:
//   - BookingID: unique; the reviewed appointment.
//   - ServiceID: the first service on the booking, used for per-service stats.
//   - Rating: 1..5 (enforced by DB constraint).
type Review struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	BookingID  string    `json:"booking_id"  gorm:"type:char(36);not null;uniqueIndex:ux_reviews_booking"`
	ServiceID  string    `json:"service_id"  gorm:"type:char(36);not null;index"`
	CustomerID string    `json:"customer_id" gorm:"type:char(36);not null;index"`
	StylistID  string    `json:"stylist_id"  gorm:"type:char(36);not null;index:idx_reviews_stylist"`
	Rating     int       `json:"rating"      gorm:"not null;check:rating BETWEEN 1 AND 5"`
	Comment    string    `json:"comment"     gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index:idx_reviews_stylist"`
	UpdatedAt  time.Time `json:"updated_at"`

	Booking Booking `json:"-" gorm:"foreignKey:BookingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Review.
func (Review) TableName() string { return "reviews" }

// Rating is an aggregate of reviews.
type Rating struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}
