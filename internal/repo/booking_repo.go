// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for bookings and
// their line items.
//
// Status changes go through UpdateBookingStatus, which is a compare-and-set
// on the current status: concurrent transitions of the same booking cannot
// both succeed.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

// BookingListFilter selects bookings visible to one participant.
type BookingListFilter struct {
	CustomerID string
	StylistID  string
	Status     domain.BookingStatus
}

// CreateBooking inserts the booking row and its line items.
func CreateBooking(ctx context.Context, db *gorm.DB, b *domain.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	for i := range b.Services {
		if b.Services[i].ID == "" {
			b.Services[i].ID = uuid.NewString()
		}
		b.Services[i].BookingID = b.ID
	}
	return db.WithContext(ctx).Create(b).Error
}

// GetBooking fetches a booking with its line items.
func GetBooking(ctx context.Context, db *gorm.DB, id string) (*domain.Booking, error) {
	var b domain.Booking
	err := db.WithContext(ctx).
		Preload("Services", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at asc, id asc") }).
		Where("id = ?", id).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBookingForUpdate is GetBooking with a row lock where supported. Call it
// inside a transaction.
func GetBookingForUpdate(ctx context.Context, tx *gorm.DB, id string) (*domain.Booking, error) {
	var b domain.Booking
	err := forUpdate(tx.WithContext(ctx)).
		Preload("Services").
		Where("id = ?", id).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBookingStatus moves a booking from one status to another and writes
// the optional extra columns. It returns ErrNotFound when the booking is not
// currently in status from.
func UpdateBookingStatus(ctx context.Context, db *gorm.DB, id string, from, to domain.BookingStatus, extra map[string]any) error {
	cols := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range extra {
		cols[k] = v
	}
	res := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HasOverlap reports whether the stylist has a pending or confirmed booking
// intersecting [start, end). excludeID, when set, is ignored.
func HasOverlap(ctx context.Context, db *gorm.DB, stylistID string, start, end time.Time, excludeID string) (bool, error) {
	q := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("stylist_id = ? AND status IN ?", stylistID,
			[]domain.BookingStatus{domain.BookingPending, domain.BookingConfirmed}).
		Where("start_time < ? AND end_time > ?", end.UTC(), start.UTC())
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func bookingListQuery(db *gorm.DB, f BookingListFilter) *gorm.DB {
	q := db.Model(&domain.Booking{})
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.StylistID != "" {
		q = q.Where("stylist_id = ?", f.StylistID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

// CountBookings returns the number of bookings matching f.
func CountBookings(ctx context.Context, db *gorm.DB, f BookingListFilter) (int64, error) {
	var n int64
	err := bookingListQuery(db.WithContext(ctx), f).Count(&n).Error
	return n, err
}

// ListBookingsPage returns bookings matching f, soonest first.
func ListBookingsPage(ctx context.Context, db *gorm.DB, f BookingListFilter, offset, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	err := bookingListQuery(db.WithContext(ctx), f).
		Preload("Services").
		Order("start_time asc, id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListBookingsDueForCapture returns confirmed bookings starting before
// horizon whose payment is still only authorized.
func ListBookingsDueForCapture(ctx context.Context, db *gorm.DB, horizon time.Time, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	err := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Joins("JOIN payments ON payments.booking_id = bookings.id").
		Where("bookings.status = ? AND bookings.start_time <= ? AND payments.status = ?",
			domain.BookingConfirmed, horizon.UTC(), domain.PaymentRequiresCapture).
		Order("bookings.start_time asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
