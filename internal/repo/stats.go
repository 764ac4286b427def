// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

// tableStats counts the rows of scope() and finds their latest updated_at.
// scope is invoked twice so the COUNT and the ORDER BY run on fresh
// statements.
func tableStats(scope func() *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = scope().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = scope().Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// BookingsStats returns the row count and latest UpdatedAt of the bookings
// visible through f. When no rows match, count is 0 and maxUpdatedAt is nil.
func BookingsStats(ctx context.Context, db *gorm.DB, f BookingListFilter) (count int64, maxUpdatedAt *time.Time, err error) {
	return tableStats(func() *gorm.DB { return bookingListQuery(db.WithContext(ctx), f) })
}

// ChatMessagesStats returns aggregate metadata for messages within a chat:
// the total number of rows and the maximum UpdatedAt timestamp among them.
func ChatMessagesStats(ctx context.Context, db *gorm.DB, chatID string) (count int64, maxUpdatedAt *time.Time, err error) {
	return tableStats(func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.ChatMessage{}).Where("chat_id = ?", chatID)
	})
}

// PaymentsStats returns aggregate metadata for the admin payments table.
// Each row also shows its booking status and the customer and stylist
// names, so maxUpdatedAt covers those bookings and profiles as well.
func PaymentsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	db = db.WithContext(ctx)
	count, maxUpdatedAt, err = tableStats(func() *gorm.DB { return db.Model(&domain.Payment{}) })
	if err != nil || count == 0 {
		return count, maxUpdatedAt, err
	}

	paid := func(col string) *gorm.DB {
		return db.Table("bookings").Select("bookings." + col).
			Joins("JOIN payments ON payments.booking_id = bookings.id")
	}
	joined := []func() *gorm.DB{
		func() *gorm.DB { return db.Table("bookings").Where("id IN (?)", paid("id")) },
		func() *gorm.DB {
			return db.Table("profiles").Where("id IN (?) OR id IN (?)", paid("customer_id"), paid("stylist_id"))
		},
	}
	for _, scope := range joined {
		_, ts, err := tableStats(scope)
		if err != nil {
			return 0, nil, err
		}
		if ts != nil && ts.After(*maxUpdatedAt) {
			maxUpdatedAt = ts
		}
	}
	return count, maxUpdatedAt, nil
}
