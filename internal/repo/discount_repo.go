// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for discount codes
// and their usage ledger.
package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

// CreateDiscount inserts a discount. Codes are stored upper-case.
func CreateDiscount(ctx context.Context, db *gorm.DB, d *domain.Discount) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	return db.WithContext(ctx).Create(d).Error
}

// GetDiscountByCode looks a code up case-insensitively.
func GetDiscountByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Discount, error) {
	var d domain.Discount
	err := db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CountDiscountUsage returns how many times profileID used the discount.
func CountDiscountUsage(ctx context.Context, db *gorm.DB, discountID, profileID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.DiscountUsage{}).
		Where("discount_id = ? AND profile_id = ?", discountID, profileID).
		Count(&n).Error
	return n, err
}

// ConsumeDiscount increments current_uses only while it is below max_uses
// and records the usage row. It returns ErrNotFound when the cap was
// reached concurrently. Run it inside the booking transaction.
func ConsumeDiscount(ctx context.Context, tx *gorm.DB, discountID, profileID, bookingID string) error {
	res := tx.WithContext(ctx).
		Model(&domain.Discount{}).
		Where("id = ? AND (max_uses IS NULL OR current_uses < max_uses)", discountID).
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return tx.WithContext(ctx).Create(&domain.DiscountUsage{
		ID:         uuid.NewString(),
		DiscountID: discountID,
		ProfileID:  profileID,
		BookingID:  bookingID,
	}).Error
}

// ReleaseDiscount undoes the consumption recorded for bookingID, if any.
// It reports whether a usage row was removed.
func ReleaseDiscount(ctx context.Context, tx *gorm.DB, bookingID string) (bool, error) {
	var u domain.DiscountUsage
	if err := tx.WithContext(ctx).Where("booking_id = ?", bookingID).First(&u).Error; err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := tx.WithContext(ctx).Delete(&domain.DiscountUsage{}, "id = ?", u.ID).Error; err != nil {
		return false, err
	}
	err := tx.WithContext(ctx).
		Model(&domain.Discount{}).
		Where("id = ? AND current_uses > 0", u.DiscountID).
		UpdateColumn("current_uses", gorm.Expr("current_uses - 1")).Error
	return err == nil, err
}
