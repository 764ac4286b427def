// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for affiliate
// links and commissions.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

// CreateAffiliateLink inserts a link; ErrDuplicate when the stylist already
// has one or the code is taken.
func CreateAffiliateLink(ctx context.Context, db *gorm.DB, l *domain.AffiliateLink) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.Code = strings.ToUpper(l.Code)
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetAffiliateLinkByStylist returns the stylist's link.
func GetAffiliateLinkByStylist(ctx context.Context, db *gorm.DB, stylistID string) (*domain.AffiliateLink, error) {
	var l domain.AffiliateLink
	if err := db.WithContext(ctx).Where("stylist_id = ?", stylistID).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// GetAffiliateLinkByCode looks a code up case-insensitively.
func GetAffiliateLinkByCode(ctx context.Context, db *gorm.DB, code string) (*domain.AffiliateLink, error) {
	var l domain.AffiliateLink
	err := db.WithContext(ctx).Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetAffiliateLink fetches a link by ID.
func GetAffiliateLink(ctx context.Context, db *gorm.DB, id string) (*domain.AffiliateLink, error) {
	var l domain.AffiliateLink
	if err := db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// IncrementAffiliateClicks bumps the click counter of an active code.
func IncrementAffiliateClicks(ctx context.Context, db *gorm.DB, code string) error {
	res := db.WithContext(ctx).
		Model(&domain.AffiliateLink{}).
		Where("code = ? AND active = ?", strings.ToUpper(strings.TrimSpace(code)), true).
		UpdateColumn("clicks", gorm.Expr("clicks + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateCommission inserts a commission; ErrDuplicate when the booking
// already earned one.
func CreateCommission(ctx context.Context, db *gorm.DB, c *domain.AffiliateCommission) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = domain.CommissionPending
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ListCommissionsForLink returns a link's commissions, newest first.
func ListCommissionsForLink(ctx context.Context, db *gorm.DB, linkID string) ([]domain.AffiliateCommission, error) {
	var out []domain.AffiliateCommission
	err := db.WithContext(ctx).
		Where("affiliate_link_id = ?", linkID).
		Order("created_at desc, id asc").
		Find(&out).Error
	return out, err
}

// GetCommission fetches a commission by ID.
func GetCommission(ctx context.Context, db *gorm.DB, id string) (*domain.AffiliateCommission, error) {
	var c domain.AffiliateCommission
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkCommissionPaid flips a pending commission to paid. ErrNotFound when
// it is missing or already paid.
func MarkCommissionPaid(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.AffiliateCommission{}).
		Where("id = ? AND status = ?", id, domain.CommissionPending).
		Updates(map[string]any{"status": domain.CommissionPaid, "paid_at": at.UTC(), "updated_at": at.UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
