// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for reviews and
// rating aggregates.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

// CreateReview inserts a review. A second review of the same booking fails
// the unique index and is returned as ErrDuplicate.
func CreateReview(ctx context.Context, db *gorm.DB, r *domain.Review) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// CountReviewsForStylist returns the number of reviews a stylist received.
func CountReviewsForStylist(ctx context.Context, db *gorm.DB, stylistID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Review{}).Where("stylist_id = ?", stylistID).Count(&n).Error
	return n, err
}

// ListReviewsForStylistPage returns a stylist's reviews, newest first.
func ListReviewsForStylistPage(ctx context.Context, db *gorm.DB, stylistID string, offset, limit int) ([]domain.Review, error) {
	var out []domain.Review
	err := db.WithContext(ctx).
		Where("stylist_id = ?", stylistID).
		Order("created_at desc, id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

type ratingRow struct {
	Ref         string
	AvgRating   float64
	ReviewCount int64
}

// StylistRating aggregates every review of a stylist.
func StylistRating(ctx context.Context, db *gorm.DB, stylistID string) (domain.Rating, error) {
	var row ratingRow
	err := db.WithContext(ctx).
		Model(&domain.Review{}).
		Select("stylist_id AS ref, COALESCE(AVG(rating), 0) AS avg_rating, COUNT(*) AS review_count").
		Where("stylist_id = ?", stylistID).
		Group("stylist_id").
		Scan(&row).Error
	if err != nil {
		return domain.Rating{}, err
	}
	return domain.Rating{Average: row.AvgRating, Count: row.ReviewCount}, nil
}

// ServiceRatings aggregates reviews per service for the given IDs.
// Services without reviews are absent from the map.
func ServiceRatings(ctx context.Context, db *gorm.DB, serviceIDs []string) (map[string]domain.Rating, error) {
	out := make(map[string]domain.Rating, len(serviceIDs))
	if len(serviceIDs) == 0 {
		return out, nil
	}
	var rows []ratingRow
	err := db.WithContext(ctx).
		Model(&domain.Review{}).
		Select("service_id AS ref, AVG(rating) AS avg_rating, COUNT(*) AS review_count").
		Where("service_id IN ?", serviceIDs).
		Group("service_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.Ref] = domain.Rating{Average: r.AvgRating, Count: r.ReviewCount}
	}
	return out, nil
}
