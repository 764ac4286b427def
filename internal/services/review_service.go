// Package services – ReviewService
//
// Customers review completed bookings, once per booking. Ratings aggregate
// per stylist and per service.
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
)

// MaxReviewCommentRunes caps a review comment.
const MaxReviewCommentRunes = 1000

// ReviewService records and lists reviews.
type ReviewService struct {
	DB  *gorm.DB
	Now Clock
}

// Create stores the customer's review of a completed booking.
func (s *ReviewService) Create(ctx context.Context, actor Actor, bookingID string, rating int, comment string) (*domain.Review, error) {
	ctx, span := otel.Tracer("services/ReviewService").Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("booking.id", bookingID),
			attribute.String("user.id", actor.ID),
			attribute.Int("rating", rating),
		),
	)
	defer span.End()

	if rating < 1 || rating > 5 {
		return nil, invalid("rating", "must be between 1 and 5")
	}
	comment = sanitizeText(comment)
	if runeLen(comment) > MaxReviewCommentRunes {
		return nil, invalid("comment", "must be at most 1000 characters")
	}

	b, err := repo.GetBooking(ctx, s.DB, bookingID)
	if err != nil {
		return nil, notFound(err, ErrBookingNotFound)
	}
	if b.CustomerID != actor.ID {
		return nil, ErrBookingNotFound
	}
	if b.Status != domain.BookingCompleted {
		return nil, ErrReviewNotAllowed
	}

	now := s.Now.now()
	r := &domain.Review{
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		StylistID:  b.StylistID,
		Rating:     rating,
		Comment:    comment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if len(b.Services) > 0 {
		r.ServiceID = b.Services[0].ServiceID
	}
	if err := repo.CreateReview(ctx, s.DB, r); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	return r, nil
}

// ListForStylist pages a stylist's reviews, newest first.
func (s *ReviewService) ListForStylist(ctx context.Context, stylistID string, page, pageSize int) ([]domain.Review, int64, error) {
	ctx, span := otel.Tracer("services/ReviewService").Start(ctx, "ListForStylist",
		trace.WithAttributes(
			attribute.String("stylist.id", stylistID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if _, err := repo.GetProfile(ctx, s.DB, stylistID); err != nil {
		return nil, 0, notFound(err, ErrProfileNotFound)
	}
	_, size, offset := pageBounds(page, pageSize)
	total, err := repo.CountReviewsForStylist(ctx, s.DB, stylistID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Review{}, 0, nil
	}
	items, err := repo.ListReviewsForStylistPage(ctx, s.DB, stylistID, offset, size)
	return items, total, err
}

// StylistRating returns the average rating and review count of a stylist.
func (s *ReviewService) StylistRating(ctx context.Context, stylistID string) (domain.Rating, error) {
	return repo.StylistRating(ctx, s.DB, stylistID)
}
