// Package services – BookingService
//
// BookingService owns the booking lifecycle and the money that moves with
// it. A booking is requested by a customer, which authorizes a payment
// intent at the processor; the stylist confirms or declines it; either
// party may cancel under the cancellation policy; the stylist completes it
// after the appointment, which captures the payment and splits it into
// platform fee, affiliate commission and stylist payout.
//
// Status changes are compare-and-set on the booking row inside a
// transaction, so concurrent transitions of one booking cannot both win.
// Creation holds the stylist's slot lock around the overlap check and the
// insert.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/config"
	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/events"
	"github.com/tbourn/nabostylisten-backend/internal/locks"
	"github.com/tbourn/nabostylisten-backend/internal/observability"
	"github.com/tbourn/nabostylisten-backend/internal/payments"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
)

const (
	maxServicesPerBooking = 10
	maxNoteRunes          = 1000
	maxReasonRunes        = 500
	captureBatch          = 100

	// reasonPaymentFailed is stored on bookings abandoned after a failed
	// authorization.
	reasonPaymentFailed = "payment_failed"
)

// BookingPolicy holds the money and timing rules of bookings.
type BookingPolicy struct {
	Currency             string
	PlatformFeePercent   int
	CancellationWindow   time.Duration
	LateCancelFeePercent int
	MinLead              time.Duration
	CaptureLead          time.Duration
	LockTTL              time.Duration
}

// PolicyFromConfig builds a BookingPolicy from configuration.
func PolicyFromConfig(p config.PaymentsConfig, lockTTL time.Duration) BookingPolicy {
	return BookingPolicy{
		Currency:             p.Currency,
		PlatformFeePercent:   p.PlatformFeePercent,
		CancellationWindow:   p.CancellationWindow,
		LateCancelFeePercent: p.LateCancelFeePercent,
		MinLead:              p.MinBookingLead,
		CaptureLead:          p.CaptureLeadTime,
		LockTTL:              lockTTL,
	}
}

// CreateBookingInput is a customer's booking request.
type CreateBookingInput struct {
	ServiceIDs    []string
	StartTime     time.Time
	Location      domain.Location
	AddressID     string
	Note          string
	DiscountCode  string
	AffiliateCode string
	CardToken     string
}

// BookingDetail is a booking with its payment and the caller's unread
// message count.
type BookingDetail struct {
	Booking *domain.Booking `json:"booking"`
	Payment *domain.Payment `json:"payment,omitempty"`
	Unread  int64           `json:"unread_messages"`
}

// BookingService coordinates bookings, slot locks and the payment provider.
type BookingService struct {
	DB       *gorm.DB
	Provider payments.Provider
	Locks    locks.Locker
	Events   events.Publisher
	Policy   BookingPolicy
	Now      Clock
}

// Create books one or more services of a stylist for the calling customer.
// On a failed authorization the booking is cancelled, its discount use is
// released and the provider error is returned.
func (s *BookingService) Create(ctx context.Context, actor Actor, in CreateBookingInput) (*domain.Booking, error) {
	ctx, span := otel.Tracer("services/BookingService").Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("user.id", actor.ID),
			attribute.Int("services", len(in.ServiceIDs)),
		),
	)
	defer span.End()

	if actor.Role != domain.RoleCustomer {
		return nil, ErrForbidden
	}
	ids := dedupe(in.ServiceIDs)
	if len(ids) == 0 || len(ids) > maxServicesPerBooking {
		return nil, invalid("service_ids", "must list 1..10 services")
	}
	if in.StartTime.IsZero() {
		return nil, invalid("start_time", "is required")
	}
	now := s.Now.now()
	start := in.StartTime.UTC().Truncate(time.Minute)
	if start.Before(now.Add(s.Policy.MinLead)) {
		return nil, invalid("start_time", fmt.Sprintf("must be at least %s ahead", s.Policy.MinLead))
	}
	if in.Location != domain.LocationStylist && in.Location != domain.LocationCustomer {
		return nil, invalid("location", "must be stylist or customer")
	}
	note := sanitizeText(in.Note)
	if runeLen(note) > maxNoteRunes {
		return nil, invalid("note", "must be at most 1000 characters")
	}

	if _, err := repo.GetProfile(ctx, s.DB, actor.ID); err != nil {
		return nil, notFound(err, ErrProfileNotFound)
	}
	svcs, err := repo.GetServicesByIDs(ctx, s.DB, ids)
	if err != nil {
		return nil, err
	}
	if len(svcs) != len(ids) {
		return nil, ErrServiceNotFound
	}
	stylistID := svcs[0].StylistID
	var (
		total   int64
		minutes int
		lines   = make([]domain.BookingService, 0, len(svcs))
	)
	for _, sv := range svcs {
		switch {
		case !sv.Published:
			return nil, ErrServiceNotFound
		case sv.StylistID != stylistID:
			return nil, invalid("service_ids", "all services must belong to the same stylist")
		case !sv.Supports(in.Location):
			return nil, invalid("location", "not offered by every selected service")
		}
		total += sv.PriceOre
		minutes += sv.DurationMinutes
		lines = append(lines, domain.BookingService{
			ServiceID:       sv.ID,
			Title:           sv.Title,
			PriceOre:        sv.PriceOre,
			DurationMinutes: sv.DurationMinutes,
			CreatedAt:       now,
		})
	}
	if stylistID == actor.ID {
		return nil, ErrForbidden
	}
	end := start.Add(time.Duration(minutes) * time.Minute)

	var addressID *string
	if in.Location == domain.LocationCustomer {
		if strings.TrimSpace(in.AddressID) == "" {
			return nil, invalid("address_id", "is required for home visits")
		}
		a, err := repo.GetAddress(ctx, s.DB, in.AddressID, actor.ID)
		if err != nil {
			return nil, notFound(err, ErrAddressNotFound)
		}
		addressID = &a.ID
	}

	var link *domain.AffiliateLink
	if code := strings.TrimSpace(in.AffiliateCode); code != "" {
		l, err := repo.GetAffiliateLinkByCode(ctx, s.DB, code)
		if err != nil {
			return nil, notFound(err, ErrAffiliateInvalid)
		}
		if !l.Active || l.StylistID == stylistID {
			return nil, ErrAffiliateInvalid
		}
		link = l
	}

	var (
		disc        *domain.Discount
		discountOre int64
	)
	if strings.TrimSpace(in.DiscountCode) != "" {
		d, err := lookupDiscount(ctx, s.DB, in.DiscountCode)
		if err != nil {
			return nil, err
		}
		if err := checkDiscount(ctx, s.DB, d, actor.ID, total, now); err != nil {
			return nil, err
		}
		disc, discountOre = d, d.AmountFor(total)
	}
	final := total - discountOre
	if final > 0 && strings.TrimSpace(in.CardToken) == "" {
		return nil, invalid("card_token", "is required")
	}

	release, err := s.Locks.Acquire(ctx, locks.SlotKey(stylistID), s.Policy.LockTTL)
	if err != nil {
		if errors.Is(err, locks.ErrLocked) {
			return nil, ErrSlotBusy
		}
		return nil, err
	}
	defer release()

	b := &domain.Booking{
		ID:          uuid.NewString(),
		CustomerID:  actor.ID,
		StylistID:   stylistID,
		StartTime:   start,
		EndTime:     end,
		Status:      domain.BookingPending,
		Location:    in.Location,
		AddressID:   addressID,
		Note:        note,
		TotalOre:    total,
		DiscountOre: discountOre,
		CreatedAt:   now,
		UpdatedAt:   now,
		Services:    lines,
	}
	if disc != nil {
		b.DiscountID = &disc.ID
	}
	if link != nil {
		b.AffiliateLinkID = &link.ID
	}
	pay := &domain.Payment{
		ID:          uuid.NewString(),
		BookingID:   b.ID,
		Provider:    s.Provider.Name(),
		Currency:    s.currency(),
		OriginalOre: total,
		DiscountOre: discountOre,
		FinalOre:    final,
		Status:      domain.PaymentRequiresCapture,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = inTx(ctx, s.DB, func(tx *gorm.DB) error {
		taken, err := repo.HasOverlap(ctx, tx, stylistID, start, end, "")
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}
		if err := repo.CreateBooking(ctx, tx, b); err != nil {
			return err
		}
		if disc != nil {
			used, err := repo.CountDiscountUsage(ctx, tx, disc.ID, actor.ID)
			if err != nil {
				return err
			}
			if disc.MaxUsesPerUser > 0 && used >= int64(disc.MaxUsesPerUser) {
				return &DiscountError{Code: disc.Code, Reason: DiscountPerUserLimit}
			}
			if err := repo.ConsumeDiscount(ctx, tx, disc.ID, actor.ID, b.ID); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return &DiscountError{Code: disc.Code, Reason: DiscountExhausted}
				}
				return err
			}
		}
		if err := repo.CreatePayment(ctx, tx, pay); err != nil {
			return err
		}
		_, err = repo.CreateChat(ctx, tx, b.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if final > 0 {
		intent, err := s.Provider.Authorize(ctx, payments.AuthorizeRequest{
			BookingID: b.ID,
			AmountOre: final,
			Currency:  pay.Currency,
			CardToken: in.CardToken,
			Metadata:  map[string]any{"booking_id": b.ID, "customer_id": actor.ID},
		})
		if err != nil {
			observability.ProviderError("authorize")
			s.abandon(ctx, b.ID, pay)
			if errors.Is(err, payments.ErrDeclined) {
				return nil, fmt.Errorf("%w: %w", ErrPaymentDeclined, err)
			}
			return nil, fmt.Errorf("%w: %w", ErrPaymentProvider, err)
		}
		if err := repo.UpdatePaymentFields(ctx, s.DB, pay.ID, map[string]any{"provider_payment_id": intent.ID}); err != nil {
			return nil, err
		}
	}

	observability.BookingTransition(string(domain.BookingPending))
	emit(ctx, s.Events, events.RKBookingRequested, bookingEvent(b, domain.BookingPending, actor.ID, "", 0))
	return repo.GetBooking(ctx, s.DB, b.ID)
}

// abandon cancels a booking whose authorization failed and gives back the
// discount use. Errors are logged; the caller reports the provider failure.
func (s *BookingService) abandon(ctx context.Context, bookingID string, pay *domain.Payment) {
	err := inTx(ctx, s.DB, func(tx *gorm.DB) error {
		if err := repo.UpdateBookingStatus(ctx, tx, bookingID, domain.BookingPending, domain.BookingCancelled,
			map[string]any{"cancellation_reason": reasonPaymentFailed}); err != nil {
			return err
		}
		if err := writePayment(ctx, tx, pay, domain.PaymentCancelled, nil); err != nil {
			return err
		}
		_, err := repo.ReleaseDiscount(ctx, tx, bookingID)
		return err
	})
	if err != nil {
		log.Error().Err(err).Str("booking_id", bookingID).Msg("abandon booking after failed authorization")
	}
}

// Confirm accepts a pending booking. Only the booked stylist may confirm.
func (s *BookingService) Confirm(ctx context.Context, actor Actor, id string) (*domain.Booking, error) {
	ctx, span := otel.Tracer("services/BookingService").Start(ctx, "Confirm",
		trace.WithAttributes(attribute.String("booking.id", id), attribute.String("user.id", actor.ID)),
	)
	defer span.End()

	now := s.Now.now()
	var b *domain.Booking
	err := inTx(ctx, s.DB, func(tx *gorm.DB) error {
		bk, err := repo.GetBookingForUpdate(ctx, tx, id)
		if err != nil {
			return notFound(err, ErrBookingNotFound)
		}
		if bk.StylistID != actor.ID {
			return ErrForbidden
		}
		if !domain.CanTransition(bk.Status, domain.BookingConfirmed) {
			return ErrInvalidTransition
		}
		if !bk.StartTime.After(now) {
			return invalid("start_time", "booking start has passed")
		}
		b = bk
		return casStatus(ctx, tx, bk, domain.BookingConfirmed, nil)
	})
	if err != nil {
		return nil, err
	}
	observability.BookingTransition(string(domain.BookingConfirmed))
	emit(ctx, s.Events, events.RKBookingConfirmed, bookingEvent(b, domain.BookingConfirmed, actor.ID, "", 0))
	return repo.GetBooking(ctx, s.DB, id)
}

// Decline rejects a pending booking on behalf of its stylist and releases
// the authorization.
func (s *BookingService) Decline(ctx context.Context, actor Actor, id, reason string) (*domain.Booking, error) {
	ctx, span := otel.Tracer("services/BookingService").Start(ctx, "Decline",
		trace.WithAttributes(attribute.String("booking.id", id), attribute.String("user.id", actor.ID)),
	)
	defer span.End()
	return s.cancel(ctx, actor, id, reason, true)
}

// Cancel cancels a pending or confirmed booking.
//
// Policy:
//   - Cancelled by the stylist or an admin, or by the customer at least
//     CancellationWindow before the start: the authorization is voided, or
//     the captured amount is refunded in full.
//   - Cancelled by the customer inside the window: LateCancelFeePercent of
//     the final amount is kept (captured if needed) and the rest refunded.
func (s *BookingService) Cancel(ctx context.Context, actor Actor, id, reason string) (*domain.Booking, error) {
	ctx, span := otel.Tracer("services/BookingService").Start(ctx, "Cancel",
		trace.WithAttributes(attribute.String("booking.id", id), attribute.String("user.id", actor.ID)),
	)
	defer span.End()
	return s.cancel(ctx, actor, id, reason, false)
}

func (s *BookingService) cancel(ctx context.Context, actor Actor, id, reason string, decline bool) (*domain.Booking, error) {
	reason = sanitizeText(reason)
	if runeLen(reason) > maxReasonRunes {
		return nil, invalid("reason", "must be at most 500 characters")
	}
	now := s.Now.now()

	var (
		b      *domain.Booking
		refund int64
	)
	err := inTx(ctx, s.DB, func(tx *gorm.DB) error {
		bk, err := repo.GetBookingForUpdate(ctx, tx, id)
		if err != nil {
			return notFound(err, ErrBookingNotFound)
		}
		isCustomer, isStylist := bk.CustomerID == actor.ID, bk.StylistID == actor.ID
		if decline {
			if !isStylist {
				return ErrForbidden
			}
			if bk.Status != domain.BookingPending {
				return ErrInvalidTransition
			}
		} else if !isCustomer && !isStylist && !actor.IsAdmin() {
			return ErrForbidden
		}
		if !domain.CanTransition(bk.Status, domain.BookingCancelled) {
			return ErrInvalidTransition
		}

		var fee int64
		if isCustomer && bk.StartTime.Sub(now) < s.Policy.CancellationWindow {
			fee = domain.PercentOf(bk.FinalOre(), s.Policy.LateCancelFeePercent)
		}
		p, err := repo.GetPaymentByBooking(ctx, tx, bk.ID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		if p != nil {
			if refund, err = s.settleCancellation(ctx, tx, p, fee, actor.ID, reason, now); err != nil {
				return err
			}
		}
		b = bk
		return casStatus(ctx, tx, bk, domain.BookingCancelled, map[string]any{
			"cancelled_by":        actor.ID,
			"cancellation_reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}
	observability.BookingTransition(string(domain.BookingCancelled))
	emit(ctx, s.Events, events.RKBookingCancelled, bookingEvent(b, domain.BookingCancelled, actor.ID, reason, refund))
	return repo.GetBooking(ctx, s.DB, id)
}

// settleCancellation leaves the customer charged exactly fee and returns the
// amount refunded by this call.
func (s *BookingService) settleCancellation(ctx context.Context, tx *gorm.DB, p *domain.Payment, fee int64, actorID, reason string, now time.Time) (int64, error) {
	switch {
	case p.Status == domain.PaymentRequiresCapture:
		if p.ProviderPaymentID == "" {
			return 0, writePayment(ctx, tx, p, domain.PaymentCancelled, nil)
		}
		if fee <= 0 {
			if err := s.Provider.Void(ctx, p.ProviderPaymentID); err != nil {
				observability.ProviderError("void")
				return 0, fmt.Errorf("%w: %w", ErrPaymentProvider, err)
			}
			return 0, writePayment(ctx, tx, p, domain.PaymentCancelled, nil)
		}
		if err := s.Provider.Capture(ctx, p.ProviderPaymentID, fee); err != nil {
			observability.ProviderError("capture")
			return 0, fmt.Errorf("%w: %w", ErrPaymentProvider, err)
		}
		observability.PaymentCaptured(fee)
		platform, _, payout := s.split(fee, 0)
		return 0, writePayment(ctx, tx, p, domain.PaymentSucceeded, map[string]any{
			"captured_ore":       fee,
			"captured_at":        now,
			"platform_fee_ore":   platform,
			"stylist_payout_ore": payout,
		})

	case p.Captured():
		refund := p.RefundableOre() - fee
		if refund <= 0 {
			return 0, nil
		}
		rid, err := s.Provider.Refund(ctx, p.ProviderPaymentID, refund, map[string]any{
			"booking_id": p.BookingID,
			"reason":     "cancellation",
		})
		if err != nil {
			observability.ProviderError("refund")
			return 0, fmt.Errorf("%w: %w", ErrPaymentProvider, err)
		}
		text := "cancellation"
		if reason != "" {
			text += ": " + reason
		}
		if err := repo.CreateRefund(ctx, tx, &domain.Refund{
			PaymentID:        p.ID,
			AmountOre:        refund,
			Reason:           text,
			ProviderRefundID: rid,
			CreatedBy:        actorID,
			CreatedAt:        now,
		}); err != nil {
			return 0, err
		}
		refunded := p.RefundedOre + refund
		platform, _, payout := s.split(p.CapturedOre-refunded, 0)
		observability.Refunded("cancellation", refund)
		return refund, writePayment(ctx, tx, p, refundStatus(p.CapturedOre, refunded), map[string]any{
			"refunded_ore":       refunded,
			"platform_fee_ore":   platform,
			"stylist_payout_ore": payout,
		})
	}
	return 0, nil
}

// Complete marks a confirmed booking done once it has started, captures the
// payment if needed and books the fee split and affiliate commission.
func (s *BookingService) Complete(ctx context.Context, actor Actor, id string) (*domain.Booking, error) {
	ctx, span := otel.Tracer("services/BookingService").Start(ctx, "Complete",
		trace.WithAttributes(attribute.String("booking.id", id), attribute.String("user.id", actor.ID)),
	)
	defer span.End()

	now := s.Now.now()
	var (
		b          *domain.Booking
		commission *domain.AffiliateCommission
		link       *domain.AffiliateLink
	)
	err := inTx(ctx, s.DB, func(tx *gorm.DB) error {
		bk, err := repo.GetBookingForUpdate(ctx, tx, id)
		if err != nil {
			return notFound(err, ErrBookingNotFound)
		}
		if bk.StylistID != actor.ID && !actor.IsAdmin() {
			return ErrForbidden
		}
		if !domain.CanTransition(bk.Status, domain.BookingCompleted) {
			return ErrInvalidTransition
		}
		if now.Before(bk.StartTime) {
			return ErrNotStarted
		}
		p, err := repo.GetPaymentByBooking(ctx, tx, bk.ID)
		if err != nil {
			return err
		}
		cols := map[string]any{}
		to := p.Status
		if p.Status == domain.PaymentRequiresCapture {
			if err := s.captureFull(ctx, p, now, cols); err != nil {
				return err
			}
			to = domain.PaymentSucceeded
		}

		pct := 0
		if bk.AffiliateLinkID != nil {
			l, err := repo.GetAffiliateLink(ctx, tx, *bk.AffiliateLinkID)
			if err != nil && !errors.Is(err, repo.ErrNotFound) {
				return err
			}
			if l != nil && l.Active {
				link, pct = l, l.CommissionPercent
			}
		}
		platform, comm, payout := s.split(p.CapturedOre-p.RefundedOre, pct)
		cols["platform_fee_ore"] = platform
		cols["stylist_payout_ore"] = payout
		cols["affiliate_commission_ore"] = comm
		if err := writePayment(ctx, tx, p, to, cols); err != nil {
			return err
		}
		if comm > 0 {
			commission = &domain.AffiliateCommission{
				AffiliateLinkID: link.ID,
				BookingID:       bk.ID,
				AmountOre:       comm,
				Status:          domain.CommissionPending,
			}
			if err := repo.CreateCommission(ctx, tx, commission); err != nil {
				return err
			}
		}
		b = bk
		return casStatus(ctx, tx, bk, domain.BookingCompleted, nil)
	})
	if err != nil {
		return nil, err
	}

	observability.BookingTransition(string(domain.BookingCompleted))
	emit(ctx, s.Events, events.RKBookingCompleted, bookingEvent(b, domain.BookingCompleted, actor.ID, "", 0))
	if commission != nil {
		emit(ctx, s.Events, events.RKAffiliateCommission, events.CommissionEarned{
			CommissionID: commission.ID,
			LinkID:       link.ID,
			StylistID:    link.StylistID,
			BookingID:    b.ID,
			AmountOre:    commission.AmountOre,
		})
	}
	return repo.GetBooking(ctx, s.DB, id)
}

// captureFull captures the whole final amount of p and records the result
// in p and cols. Zero-amount payments succeed without a provider call.
func (s *BookingService) captureFull(ctx context.Context, p *domain.Payment, now time.Time, cols map[string]any) error {
	var amount int64
	if p.ProviderPaymentID != "" && p.FinalOre > 0 {
		if err := s.Provider.Capture(ctx, p.ProviderPaymentID, p.FinalOre); err != nil {
			observability.ProviderError("capture")
			return fmt.Errorf("%w: %w", ErrPaymentProvider, err)
		}
		amount = p.FinalOre
		observability.PaymentCaptured(amount)
	}
	p.CapturedOre, p.CapturedAt = amount, &now
	cols["captured_ore"] = amount
	cols["captured_at"] = now
	return nil
}

// CaptureDue captures the payments of confirmed bookings that start within
// CaptureLead of now. It returns the number captured; per-booking failures
// are logged and retried on the next run.
func (s *BookingService) CaptureDue(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("services/BookingService").Start(ctx, "CaptureDue")
	defer span.End()

	now := s.Now.now()
	due, err := repo.ListBookingsDueForCapture(ctx, s.DB, now.Add(s.Policy.CaptureLead), captureBatch)
	if err != nil {
		return 0, err
	}
	captured := 0
	for _, b := range due {
		err := inTx(ctx, s.DB, func(tx *gorm.DB) error {
			p, err := repo.GetPaymentByBooking(ctx, tx, b.ID)
			if err != nil {
				return err
			}
			if p, err = repo.GetPaymentForUpdate(ctx, tx, p.ID); err != nil {
				return err
			}
			if p.Status != domain.PaymentRequiresCapture {
				return nil
			}
			cols := map[string]any{}
			if err := s.captureFull(ctx, p, now, cols); err != nil {
				return err
			}
			return writePayment(ctx, tx, p, domain.PaymentSucceeded, cols)
		})
		if err != nil {
			log.Warn().Err(err).Str("component", "capture").Str("booking_id", b.ID).Msg("capture failed")
			continue
		}
		captured++
	}
	span.SetAttributes(attribute.Int("captured", captured))
	return captured, nil
}

// Get returns a booking visible to the caller with its payment.
func (s *BookingService) Get(ctx context.Context, actor Actor, id string) (*BookingDetail, error) {
	ctx, span := otel.Tracer("services/BookingService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("booking.id", id), attribute.String("user.id", actor.ID)),
	)
	defer span.End()

	b, err := repo.GetBooking(ctx, s.DB, id)
	if err != nil {
		return nil, notFound(err, ErrBookingNotFound)
	}
	if !participant(b, actor) && !actor.IsAdmin() {
		return nil, ErrBookingNotFound
	}
	out := &BookingDetail{Booking: b}
	p, err := repo.GetPaymentByBooking(ctx, s.DB, id)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	out.Payment = p
	if chat, err := repo.GetChatByBooking(ctx, s.DB, id); err == nil {
		if out.Unread, err = repo.CountUnread(ctx, s.DB, chat.ID, actor.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListForUser pages the caller's bookings: customers see what they booked,
// stylists what they were booked for, admins everything.
func (s *BookingService) ListForUser(ctx context.Context, actor Actor, status domain.BookingStatus, page, pageSize int) ([]domain.Booking, int64, error) {
	ctx, span := otel.Tracer("services/BookingService").Start(ctx, "ListForUser",
		trace.WithAttributes(
			attribute.String("user.id", actor.ID),
			attribute.String("status", string(status)),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	f, err := s.filterFor(actor, status)
	if err != nil {
		return nil, 0, err
	}
	_, size, offset := pageBounds(page, pageSize)
	total, err := repo.CountBookings(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Booking{}, 0, nil
	}
	items, err := repo.ListBookingsPage(ctx, s.DB, f, offset, size)
	return items, total, err
}

// ListStats returns the count and latest update of the caller's bookings,
// used for conditional GET.
func (s *BookingService) ListStats(ctx context.Context, actor Actor, status domain.BookingStatus) (int64, *time.Time, error) {
	f, err := s.filterFor(actor, status)
	if err != nil {
		return 0, nil, err
	}
	return repo.BookingsStats(ctx, s.DB, f)
}

func (s *BookingService) filterFor(actor Actor, status domain.BookingStatus) (repo.BookingListFilter, error) {
	if status != "" && !status.Valid() {
		return repo.BookingListFilter{}, invalid("status", "unknown booking status")
	}
	f := repo.BookingListFilter{Status: status}
	switch actor.Role {
	case domain.RoleCustomer:
		f.CustomerID = actor.ID
	case domain.RoleStylist:
		f.StylistID = actor.ID
	case domain.RoleAdmin:
	default:
		return f, ErrForbidden
	}
	return f, nil
}

// split divides a net charge into platform fee, the affiliate's share of
// that fee and the stylist payout.
func (s *BookingService) split(net int64, affiliatePercent int) (platform, commission, payout int64) {
	return splitCharge(net, s.Policy.PlatformFeePercent, affiliatePercent)
}

func splitCharge(net int64, feePercent, affiliatePercent int) (platform, commission, payout int64) {
	if net <= 0 {
		return 0, 0, 0
	}
	platform = domain.PercentOf(net, feePercent)
	commission = domain.PercentOf(platform, affiliatePercent)
	return platform, commission, net - platform
}

func (s *BookingService) currency() string {
	if s.Policy.Currency == "" {
		return domain.CurrencyNOK
	}
	return s.Policy.Currency
}

func refundStatus(captured, refunded int64) domain.PaymentStatus {
	if refunded >= captured {
		return domain.PaymentRefunded
	}
	return domain.PaymentPartiallyRefunded
}

// writePayment stores cols on p and, when to differs from p.Status, moves p
// to status to. A move outside the payment lifecycle, or one that loses a
// race with another writer, fails with ErrPaymentTransition.
func writePayment(ctx context.Context, tx *gorm.DB, p *domain.Payment, to domain.PaymentStatus, cols map[string]any) error {
	if cols == nil {
		cols = map[string]any{}
	}
	if to == p.Status {
		return repo.UpdatePaymentFields(ctx, tx, p.ID, cols)
	}
	if !p.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s to %s", ErrPaymentTransition, p.Status, to)
	}
	if err := repo.UpdatePaymentStatus(ctx, tx, p.ID, p.Status, to, cols); err != nil {
		return notFound(err, ErrPaymentTransition)
	}
	p.Status = to
	return nil
}

// casStatus moves bk to status; a concurrent change surfaces as
// ErrInvalidTransition.
func casStatus(ctx context.Context, tx *gorm.DB, bk *domain.Booking, to domain.BookingStatus, extra map[string]any) error {
	if err := repo.UpdateBookingStatus(ctx, tx, bk.ID, bk.Status, to, extra); err != nil {
		return notFound(err, ErrInvalidTransition)
	}
	bk.Status = to
	return nil
}

func participant(b *domain.Booking, actor Actor) bool {
	return actor.ID != "" && (b.CustomerID == actor.ID || b.StylistID == actor.ID)
}

func bookingEvent(b *domain.Booking, status domain.BookingStatus, actorID, reason string, refund int64) events.BookingChanged {
	return events.BookingChanged{
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		StylistID:  b.StylistID,
		StartTime:  b.StartTime,
		Status:     string(status),
		ActorID:    actorID,
		Reason:     reason,
		RefundOre:  refund,
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
