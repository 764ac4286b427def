package seed

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/payments"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
)

// lateCancelFeePercent is kept when a customer cancels inside the window.
const lateCancelFeePercent = 50

type refundKind int

const (
	noRefund refundKind = iota
	partialRefund
	fullRefund
)

// plan describes one booking to write.
type plan struct {
	customer domain.Profile
	stylist  domain.Profile
	services []domain.Service
	past     bool
	status   domain.BookingStatus
	discount *domain.Discount
	link     *domain.AffiliateLink
	late     bool
	refund   refundKind
	paidOut  bool
}

// seedBookings writes, per customer, one booking in each status plus a
// late cancellation for every fourth customer. Every fifth completed
// booking is partly refunded and every seventh fully refunded.
func (s *seeder) seedBookings(ctx context.Context, _ Options) error {
	if len(s.published) == 0 {
		return nil
	}
	completed := 0
	for i, c := range s.customers {
		statuses := []domain.BookingStatus{domain.BookingCompleted, domain.BookingCancelled, domain.BookingConfirmed, domain.BookingPending}
		if i%4 == 0 {
			statuses = append(statuses, domain.BookingCancelled)
		}
		for k, status := range statuses {
			st, svcs := s.pickServices()
			p := plan{
				customer: c,
				stylist:  st,
				services: svcs,
				status:   status,
				past:     status == domain.BookingCompleted || (status == domain.BookingCancelled && k > 1),
				late:     status == domain.BookingCancelled && k > 1,
			}
			if k == 0 && i%3 == 0 {
				p.discount = s.welcome
			} else if status == domain.BookingConfirmed && i%5 == 1 && total(svcs) >= s.summer.MinOrderOre {
				p.discount = s.summer
			}
			if status == domain.BookingCompleted {
				completed++
				switch {
				case completed%7 == 0:
					p.refund = fullRefund
				case completed%5 == 0:
					p.refund = partialRefund
				}
				p.link = s.referral(st.ID)
				p.paidOut = completed%2 == 0
			}
			if _, err := s.book(ctx, p); err != nil {
				return err
			}
		}
	}
	return nil
}

// seedReviews reviews most completed bookings, then adds completed bookings
// until every published service has MinReviewsPerService reviews.
func (s *seeder) seedReviews(ctx context.Context, _ Options) error {
	for _, b := range s.completed {
		if s.pick(4) == 0 {
			continue
		}
		if err := s.review(ctx, b); err != nil {
			return err
		}
	}
	if len(s.customers) == 0 {
		return nil
	}
	for _, svc := range s.published {
		st := s.stylistByID(svc.StylistID)
		for s.reviewed[svc.ID] < MinReviewsPerService {
			b, err := s.book(ctx, plan{
				customer: s.customers[s.pick(len(s.customers))],
				stylist:  st,
				services: []domain.Service{svc},
				past:     true,
				status:   domain.BookingCompleted,
				paidOut:  true,
			})
			if err != nil {
				return err
			}
			if err := s.review(ctx, b); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *seeder) review(ctx context.Context, b *domain.Booking) error {
	rating := 5 - s.pick(3)
	if s.pick(10) == 0 {
		rating = 2
	}
	at := b.EndTime.Add(time.Duration(1+s.pick(20)) * time.Hour)
	if at.After(s.now) {
		at = s.now
	}
	r := domain.Review{
		BookingID:  b.ID,
		ServiceID:  b.Services[0].ServiceID,
		CustomerID: b.CustomerID,
		StylistID:  b.StylistID,
		Rating:     rating,
		Comment:    reviewComments[s.pick(len(reviewComments))],
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	if err := repo.CreateReview(ctx, s.db, &r); err != nil {
		return err
	}
	s.reviewed[r.ServiceID]++
	s.report.Reviews++
	return nil
}

func (s *seeder) pickServices() (domain.Profile, []domain.Service) {
	first := s.published[s.pick(len(s.published))]
	out := []domain.Service{first}
	if s.pick(4) == 0 {
		for _, svc := range s.services[first.StylistID] {
			if svc.Published && svc.ID != first.ID {
				out = append(out, svc)
				break
			}
		}
	}
	return s.stylistByID(first.StylistID), out
}

func (s *seeder) stylistByID(id string) domain.Profile {
	for _, p := range s.stylists {
		if p.ID == id {
			return p
		}
	}
	return domain.Profile{ID: id}
}

// referral returns another stylist's link for roughly a third of bookings.
func (s *seeder) referral(stylistID string) *domain.AffiliateLink {
	if len(s.links) == 0 || s.pick(3) != 0 {
		return nil
	}
	l := s.links[s.pick(len(s.links))]
	if l.StylistID == stylistID {
		return nil
	}
	return &l
}

// slot returns a start time that never overlaps the stylist's other seeded
// bookings: one appointment per stylist per day, on past days counting back
// from yesterday or future days from three days out.
func (s *seeder) slot(stylistID string, past bool) time.Time {
	day := s.now.Truncate(24 * time.Hour)
	hour := time.Duration(9+s.pick(6)) * time.Hour
	if past {
		n := s.pastSlots[stylistID]
		s.pastSlots[stylistID]++
		return day.AddDate(0, 0, -(n + 1)).Add(hour)
	}
	n := s.futureSlots[stylistID]
	s.futureSlots[stylistID]++
	return day.AddDate(0, 0, n+3).Add(hour)
}

func total(svcs []domain.Service) int64 {
	var sum int64
	for _, svc := range svcs {
		sum += svc.PriceOre
	}
	return sum
}

// book writes a booking with its line items, discount usage, payment,
// refund, commission and chat, all consistent with the booking status.
func (s *seeder) book(ctx context.Context, p plan) (*domain.Booking, error) {
	start := s.slot(p.stylist.ID, p.past)
	minutes := 0
	lines := make([]domain.BookingService, 0, len(p.services))
	atCustomer := true
	for _, svc := range p.services {
		minutes += svc.DurationMinutes
		atCustomer = atCustomer && svc.AtCustomerPlace
		lines = append(lines, domain.BookingService{
			ServiceID:       svc.ID,
			Title:           svc.Title,
			PriceOre:        svc.PriceOre,
			DurationMinutes: svc.DurationMinutes,
		})
	}
	created := start.AddDate(0, 0, -(3 + s.pick(10)))
	if created.After(s.now) {
		created = s.now
	}
	b := &domain.Booking{
		CustomerID: p.customer.ID,
		StylistID:  p.stylist.ID,
		StartTime:  start,
		EndTime:    start.Add(time.Duration(minutes) * time.Minute),
		Status:     p.status,
		Location:   domain.LocationStylist,
		TotalOre:   total(p.services),
		CreatedAt:  created,
		UpdatedAt:  created,
		Services:   lines,
	}
	if atCustomer && s.pick(3) == 0 {
		if a, ok := s.addresses[p.customer.ID]; ok {
			b.Location = domain.LocationCustomer
			b.AddressID = &a.ID
		}
	}
	if p.discount != nil {
		b.DiscountID = &p.discount.ID
		b.DiscountOre = p.discount.AmountFor(b.TotalOre)
	}
	if p.link != nil {
		b.AffiliateLinkID = &p.link.ID
	}
	if p.status == domain.BookingCancelled {
		b.CancelledBy = p.customer.ID
		b.CancellationReason = cancelReasons[s.pick(len(cancelReasons))]
	}
	if err := repo.CreateBooking(ctx, s.db, b); err != nil {
		return nil, err
	}
	s.report.Bookings++
	if p.discount != nil {
		if err := repo.ConsumeDiscount(ctx, s.db, p.discount.ID, p.customer.ID, b.ID); err != nil {
			return nil, err
		}
	}

	pay, err := s.payment(ctx, b, p)
	if err != nil {
		return nil, err
	}
	if err := s.commission(ctx, b, pay, p); err != nil {
		return nil, err
	}
	if err := s.chat(ctx, b); err != nil {
		return nil, err
	}
	if p.status == domain.BookingCompleted {
		s.completed = append(s.completed, b)
	}
	return b, nil
}

func (s *seeder) payment(ctx context.Context, b *domain.Booking, p plan) (*domain.Payment, error) {
	final := b.FinalOre()
	pay := &domain.Payment{
		BookingID:         b.ID,
		Provider:          payments.ProviderFake,
		ProviderPaymentID: "pi_seed_" + uuid.NewString()[:8],
		Currency:          domain.CurrencyNOK,
		OriginalOre:       b.TotalOre,
		DiscountOre:       b.DiscountOre,
		FinalOre:          final,
		Status:            domain.PaymentRequiresCapture,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.CreatedAt,
	}
	switch {
	case p.status == domain.BookingCompleted:
		pay.CapturedOre = final
	case p.status == domain.BookingCancelled && p.late:
		pay.CapturedOre = domain.PercentOf(final, lateCancelFeePercent)
	case p.status == domain.BookingCancelled:
		pay.Status = domain.PaymentCancelled
	}
	if pay.CapturedOre > 0 {
		at := b.StartTime.Add(-24 * time.Hour)
		pay.Status = domain.PaymentSucceeded
		pay.CapturedAt = &at
	} else if pay.Status == domain.PaymentRequiresCapture && p.status.Terminal() {
		pay.Status = domain.PaymentCancelled
	}

	var refunded int64
	switch p.refund {
	case partialRefund:
		refunded = pay.CapturedOre / 4
	case fullRefund:
		refunded = pay.CapturedOre
	}
	if refunded > 0 {
		pay.RefundedOre = refunded
		pay.Status = domain.PaymentPartiallyRefunded
		if refunded == pay.CapturedOre {
			pay.Status = domain.PaymentRefunded
		}
	}
	pay.PlatformFeeOre, pay.StylistPayoutOre = s.split(pay.CapturedOre - refunded)

	if err := repo.CreatePayment(ctx, s.db, pay); err != nil {
		return nil, err
	}
	s.report.Payments++
	if refunded > 0 {
		r := &domain.Refund{
			PaymentID:        pay.ID,
			AmountOre:        refunded,
			Reason:           refundReasons[s.pick(len(refundReasons))],
			ProviderRefundID: "re_seed_" + uuid.NewString()[:8],
			CreatedBy:        s.admin.ID,
			CreatedAt:        b.EndTime.Add(48 * time.Hour),
		}
		if r.CreatedAt.After(s.now) {
			r.CreatedAt = s.now
		}
		if err := repo.CreateRefund(ctx, s.db, r); err != nil {
			return nil, err
		}
		s.report.Refunds++
	}
	return pay, nil
}

func (s *seeder) split(net int64) (platform, payout int64) {
	if net <= 0 {
		return 0, 0
	}
	platform = domain.PercentOf(net, s.fee)
	return platform, net - platform
}

// commission pays the referring stylist a share of the platform fee.
func (s *seeder) commission(ctx context.Context, b *domain.Booking, pay *domain.Payment, p plan) error {
	if p.link == nil || pay.PlatformFeeOre == 0 {
		return nil
	}
	amount := domain.PercentOf(pay.PlatformFeeOre, p.link.CommissionPercent)
	if amount == 0 {
		return nil
	}
	c := &domain.AffiliateCommission{
		AffiliateLinkID: p.link.ID,
		BookingID:       b.ID,
		AmountOre:       amount,
		Status:          domain.CommissionPending,
		CreatedAt:       b.EndTime,
		UpdatedAt:       b.EndTime,
	}
	if p.paidOut {
		at := b.EndTime.AddDate(0, 0, 14)
		if at.After(s.now) {
			at = s.now
		}
		c.Status, c.PaidAt = domain.CommissionPaid, &at
	}
	if err := repo.CreateCommission(ctx, s.db, c); err != nil {
		return err
	}
	if err := repo.UpdatePaymentFields(ctx, s.db, pay.ID, map[string]any{"affiliate_commission_ore": amount}); err != nil {
		return err
	}
	s.report.Commissions++
	return nil
}

// chat opens the booking chat with a short exchange. Messages on past
// bookings are read.
func (s *seeder) chat(ctx context.Context, b *domain.Booking) error {
	ch, err := repo.CreateChat(ctx, s.db, b.ID)
	if err != nil {
		return err
	}
	n := 1 + s.pick(3)
	at := b.CreatedAt
	for i := 0; i < n; i++ {
		at = at.Add(time.Duration(10+s.pick(120)) * time.Minute)
		if at.After(s.now) {
			at = s.now
		}
		sender, line := b.CustomerID, customerLines[s.pick(len(customerLines))]
		if i%2 == 1 {
			sender, line = b.StylistID, stylistLines[s.pick(len(stylistLines))]
		}
		m := &domain.ChatMessage{
			ID:        uuid.NewString(),
			ChatID:    ch.ID,
			SenderID:  sender,
			Content:   line,
			CreatedAt: at,
			UpdatedAt: at,
		}
		if b.StartTime.Before(s.now) {
			read := at.Add(time.Hour)
			m.ReadAt = &read
		}
		if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
			return err
		}
		s.report.Messages++
	}
	return nil
}
