// Package services – PaymentService
//
// PaymentService backs the admin payments table: refunds against captured
// payments, the paginated and sortable listing, and CSV/XLSX exports.
package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/events"
	"github.com/tbourn/nabostylisten-backend/internal/export"
	"github.com/tbourn/nabostylisten-backend/internal/observability"
	"github.com/tbourn/nabostylisten-backend/internal/payments"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
)

// Refund reason bounds.
const (
	MinRefundReasonRunes = 3
	MaxRefundReasonRunes = 500
)

// PaymentService manages payments after booking.
type PaymentService struct {
	DB                 *gorm.DB
	Provider           payments.Provider
	Events             events.Publisher
	PlatformFeePercent int
	Now                Clock
}

// Refund returns amountOre of a captured payment to the customer.
//
// Rules: amount > 0; reason 3..500 characters; the payment is captured;
// RefundedOre + amount <= CapturedOre. The payment row is locked for the
// duration of the provider call.
func (s *PaymentService) Refund(ctx context.Context, actor Actor, paymentID string, amountOre int64, reason string) (*domain.Refund, error) {
	ctx, span := otel.Tracer("services/PaymentService").Start(ctx, "Refund",
		trace.WithAttributes(
			attribute.String("payment.id", paymentID),
			attribute.Int64("amount_ore", amountOre),
			attribute.String("user.id", actor.ID),
		),
	)
	defer span.End()

	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if amountOre <= 0 {
		return nil, invalid("amount_ore", "must be greater than zero")
	}
	reason = sanitizeText(reason)
	if n := runeLen(reason); n < MinRefundReasonRunes || n > MaxRefundReasonRunes {
		return nil, invalid("reason", "must be 3..500 characters")
	}

	now := s.Now.now()
	var (
		ref *domain.Refund
		pay *domain.Payment
	)
	err := inTx(ctx, s.DB, func(tx *gorm.DB) error {
		p, err := repo.GetPaymentForUpdate(ctx, tx, paymentID)
		if err != nil {
			return notFound(err, ErrPaymentNotFound)
		}
		if !p.Captured() || p.CapturedOre == 0 {
			return ErrNotRefundable
		}
		if amountOre > p.RefundableOre() {
			return ErrRefundExceeds
		}
		rid, err := s.Provider.Refund(ctx, p.ProviderPaymentID, amountOre, map[string]any{
			"payment_id":  p.ID,
			"booking_id":  p.BookingID,
			"refunded_by": actor.ID,
		})
		if err != nil {
			observability.ProviderError("refund")
			return fmt.Errorf("%w: %w", ErrPaymentProvider, err)
		}
		ref = &domain.Refund{
			PaymentID:        p.ID,
			AmountOre:        amountOre,
			Reason:           reason,
			ProviderRefundID: rid,
			CreatedBy:        actor.ID,
			CreatedAt:        now,
		}
		if err := repo.CreateRefund(ctx, tx, ref); err != nil {
			return err
		}
		refunded := p.RefundedOre + amountOre
		cols := map[string]any{"refunded_ore": refunded}
		if p.PlatformFeeOre > 0 || p.StylistPayoutOre > 0 {
			platform, _, payout := splitCharge(p.CapturedOre-refunded, s.PlatformFeePercent, 0)
			cols["platform_fee_ore"] = platform
			cols["stylist_payout_ore"] = payout
		}
		if err := writePayment(ctx, tx, p, refundStatus(p.CapturedOre, refunded), cols); err != nil {
			return err
		}
		p.RefundedOre = refunded
		pay = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.Refunded("admin", amountOre)
	emit(ctx, s.Events, events.RKPaymentRefunded, events.PaymentRefunded{
		PaymentID:   pay.ID,
		BookingID:   pay.BookingID,
		RefundID:    ref.ID,
		AmountOre:   amountOre,
		RefundedOre: pay.RefundedOre,
		Reason:      reason,
	})
	return ref, nil
}

func validatePaymentQuery(q repo.PaymentQuery) error {
	if q.Status != "" && !q.Status.Valid() {
		return invalid("status", "unknown payment status")
	}
	if q.Sort != "" {
		if _, ok := repo.PaymentSortColumns[q.Sort]; !ok {
			return invalid("sort", "unknown sort column")
		}
	}
	if q.From != nil && q.To != nil && !q.To.After(*q.From) {
		return invalid("to", "must be after from")
	}
	return nil
}

// ListPage returns one page of the admin payments table.
func (s *PaymentService) ListPage(ctx context.Context, q repo.PaymentQuery, page, pageSize int) ([]repo.PaymentRow, int64, error) {
	ctx, span := otel.Tracer("services/PaymentService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("status", string(q.Status)),
			attribute.String("sort", q.Sort),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if err := validatePaymentQuery(q); err != nil {
		return nil, 0, err
	}
	_, size, offset := pageBounds(page, pageSize)
	total, err := repo.CountPayments(ctx, s.DB, q)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []repo.PaymentRow{}, 0, nil
	}
	rows, err := repo.ListPaymentsPage(ctx, s.DB, q, offset, size)
	return rows, total, err
}

// Get returns a payment with its refunds.
func (s *PaymentService) Get(ctx context.Context, id string) (*domain.Payment, error) {
	ctx, span := otel.Tracer("services/PaymentService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("payment.id", id)),
	)
	defer span.End()

	p, err := repo.GetPayment(ctx, s.DB, id)
	if err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}
	return p, nil
}

// ExportCSV writes every payment matching q as CSV.
func (s *PaymentService) ExportCSV(ctx context.Context, q repo.PaymentQuery, w io.Writer) error {
	return s.export(ctx, "ExportCSV", q, w, export.WritePaymentsCSV)
}

// ExportXLSX writes every payment matching q as an Excel workbook.
func (s *PaymentService) ExportXLSX(ctx context.Context, q repo.PaymentQuery, w io.Writer) error {
	return s.export(ctx, "ExportXLSX", q, w, export.WritePaymentsXLSX)
}

func (s *PaymentService) export(ctx context.Context, op string, q repo.PaymentQuery, w io.Writer, write func(io.Writer, []repo.PaymentRow) error) error {
	ctx, span := otel.Tracer("services/PaymentService").Start(ctx, op)
	defer span.End()

	if err := validatePaymentQuery(q); err != nil {
		return err
	}
	rows, err := repo.ListPaymentsPage(ctx, s.DB, q, 0, 0)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return write(w, rows)
}

// ExportName is the download file name for an export taken now.
func (s *PaymentService) ExportName(ext string) string {
	return export.FileName(s.Now.now(), ext)
}

// Stats returns the count and latest update of payments, used for
// conditional GET on the admin table.
func (s *PaymentService) Stats(ctx context.Context) (int64, *time.Time, error) {
	return repo.PaymentsStats(ctx, s.DB)
}
