// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for payments and
// refunds, including the admin payments table query.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

// PaymentSortColumns whitelists the columns the admin table may sort on,
// mapped to their SQL expression.
var PaymentSortColumns = map[string]string{
	"created_at":   "payments.created_at",
	"final_ore":    "payments.final_ore",
	"refunded_ore": "payments.refunded_ore",
	"status":       "payments.status",
	"start_time":   "bookings.start_time",
}

// PaymentQuery selects rows for the admin payments table.
type PaymentQuery struct {
	Status domain.PaymentStatus // optional
	Search string               // matches customer/stylist name or email, case-insensitive
	From   *time.Time           // created_at >= From
	To     *time.Time           // created_at < To
	Sort   string               // key of PaymentSortColumns (default created_at)
	Desc   bool
}

// PaymentRow is a payment joined with the names on its booking.
type PaymentRow struct {
	domain.Payment
	BookingStatus domain.BookingStatus `json:"booking_status"`
	StartTime     time.Time            `json:"start_time"`
	CustomerName  string               `json:"customer_name"`
	CustomerEmail string               `json:"customer_email"`
	StylistName   string               `json:"stylist_name"`
}

// CreatePayment inserts a payment.
func CreatePayment(ctx context.Context, db *gorm.DB, p *domain.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(p).Error
}

// GetPayment fetches a payment with its refunds, newest refund first.
func GetPayment(ctx context.Context, db *gorm.DB, id string) (*domain.Payment, error) {
	var p domain.Payment
	err := db.WithContext(ctx).
		Preload("Refunds", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at desc") }).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPaymentByBooking fetches the payment attached to a booking.
func GetPaymentByBooking(ctx context.Context, db *gorm.DB, bookingID string) (*domain.Payment, error) {
	var p domain.Payment
	if err := db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPaymentForUpdate locks the payment row where supported. Call it inside
// a transaction.
func GetPaymentForUpdate(ctx context.Context, tx *gorm.DB, id string) (*domain.Payment, error) {
	var p domain.Payment
	if err := forUpdate(tx.WithContext(ctx)).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePaymentFields writes the given columns of a payment.
func UpdatePaymentFields(ctx context.Context, db *gorm.DB, id string, cols map[string]any) error {
	cols["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).Model(&domain.Payment{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePaymentStatus moves a payment from one status to another and writes
// the extra columns. It returns ErrNotFound when the payment is not
// currently in status from.
func UpdatePaymentStatus(ctx context.Context, db *gorm.DB, id string, from, to domain.PaymentStatus, extra map[string]any) error {
	cols := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range extra {
		cols[k] = v
	}
	res := db.WithContext(ctx).
		Model(&domain.Payment{}).
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

// CreateRefund inserts a refund row.
func CreateRefund(ctx context.Context, db *gorm.DB, r *domain.Refund) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(r).Error
}

func paymentRowsQuery(db *gorm.DB, q PaymentQuery) *gorm.DB {
	tx := db.Table("payments").
		Joins("JOIN bookings ON bookings.id = payments.booking_id").
		Joins("LEFT JOIN profiles AS c ON c.id = bookings.customer_id").
		Joins("LEFT JOIN profiles AS s ON s.id = bookings.stylist_id")
	if q.Status != "" {
		tx = tx.Where("payments.status = ?", q.Status)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		tx = tx.Where("LOWER(c.full_name) LIKE ? OR LOWER(c.email) LIKE ? OR LOWER(s.full_name) LIKE ?", like, like, like)
	}
	if q.From != nil {
		tx = tx.Where("payments.created_at >= ?", q.From.UTC())
	}
	if q.To != nil {
		tx = tx.Where("payments.created_at < ?", q.To.UTC())
	}
	return tx
}

// CountPayments returns the number of payments matching q.
func CountPayments(ctx context.Context, db *gorm.DB, q PaymentQuery) (int64, error) {
	var n int64
	err := paymentRowsQuery(db.WithContext(ctx), q).Count(&n).Error
	return n, err
}

// ListPaymentsPage returns one page of the admin payments table. limit <= 0
// returns every matching row (used by exports).
func ListPaymentsPage(ctx context.Context, db *gorm.DB, q PaymentQuery, offset, limit int) ([]PaymentRow, error) {
	col, ok := PaymentSortColumns[q.Sort]
	if !ok {
		col = PaymentSortColumns["created_at"]
	}
	dir := " asc"
	if q.Desc {
		dir = " desc"
	}
	tx := paymentRowsQuery(db.WithContext(ctx), q).
		Select("payments.*, bookings.status AS booking_status, bookings.start_time AS start_time, " +
			"c.full_name AS customer_name, c.email AS customer_email, s.full_name AS stylist_name").
		Order(col + dir).
		Order("payments.id asc")
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var out []PaymentRow
	err := tx.Scan(&out).Error
	return out, err
}
