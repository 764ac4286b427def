package domain

import "time"

// PaymentStatus mirrors the processor-side state of a booking's charge.
type PaymentStatus string

const (
	// PaymentRequiresCapture is an authorized payment intent not yet captured.
	PaymentRequiresCapture   PaymentStatus = "requires_capture"
	PaymentSucceeded         PaymentStatus = "succeeded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentCancelled         PaymentStatus = "cancelled"
)

// PaymentStatuses lists every payment status, in lifecycle order.
var PaymentStatuses = []PaymentStatus{
	PaymentRequiresCapture, PaymentSucceeded, PaymentPartiallyRefunded,
	PaymentRefunded, PaymentCancelled,
}

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	for _, k := range PaymentStatuses {
		if k == s {
			return true
		}
	}
	return false
}

// paymentTransitions lists the statuses each payment status may move to.
// Cancelled and refunded are terminal.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentRequiresCapture:   {PaymentSucceeded, PaymentCancelled},
	PaymentSucceeded:         {PaymentPartiallyRefunded, PaymentRefunded},
	PaymentPartiallyRefunded: {PaymentPartiallyRefunded, PaymentRefunded},
}

// CanTransition reports whether a payment in status s may move to status to.
func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	for _, k := range paymentTransitions[s] {
		if k == to {
			return true
		}
	}
	return false
}

// Payment is the money side of a booking. One payment per booking.
//
// Invariant: RefundedOre <= CapturedOre <= FinalOre.
//
// Fields:
//   - ProviderPaymentID: processor intent/charge id ("" for zero-amount bookings).
//   - OriginalOre / DiscountOre / FinalOre: price breakdown at booking time.
//   - CapturedOre: amount actually charged (0 until capture).
//   - PlatformFeeOre / StylistPayoutOre / AffiliateCommissionOre: split
//     computed when the booking completes.
type Payment struct {
	ID                     string        `json:"id"                  gorm:"type:char(36);primaryKey"`
	BookingID              string        `json:"booking_id"          gorm:"type:char(36);not null;uniqueIndex:ux_payments_booking"`
	Provider               string        `json:"provider"            gorm:"type:varchar(32);not null"`
	ProviderPaymentID      string        `json:"provider_payment_id" gorm:"type:varchar(128);index"`
	Currency               string        `json:"currency"            gorm:"type:char(3);not null"`
	OriginalOre            int64         `json:"original_ore"        gorm:"not null"`
	DiscountOre            int64         `json:"discount_ore"        gorm:"not null;default:0"`
	FinalOre               int64         `json:"final_ore"           gorm:"not null;check:final_ore >= 0"`
	CapturedOre            int64         `json:"captured_ore"        gorm:"not null;default:0"`
	RefundedOre            int64         `json:"refunded_ore"        gorm:"not null;default:0;check:refunded_ore >= 0"`
	PlatformFeeOre         int64         `json:"platform_fee_ore"        gorm:"not null;default:0"`
	StylistPayoutOre       int64         `json:"stylist_payout_ore"      gorm:"not null;default:0"`
	AffiliateCommissionOre int64         `json:"affiliate_commission_ore" gorm:"not null;default:0"`
	Status                 PaymentStatus `json:"status"              gorm:"type:varchar(24);not null;index"`
	CapturedAt             *time.Time    `json:"captured_at,omitempty"`
	CreatedAt              time.Time     `json:"created_at"          gorm:"index"`
	UpdatedAt              time.Time     `json:"updated_at"`

	Booking Booking  `json:"-" gorm:"foreignKey:BookingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Refunds []Refund `json:"refunds,omitempty" gorm:"foreignKey:PaymentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Payment.
func (Payment) TableName() string { return "payments" }

// RefundableOre is what can still be refunded.
func (p Payment) RefundableOre() int64 {
	if p.CapturedOre <= p.RefundedOre {
		return 0
	}
	return p.CapturedOre - p.RefundedOre
}

// Captured reports whether money has been taken for this payment.
func (p Payment) Captured() bool {
	switch p.Status {
	case PaymentSucceeded, PaymentPartiallyRefunded, PaymentRefunded:
		return true
	}
	return false
}

// Refund is one refund issued against a captured payment.
type Refund struct {
	ID               string    `json:"id"                 gorm:"type:char(36);primaryKey"`
	PaymentID        string    `json:"payment_id"         gorm:"type:char(36);not null;index"`
	AmountOre        int64     `json:"amount_ore"         gorm:"not null;check:amount_ore > 0"`
	Reason           string    `json:"reason"             gorm:"type:text;not null"`
	ProviderRefundID string    `json:"provider_refund_id" gorm:"type:varchar(128)"`
	CreatedBy        string    `json:"created_by"         gorm:"type:char(36);not null"`
	CreatedAt        time.Time `json:"created_at"`

	Payment Payment `json:"-" gorm:"foreignKey:PaymentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Refund.
func (Refund) TableName() string { return "refunds" }
