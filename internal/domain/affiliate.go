package domain

import "time"

// AffiliateLink is a stylist's referral code. Bookings made with the code
// earn the owner a commission once they complete.
type AffiliateLink struct {
	ID                string    `json:"id"                 gorm:"type:char(36);primaryKey"`
	StylistID         string    `json:"stylist_id"         gorm:"type:char(36);not null;uniqueIndex:ux_affiliate_stylist"`
	Code              string    `json:"code"               gorm:"type:varchar(32);not null;uniqueIndex:ux_affiliate_code"`
	CommissionPercent int       `json:"commission_percent" gorm:"not null;check:commission_percent BETWEEN 0 AND 100"`
	Clicks            int64     `json:"clicks"             gorm:"not null;default:0"`
	Active            bool      `json:"active"             gorm:"not null"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Stylist Profile `json:"-" gorm:"foreignKey:StylistID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for AffiliateLink.
func (AffiliateLink) TableName() string { return "affiliate_links" }

// CommissionStatus is the payout state of an affiliate commission.
type CommissionStatus string

const (
	CommissionPending CommissionStatus = "pending"
	CommissionPaid    CommissionStatus = "paid"
)

// AffiliateCommission is earned by an affiliate link for one completed booking.
type AffiliateCommission struct {
	ID              string           `json:"id"                gorm:"type:char(36);primaryKey"`
	AffiliateLinkID string           `json:"affiliate_link_id" gorm:"type:char(36);not null;index"`
	BookingID       string           `json:"booking_id"        gorm:"type:char(36);not null;uniqueIndex:ux_commission_booking"`
	AmountOre       int64            `json:"amount_ore"        gorm:"not null;check:amount_ore >= 0"`
	Status          CommissionStatus `json:"status"            gorm:"type:varchar(16);not null;default:'pending'"`
	PaidAt          *time.Time       `json:"paid_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`

	AffiliateLink AffiliateLink `json:"-" gorm:"foreignKey:AffiliateLinkID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for AffiliateCommission.
func (AffiliateCommission) TableName() string { return "affiliate_commissions" }
